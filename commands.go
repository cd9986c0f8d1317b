package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/qianlnk/deducebot/config"
	"github.com/qianlnk/deducebot/gateway"
	"github.com/qianlnk/deducebot/logging"
	"github.com/qianlnk/deducebot/services"
	"github.com/qianlnk/deducebot/topics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var rootCmd = &cobra.Command{
	Use:          "deducebot",
	Short:        "Social deduction party games over chat",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the game bot with the configured gateways",
	RunE:  runServe,
}

var topicsCmd = &cobra.Command{
	Use:   "topics [file]",
	Short: "Check a topic file and print its entries",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTopics,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.AddCommand(serveCmd, topicsCmd)
}

func initConfig() {
	// .env 里的变量不覆盖已有的环境变量
	_ = godotenv.Load()

	config.SetDefaults(viper.GetViper())
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	_ = viper.ReadInConfig()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Info("已读取配置文件", zap.String("path", used))
	}

	store := topics.NewStore(logger)
	if cfg.Topics.File != "" {
		if err := store.Load(cfg.Topics.File); err != nil {
			logger.Warn("题目文件加载失败，使用内置题目", zap.Error(err), zap.Int("count", store.Len()))
		}
	}

	supervisor := services.NewSupervisor(logger, cfg.Games.AllowSimulated,
		services.NewFakeArtistGame(cfg.Games.FakeArtistChannel, store, logger, nil),
		services.NewPoliticalGame(cfg.Games.PoliticalChannel, logger, nil),
		services.NewOneNightGame(cfg.Games.OneNightChannel, logger, nil),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.Server.Enabled {
		if !cfg.Logging.Development {
			gin.SetMode(gin.ReleaseMode)
		}
		hub := gateway.NewHub(supervisor, logger)
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           gateway.NewRouter(hub, supervisor, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("HTTP 服务启动", zap.String("addr", cfg.Server.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.Discord.Enabled {
		bot, err := gateway.NewDiscord(cfg.Discord.Token, supervisor, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return bot.Run(ctx) })
	}

	if cfg.Topics.Watch && cfg.Topics.File != "" {
		g.Go(func() error {
			if err := store.Watch(ctx, cfg.Topics.File); err != nil {
				logger.Warn("无法监听题目文件", zap.Error(err))
			}
			return nil
		})
	}

	err = g.Wait()
	logger.Info("已停止", zap.Error(err))
	return err
}

func runTopics(cmd *cobra.Command, args []string) error {
	path := viper.GetString("topics.file")
	if len(args) == 1 {
		path = args[0]
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	list, err := topics.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	out := cmd.OutOrStdout()
	for _, t := range list {
		fmt.Fprintf(out, "%s: %s\n", t.Category, t.Item)
	}
	fmt.Fprintf(out, "%d topics in %s\n", len(list), path)
	return nil
}
