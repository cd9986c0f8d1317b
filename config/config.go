package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 DEDUCEBOT_SERVER_ADDR
const EnvPrefix = "DEDUCEBOT"

// Config 完整配置
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Discord DiscordConfig `mapstructure:"discord"`
	Games   GamesConfig   `mapstructure:"games"`
	Topics  TopicsConfig  `mapstructure:"topics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig HTTP 和 websocket 网关
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// DiscordConfig Discord 网关
type DiscordConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Token 也可以通过 DISCORD_TOKEN 提供
	Token string `mapstructure:"token"`
}

// GamesConfig 每种游戏监听的频道名
type GamesConfig struct {
	FakeArtistChannel string `mapstructure:"fake_artist_channel"`
	PoliticalChannel  string `mapstructure:"political_channel"`
	OneNightChannel   string `mapstructure:"one_night_channel"`
	// AllowSimulated 允许 fakesay、quicksetup 等测试命令
	AllowSimulated bool `mapstructure:"allow_simulated"`
}

// TopicsConfig 假画家的题目文件
type TopicsConfig struct {
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Discord: DiscordConfig{
			Enabled: false,
		},
		Games: GamesConfig{
			FakeArtistChannel: "fake-artist",
			PoliticalChannel:  "hidden-leader",
			OneNightChannel:   "one-night-werewolf",
		},
		Topics: TopicsConfig{
			File:  "words.csv",
			Watch: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults 把默认值注册到 v，并绑定环境变量
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.enabled", d.Server.Enabled)
	v.SetDefault("server.addr", d.Server.Addr)

	v.SetDefault("discord.enabled", d.Discord.Enabled)
	v.SetDefault("discord.token", d.Discord.Token)

	v.SetDefault("games.fake_artist_channel", d.Games.FakeArtistChannel)
	v.SetDefault("games.political_channel", d.Games.PoliticalChannel)
	v.SetDefault("games.one_night_channel", d.Games.OneNightChannel)
	v.SetDefault("games.allow_simulated", d.Games.AllowSimulated)

	v.SetDefault("topics.file", d.Topics.File)
	v.SetDefault("topics.watch", d.Topics.Watch)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.development", d.Logging.Development)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("discord.token", EnvPrefix+"_DISCORD_TOKEN", "DISCORD_TOKEN")
}

// Load 从 v 读取配置并校验
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}
