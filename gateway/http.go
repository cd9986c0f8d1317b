package gateway

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/qianlnk/deducebot/services"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	// 允许所有跨域请求
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewRouter 创建 HTTP 路由：/ws 接入玩家，/api 提供只读状态
func NewRouter(hub *Hub, games StatusProvider, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), cors())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ws", func(c *gin.Context) {
		player := strings.TrimSpace(c.Query("player"))
		channels := splitChannels(c.Query("channels"))
		if player == "" || len(channels) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player and channels are required"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("升级WebSocket连接失败", zap.Error(err))
			return
		}
		hub.Register(player, channels, ws)
	})

	api := r.Group("/api")
	{
		api.GET("/games", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"games": games.Statuses()})
		})
		api.GET("/games/:channel", func(c *gin.Context) {
			status, err := games.Status(c.Param("channel"))
			if errors.Is(err, services.ErrGameNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, status)
		})
	}
	return r
}

// splitChannels 解析逗号分隔的频道列表，去掉空项和重复项
func splitChannels(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, ch := range strings.Split(raw, ",") {
		ch = strings.TrimSpace(ch)
		if ch == "" || seen[ch] {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}
	return out
}

// cors 跨域中间件
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("请求",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
