// Package logging 根据配置创建 zap 日志
package logging

import (
	"fmt"

	"github.com/qianlnk/deducebot/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 创建日志，开发模式输出彩色文本，否则输出 JSON
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}
