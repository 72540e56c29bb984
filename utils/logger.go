package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var appLogger = zap.NewNop()

// InitLogger 初始化全局日志器
func InitLogger(json, debug bool) error {
	l, err := NewLogger(json, debug)
	if err != nil {
		return err
	}
	appLogger = l
	zap.ReplaceGlobals(l)
	return nil
}

// NewLogger 创建 zap 日志器（console/json，debug 级别可选）
func NewLogger(json, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "msg",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			NameKey: "logger",

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}
	return cfg.Build()
}

// Logger 获取全局日志器
func Logger() *zap.Logger {
	return appLogger
}

// SyncLogger 刷新缓冲
func SyncLogger() {
	_ = appLogger.Sync()
}
