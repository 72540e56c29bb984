package channel

import (
	"context"

	"go.uber.org/zap"
)

// LogChannel 只记录日志的通道，用于本地开发
type LogChannel struct {
	logger *zap.Logger
}

func NewLogChannel(logger *zap.Logger) *LogChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogChannel{logger: logger.Named("channel")}
}

func (c *LogChannel) Send(ctx context.Context, address, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.Info("notification delivered",
		zap.String("address", address),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
