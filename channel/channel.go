// Package channel contains the outbound delivery channels used by the notification consumer.
package channel

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel 外部投递通道，可能失败、有延迟
type Channel interface {
	Send(ctx context.Context, address, subject, body string) error
}

// Deps 构造通道需要的外部依赖，按通道类型取用
type Deps struct {
	Redis  *redis.Client
	SMTP   SMTPConfig
	Logger *zap.Logger
}

// New 按名称创建投递通道
func New(name string, deps Deps) (Channel, error) {
	switch name {
	case "redis":
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis channel requires a redis client")
		}
		return NewRedisChannel(deps.Redis), nil
	case "email":
		if deps.SMTP.Host == "" || deps.SMTP.From == "" {
			return nil, fmt.Errorf("email channel requires SMTP host and sender")
		}
		return NewEmailChannel(deps.SMTP, deps.Logger), nil
	case "log":
		return NewLogChannel(deps.Logger), nil
	default:
		return nil, fmt.Errorf("unknown delivery channel %q", name)
	}
}
