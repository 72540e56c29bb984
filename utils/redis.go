package utils

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var rdb *redis.Client

// InitRedis 初始化 Redis 连接，url 可以是 host:port 或 redis:// 连接串
func InitRedis(url, password string, db int) error {
	opts := &redis.Options{Addr: url, Password: password, DB: db}
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return err
		}
		opts = parsed
		if password != "" {
			opts.Password = password
		}
	}
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return err
	}

	rdb = client
	Logger().Info("redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return nil
}

// GetRedis 获取 Redis 客户端，未初始化时为 nil
func GetRedis() *redis.Client {
	return rdb
}

func CloseRedis() error {
	if rdb == nil {
		return nil
	}
	err := rdb.Close()
	rdb = nil
	return err
}
