package service

import (
	"context"
	"time"

	"dinq_match/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const deliveryLeaseKey = "delivery:batch:lease"

// BatchLocker 批处理租约，防止多个 Pod 同时消费队列
type BatchLocker interface {
	TryLock(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

// 只有持有者才能释放租约
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisBatchLocker 基于 SET NX PX 的租约
type RedisBatchLocker struct {
	rdb *redis.Client
	key string
}

func NewRedisBatchLocker(rdb *redis.Client) *RedisBatchLocker {
	return &RedisBatchLocker{rdb: rdb, key: deliveryLeaseKey}
}

func (l *RedisBatchLocker) TryLock(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		if err := releaseScript.Run(context.Background(), l.rdb, []string{l.key}, token).Err(); err != nil {
			utils.Logger().Warn("failed to release delivery lease", zap.Error(err))
		}
	}
	return release, true, nil
}
