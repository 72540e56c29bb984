package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TopicPrefix 投递地址对应的 Pub/Sub channel 前缀，WebSocket 端按同样规则订阅
const TopicPrefix = "notify:"

// Message 通过 Redis 发布的通知载荷
type Message struct {
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// RedisChannel 把通知发布到 notify:<address>，由各 Pod 的 WebSocket 连接推送给在线用户
type RedisChannel struct {
	rdb *redis.Client
}

func NewRedisChannel(rdb *redis.Client) *RedisChannel {
	return &RedisChannel{rdb: rdb}
}

// Topic 地址对应的 channel 名称
func Topic(address string) string {
	return TopicPrefix + address
}

func (c *RedisChannel) Send(ctx context.Context, address, subject, body string) error {
	payload, err := json.Marshal(Message{Subject: subject, Body: body, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// 订阅者为 0 也算成功：离线用户下次登录通过通知列表查看
	if err := c.rdb.Publish(ctx, Topic(address), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
