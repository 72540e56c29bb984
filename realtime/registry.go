// Package realtime multiplexes redis pub/sub topics across local subscribers.
//
// One redis subscription is opened per topic no matter how many local
// subscribers share it; the subscription is torn down when the last one leaves.
package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultBufferSize = 64

// Registry 按 topic 复用 Redis 订阅，引用计数归零时关闭
type Registry struct {
	rdb        *redis.Client
	logger     *zap.Logger
	bufferSize int

	mu     sync.Mutex
	topics map[string]*topicEntry
}

type topicEntry struct {
	pubsub      *redis.PubSub
	subscribers map[uuid.UUID]chan []byte
}

// Subscription 本地订阅者
type Subscription struct {
	ID    uuid.UUID
	Topic string
	C     <-chan []byte

	registry *Registry
	once     sync.Once
}

func NewRegistry(rdb *redis.Client, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rdb:        rdb,
		logger:     logger.Named("realtime"),
		bufferSize: defaultBufferSize,
		topics:     make(map[string]*topicEntry),
	}
}

// Subscribe 订阅 topic，首个订阅者会建立 Redis 订阅
//
// 建立订阅的网络往返不持有全局锁，其他 topic 的分发不受影响。
func (r *Registry) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	r.mu.Lock()
	if sub := r.attachLocked(topic); sub != nil {
		r.mu.Unlock()
		return sub, nil
	}
	r.mu.Unlock()

	pubsub := r.rdb.Subscribe(ctx, topic)
	// 等待订阅确认，保证返回后发布的消息不会丢
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe %s: %w", topic, err)
	}

	r.mu.Lock()
	if sub := r.attachLocked(topic); sub != nil {
		// 并发的订阅者先建好了，复用它的
		r.mu.Unlock()
		_ = pubsub.Close()
		return sub, nil
	}
	entry := &topicEntry{
		pubsub:      pubsub,
		subscribers: make(map[uuid.UUID]chan []byte),
	}
	r.topics[topic] = entry
	sub := r.attachLocked(topic)
	r.mu.Unlock()

	go r.fanout(topic, entry)
	return sub, nil
}

// attachLocked 在已有的 topic 上挂一个本地订阅者，topic 不存在时返回 nil
func (r *Registry) attachLocked(topic string) *Subscription {
	entry, ok := r.topics[topic]
	if !ok {
		return nil
	}

	ch := make(chan []byte, r.bufferSize)
	sub := &Subscription{
		ID:       uuid.New(),
		Topic:    topic,
		C:        ch,
		registry: r,
	}
	entry.subscribers[sub.ID] = ch

	r.logger.Debug("subscribed", zap.String("topic", topic), zap.Int("refs", len(entry.subscribers)))
	return sub
}

// Close 取消订阅，可重复调用
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.registry.release(s.Topic, s.ID)
	})
}

// RefCount 当前 topic 的本地订阅者数量
func (r *Registry) RefCount(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.topics[topic]; ok {
		return len(entry.subscribers)
	}
	return 0
}

// Close 关闭所有订阅
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for topic, entry := range r.topics {
		for id, ch := range entry.subscribers {
			close(ch)
			delete(entry.subscribers, id)
		}
		_ = entry.pubsub.Close()
		delete(r.topics, topic)
	}
}

func (r *Registry) release(topic string, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.topics[topic]
	if !ok {
		return
	}
	ch, ok := entry.subscribers[id]
	if !ok {
		return
	}
	delete(entry.subscribers, id)
	close(ch)

	if len(entry.subscribers) == 0 {
		_ = entry.pubsub.Close()
		delete(r.topics, topic)
		r.logger.Debug("topic released", zap.String("topic", topic))
	}
}

// fanout 把 Redis 消息分发给本地订阅者；pubsub 关闭后退出
func (r *Registry) fanout(topic string, entry *topicEntry) {
	for msg := range entry.pubsub.Channel() {
		r.mu.Lock()
		for id, ch := range entry.subscribers {
			select {
			case ch <- []byte(msg.Payload):
			default:
				// 订阅者处理过慢，丢弃该条
				r.logger.Warn("subscriber buffer full, dropping message",
					zap.String("topic", topic), zap.String("subscriber", id.String()))
			}
		}
		r.mu.Unlock()
	}
}
