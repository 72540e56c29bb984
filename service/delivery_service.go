package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dinq_match/channel"
	"dinq_match/metrics"
	"dinq_match/model"
	"dinq_match/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	DefaultBatchSize   = 10
	DefaultMaxAttempts = 3

	defaultConcurrency = 4
	defaultTimeout     = 10 * time.Second
	defaultLease       = time.Minute
)

// 单条事件的处理结果
const (
	outcomeSent    = "sent"
	outcomeRetry   = "retry"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// DeliveryConfig 投递批处理配置
type DeliveryConfig struct {
	BatchSize   int
	MaxAttempts int
	Concurrency int
	Timeout     time.Duration // 单次投递超时
	Lease       time.Duration // 批处理租约时长
}

// BatchResult 一次批处理的统计
type BatchResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`  // 本批进入 failed 终态的数量
	Retried   int `json:"retried"` // 投递失败但仍保持 pending 的数量
	Skipped   int `json:"skipped"` // 状态已被其他处理者修改，未写入
}

// DeliveryService 通知投递队列消费者
type DeliveryService struct {
	db        *gorm.DB
	profiles  *ProfileService
	templates *TemplateService
	channel   channel.Channel
	locker    BatchLocker
	sysSvc    *SystemSettingsService
	cfg       DeliveryConfig
}

func NewDeliveryService(db *gorm.DB, profiles *ProfileService, templates *TemplateService, ch channel.Channel, cfg DeliveryConfig) *DeliveryService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Lease <= 0 {
		cfg.Lease = defaultLease
	}
	if profiles == nil {
		profiles = NewProfileService(db)
	}
	if templates == nil {
		templates = NewTemplateService(db)
	}
	return &DeliveryService{db: db, profiles: profiles, templates: templates, channel: ch, cfg: cfg}
}

// SetBatchLocker 设置跨 Pod 批处理租约
func (s *DeliveryService) SetBatchLocker(locker BatchLocker) {
	s.locker = locker
}

// SetSystemSettingsService 设置功能开关来源
func (s *DeliveryService) SetSystemSettingsService(sysSvc *SystemSettingsService) {
	s.sysSvc = sysSvc
}

// RunBatch 取出一批 pending 事件并逐个投递
//
// 单条事件的失败只影响该事件本身；只有读取队列失败时才返回错误。
func (s *DeliveryService) RunBatch(ctx context.Context) (*BatchResult, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveBatchDuration(time.Since(start).Seconds())
	}()

	if !s.sysSvc.IsFeatureEnabled(model.SettingEnableNotificationDelivery) {
		return &BatchResult{}, nil
	}

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, s.cfg.Lease)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire batch lease: %w", err)
		}
		if !ok {
			return nil, ErrBatchInProgress
		}
		defer release()
	}

	var events []model.NotificationEvent
	err := s.db.WithContext(ctx).
		Where("status = ? AND attempt_count < ?", model.EventPending, s.cfg.MaxAttempts).
		Order("created_at ASC").
		Limit(s.cfg.BatchSize).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read delivery queue: %w", err)
	}

	result := &BatchResult{Processed: len(events)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i := range events {
		event := &events[i]
		g.Go(func() error {
			outcome := s.processEvent(ctx, event)
			metrics.RecordDeliveryAttempt(outcome)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeSent:
				result.Succeeded++
			case outcomeRetry:
				result.Retried++
			case outcomeFailed:
				result.Failed++
			case outcomeSkipped:
				result.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	if result.Processed > 0 {
		utils.Logger().Info("delivery batch finished",
			zap.Int("processed", result.Processed),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("retried", result.Retried),
			zap.Int("failed", result.Failed),
			zap.Int("skipped", result.Skipped),
			zap.Duration("elapsed", time.Since(start)))
	}

	return result, nil
}

// RunEvery 按固定间隔执行批处理，直到 ctx 取消
func (s *DeliveryService) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunBatch(ctx); err != nil {
				if errors.Is(err, ErrBatchInProgress) {
					utils.Logger().Debug("delivery batch skipped, lease held elsewhere")
					continue
				}
				utils.Logger().Error("delivery batch failed", zap.Error(err))
			}
		}
	}
}

// processEvent 投递单条事件并以 CAS 方式推进状态
func (s *DeliveryService) processEvent(ctx context.Context, event *model.NotificationEvent) string {
	log := utils.Logger().With(
		zap.String("event_id", event.ID.String()),
		zap.String("profile_id", event.TargetProfileID.String()),
		zap.String("kind", event.TemplateKind),
		zap.Int("attempt", event.AttemptCount+1))

	deliverErr := s.deliver(ctx, event)

	attempts := event.AttemptCount + 1
	updates := map[string]interface{}{
		"attempt_count":   attempts,
		"last_attempt_at": time.Now(),
	}

	var outcome string
	switch {
	case deliverErr == nil:
		outcome = outcomeSent
		updates["status"] = model.EventSent
		updates["last_error"] = nil
	case attempts >= s.cfg.MaxAttempts:
		outcome = outcomeFailed
		updates["status"] = model.EventFailed
		updates["last_error"] = truncate(deliverErr.Error(), 500)
	default:
		outcome = outcomeRetry
		updates["status"] = model.EventPending
		updates["last_error"] = truncate(deliverErr.Error(), 500)
	}

	// 以 id + 当前 attempt_count 为条件，避免与其他批次重复推进
	res := s.db.WithContext(ctx).Model(&model.NotificationEvent{}).
		Where("id = ? AND status = ? AND attempt_count = ?", event.ID, model.EventPending, event.AttemptCount).
		Updates(updates)
	if res.Error != nil {
		log.Error("failed to record delivery attempt", zap.Error(res.Error))
		return outcomeSkipped
	}
	if res.RowsAffected == 0 {
		log.Warn("event already advanced by another consumer")
		return outcomeSkipped
	}

	switch outcome {
	case outcomeSent:
		log.Debug("notification sent")
	case outcomeRetry:
		log.Warn("delivery failed, will retry", zap.Error(deliverErr))
	case outcomeFailed:
		log.Error("delivery failed permanently", zap.Error(deliverErr))
	}

	event.AttemptCount = attempts
	event.Status = updates["status"].(string)
	return outcome
}

func (s *DeliveryService) deliver(ctx context.Context, event *model.NotificationEvent) error {
	// 与 WebSocket 订阅使用同一个地址解析
	address, err := s.profiles.GetDeliveryAddress(ctx, event.TargetProfileID)
	if errors.Is(err, ErrProfileNotFound) {
		return fmt.Errorf("%w: profile %s not found", ErrAddressUnresolved, event.TargetProfileID)
	}
	if err != nil {
		return err
	}

	subject, body, err := s.templates.Render(ctx, event.TemplateKind, map[string]interface{}(event.Payload))
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	// 通道实现可能不响应 ctx，这里单独等待以保证超时生效
	done := make(chan error, 1)
	go func() {
		done <- s.channel.Send(sendCtx, address, subject, body)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("channel send failed: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("channel send timed out: %w", sendCtx.Err())
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
