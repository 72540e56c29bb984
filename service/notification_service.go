package service

import (
	"context"
	"errors"
	"fmt"

	"dinq_match/metrics"
	"dinq_match/model"
	"dinq_match/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Emitter 对外暴露的通知入队接口（论坛、消息、匹配、计费等调用方使用）
//
// Enqueue 只写入一条 pending 事件并立即返回，不会同步投递。
type Emitter interface {
	Enqueue(ctx context.Context, targetProfileID uuid.UUID, templateKind string, payload map[string]interface{}) (*model.NotificationEvent, error)
}

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Enqueue 创建一条待投递通知事件
func (s *NotificationService) Enqueue(ctx context.Context, targetProfileID uuid.UUID, templateKind string, payload map[string]interface{}) (*model.NotificationEvent, error) {
	if targetProfileID == uuid.Nil {
		return nil, fmt.Errorf("%w: target profile id is required", ErrInvalidInput)
	}
	if !model.IsKnownKind(templateKind) {
		return nil, fmt.Errorf("%w: unknown template kind %q", ErrInvalidInput, templateKind)
	}

	event := &model.NotificationEvent{
		TargetProfileID: targetProfileID,
		TemplateKind:    templateKind,
		Payload:         datatypes.JSONMap(payload),
		Status:          model.EventPending,
	}

	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue notification: %w", err)
	}

	metrics.RecordEventEnqueued(templateKind)
	utils.Logger().Debug("notification enqueued",
		zap.String("event_id", event.ID.String()),
		zap.String("profile_id", targetProfileID.String()),
		zap.String("kind", templateKind))

	return event, nil
}

// GetNotifications 获取用户的通知事件列表（按创建时间倒序），status 为空表示全部
func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]model.NotificationEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Where("target_profile_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var events []model.NotificationEvent
	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	return events, nil
}

// GetEvent 获取单条通知事件
func (s *NotificationService) GetEvent(ctx context.Context, eventID uuid.UUID) (*model.NotificationEvent, error) {
	var event model.NotificationEvent
	if err := s.db.WithContext(ctx).Where("id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get notification event: %w", err)
	}
	return &event, nil
}
