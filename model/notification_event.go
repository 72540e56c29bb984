package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 通知模板类型
const (
	KindNewMessage           = "new_message"
	KindNewMatch             = "new_match"
	KindForumReply           = "forum_reply"
	KindSubscriptionCreated  = "subscription_created"
	KindPaymentSucceeded     = "payment_succeeded"
	KindSubscriptionCanceled = "subscription_canceled"
)

// 投递状态
const (
	EventPending = "pending"
	EventSent    = "sent"
	EventFailed  = "failed"
)

// NotificationEvent 待投递通知事件（同时作为投递审计日志，从不删除）
type NotificationEvent struct {
	ID              uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	TargetProfileID uuid.UUID         `json:"target_profile_id" gorm:"type:uuid;not null;index"`
	TemplateKind    string            `json:"template_kind" gorm:"type:varchar(50);not null"`
	Payload         datatypes.JSONMap `json:"payload,omitempty"`
	Status          string            `json:"status" gorm:"type:varchar(20);not null;default:pending"`
	AttemptCount    int               `json:"attempt_count" gorm:"not null;default:0"`
	LastAttemptAt   *time.Time        `json:"last_attempt_at,omitempty"`
	LastError       *string           `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt       time.Time         `json:"created_at" gorm:"autoCreateTime;index"`
}

func (NotificationEvent) TableName() string {
	return "notification_events"
}

func (e *NotificationEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsKnownKind 是否为已定义的模板类型
func IsKnownKind(kind string) bool {
	switch kind {
	case KindNewMessage, KindNewMatch, KindForumReply,
		KindSubscriptionCreated, KindPaymentSucceeded, KindSubscriptionCanceled:
		return true
	}
	return false
}
