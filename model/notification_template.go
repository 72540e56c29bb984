package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationTemplate 通知模板覆盖表（只能覆盖已知类型的默认模板）
type NotificationTemplate struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Type            string    `json:"type" gorm:"type:varchar(50);not null;uniqueIndex"` // 'new_match' | 'new_message' | ...
	Title           string    `json:"title" gorm:"type:varchar(200);not null"`           // 标题模板，支持变量：{{display_name}} 等
	ContentTemplate *string   `json:"content_template,omitempty" gorm:"type:text"`       // 内容模板
	IsActive        bool      `json:"is_active" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	Description     *string   `json:"description,omitempty" gorm:"type:text"`
}

func (NotificationTemplate) TableName() string {
	return "notification_templates"
}

func (t *NotificationTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
