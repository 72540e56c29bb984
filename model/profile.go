package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Profile 用户资料（由外部资料服务维护，本服务只读）
type Profile struct {
	ID              uuid.UUID                   `json:"id" gorm:"type:uuid;primaryKey"`
	DisplayName     string                      `json:"display_name" gorm:"type:varchar(100)"`
	Badges          datatypes.JSONSlice[string] `json:"badges"`           // 用户自己声明的标签
	PreferredBadges datatypes.JSONSlice[string] `json:"preferred_badges"` // 希望对方具备的标签
	DeliveryAddress *string                     `json:"delivery_address,omitempty" gorm:"type:varchar(255)"`
	CreatedAt       time.Time                   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time                   `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}
