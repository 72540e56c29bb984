package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 关系状态
const (
	RelationshipPending  = "pending"
	RelationshipMatched  = "matched"
	RelationshipRejected = "rejected"
	RelationshipCanceled = "canceled"
)

// RelationshipRecord 用户之间的单向意向记录（subject -> object），只变更状态，从不删除
type RelationshipRecord struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SubjectID uuid.UUID `json:"subject_id" gorm:"type:uuid;not null;index"`
	ObjectID  uuid.UUID `json:"object_id" gorm:"type:uuid;not null;index"`
	Status    string    `json:"status" gorm:"type:varchar(20);not null;index"` // 'pending' | 'matched' | 'rejected' | 'canceled'
	Score     float64   `json:"score" gorm:"not null;default:0"`               // 生成时的分数快照
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (RelationshipRecord) TableName() string {
	return "relationship_records"
}

func (r *RelationshipRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsKnownRelationshipStatus 检查状态是否合法
func IsKnownRelationshipStatus(status string) bool {
	switch status {
	case RelationshipPending, RelationshipMatched, RelationshipRejected, RelationshipCanceled:
		return true
	}
	return false
}
