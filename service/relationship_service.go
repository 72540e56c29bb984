package service

import (
	"context"
	"fmt"

	"dinq_match/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

type RelationshipService struct {
	db *gorm.DB
}

func NewRelationshipService(db *gorm.DB) *RelationshipService {
	return &RelationshipService{db: db}
}

// ListInterests 列出用户收到（incoming）或发出（outgoing）的意向记录
func (s *RelationshipService) ListInterests(ctx context.Context, userID uuid.UUID, direction, status string, limit, offset int) ([]model.RelationshipRecord, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if status != "" && !model.IsKnownRelationshipStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Model(&model.RelationshipRecord{})
	switch direction {
	case DirectionIncoming:
		query = query.Where("object_id = ?", userID)
	case DirectionOutgoing, "":
		query = query.Where("subject_id = ?", userID)
	default:
		return nil, fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, direction)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var records []model.RelationshipRecord
	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query interests: %w", err)
	}

	return records, nil
}
