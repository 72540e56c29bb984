package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dinq_match/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileService 资料只读查询
type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// GetProfile 按 id 查询资料
func (s *ProfileService) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// GetDeliveryAddress 查询投递地址（去掉首尾空白），未设置或全为空白时返回 ErrAddressUnresolved
func (s *ProfileService) GetDeliveryAddress(ctx context.Context, id uuid.UUID) (string, error) {
	var profile model.Profile
	err := s.db.WithContext(ctx).Select("id", "delivery_address").Where("id = ?", id).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("failed to load profile: %w", err)
	}
	if profile.DeliveryAddress == nil {
		return "", fmt.Errorf("%w: profile %s has no address", ErrAddressUnresolved, id)
	}
	address := strings.TrimSpace(*profile.DeliveryAddress)
	if address == "" {
		return "", fmt.Errorf("%w: profile %s has no address", ErrAddressUnresolved, id)
	}
	return address, nil
}
