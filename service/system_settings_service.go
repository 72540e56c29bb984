package service

import (
	"fmt"
	"strconv"
	"sync"

	"dinq_match/model"
	"dinq_match/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// featureDefaults 内置功能开关及默认值
var featureDefaults = []model.SystemSettings{
	{SettingKey: model.SettingEnableMatchGeneration, SettingValue: "true", Description: "是否允许生成匹配候选"},
	{SettingKey: model.SettingEnableNotificationDelivery, SettingValue: "true", Description: "是否执行通知投递批处理"},
}

func isKnownFeature(key string) bool {
	for _, f := range featureDefaults {
		if f.SettingKey == key {
			return true
		}
	}
	return false
}

// SystemSettingsService 管理员可调的功能开关，数据库为准，进程内缓存
type SystemSettingsService struct {
	db *gorm.DB

	mu    sync.RWMutex
	flags map[string]bool
}

func NewSystemSettingsService(db *gorm.DB) *SystemSettingsService {
	return &SystemSettingsService{db: db, flags: make(map[string]bool)}
}

// InitDefaultSettings 补齐缺失的开关（已有值不覆盖），然后加载
func (s *SystemSettingsService) InitDefaultSettings() error {
	seed := make([]model.SystemSettings, len(featureDefaults))
	copy(seed, featureDefaults)

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoNothing: true,
	}).Create(&seed).Error
	if err != nil {
		return fmt.Errorf("failed to seed feature flags: %w", err)
	}
	return s.LoadSettings()
}

// LoadSettings 用数据库内容整体替换缓存
func (s *SystemSettingsService) LoadSettings() error {
	var rows []model.SystemSettings
	if err := s.db.Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load feature flags: %w", err)
	}

	flags := make(map[string]bool, len(rows))
	for _, row := range rows {
		enabled, err := strconv.ParseBool(row.SettingValue)
		if err != nil {
			utils.Logger().Warn("ignoring malformed feature flag",
				zap.String("key", row.SettingKey), zap.String("value", row.SettingValue))
			continue
		}
		flags[row.SettingKey] = enabled
	}

	s.mu.Lock()
	s.flags = flags
	s.mu.Unlock()
	return nil
}

// IsFeatureEnabled 未加载或未配置的开关视为打开；nil 接收者同样返回 true
func (s *SystemSettingsService) IsFeatureEnabled(key string) bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	enabled, ok := s.flags[key]
	return !ok || enabled
}

// SetFeatureEnabled 写库并更新本实例缓存，其他实例需要 reload
func (s *SystemSettingsService) SetFeatureEnabled(key string, enabled bool) error {
	if !isKnownFeature(key) {
		return fmt.Errorf("%w: unknown feature %q", ErrInvalidInput, key)
	}

	result := s.db.Model(&model.SystemSettings{}).
		Where("setting_key = ?", key).
		Update("setting_value", strconv.FormatBool(enabled))
	if result.Error != nil {
		return fmt.Errorf("failed to update feature %s: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: feature %q not seeded", ErrInvalidInput, key)
	}

	s.mu.Lock()
	s.flags[key] = enabled
	s.mu.Unlock()
	return nil
}

// GetAllSettings 返回缓存快照
func (s *SystemSettingsService) GetAllSettings() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}
