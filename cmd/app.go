package cmd

import (
	"fmt"

	"dinq_match/channel"
	"dinq_match/config"
	"dinq_match/metrics"
	"dinq_match/service"
	"dinq_match/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// services 进程内共享的服务实例
type services struct {
	settings     *service.SystemSettingsService
	profiles     *service.ProfileService
	relations    *service.RelationshipService
	templates    *service.TemplateService
	notification *service.NotificationService
	match        *service.MatchService
	delivery     *service.DeliveryService
}

// connect 初始化数据库和 Redis（Redis 仅在 redis 通道或需要租约时必需）
func connect(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	if err := utils.InitDB(cfg.DatabaseURL); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if sqlDB, err := utils.GetDB().DB(); err == nil {
		if err := metrics.RegisterDBStats(sqlDB); err != nil {
			utils.Logger().Warn("failed to register db stats collector", zap.Error(err))
		}
	}

	if err := utils.InitRedis(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB); err != nil {
		if cfg.Delivery.Channel == "redis" {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		utils.Logger().Warn("redis unavailable, realtime push and batch lease disabled", zap.Error(err))
		return utils.GetDB(), nil, nil
	}
	return utils.GetDB(), utils.GetRedis(), nil
}

func closeAll() {
	_ = utils.CloseRedis()
	_ = utils.CloseDB()
}

// buildServices 按配置组装服务
func buildServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	svcs := &services{
		settings:     service.NewSystemSettingsService(db),
		profiles:     service.NewProfileService(db),
		relations:    service.NewRelationshipService(db),
		templates:    service.NewTemplateService(db),
		notification: service.NewNotificationService(db),
	}

	if err := svcs.settings.InitDefaultSettings(); err != nil {
		utils.Logger().Warn("failed to init feature flags, all features default to enabled", zap.Error(err))
	}

	svcs.match = service.NewMatchService(db, service.NewScorer(), service.MatchConfig{
		TopK:           cfg.Match.TopK,
		CandidateLimit: cfg.Match.CandidateLimit,
	})
	svcs.match.SetEmitter(svcs.notification)
	svcs.match.SetSystemSettingsService(svcs.settings)

	ch, err := channel.New(cfg.Delivery.Channel, channel.Deps{
		Redis:  rdb,
		Logger: utils.Logger(),
		SMTP: channel.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		},
	})
	if err != nil {
		return nil, err
	}

	svcs.delivery = service.NewDeliveryService(db, svcs.profiles, svcs.templates, ch, service.DeliveryConfig{
		BatchSize:   cfg.Delivery.BatchSize,
		MaxAttempts: cfg.Delivery.MaxAttempts,
		Concurrency: cfg.Delivery.Concurrency,
		Timeout:     cfg.Delivery.Timeout,
		Lease:       cfg.Delivery.Lease,
	})
	svcs.delivery.SetSystemSettingsService(svcs.settings)
	if rdb != nil {
		svcs.delivery.SetBatchLocker(service.NewRedisBatchLocker(rdb))
	}

	return svcs, nil
}
