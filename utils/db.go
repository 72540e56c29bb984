package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dinq_match/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	slowQueryThreshold = 100 * time.Millisecond
	maxOpenConns       = 100
	maxIdleConns       = 20
	connMaxLifetime    = 30 * time.Minute
)

var DB *gorm.DB

// zapGormLogger 把 GORM 日志接到 zap：失败语句记 error，慢查询记 warn，其余丢弃
type zapGormLogger struct {
	slow  time.Duration
	level logger.LogLevel
}

func (l *zapGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *zapGormLogger) Info(context.Context, string, ...interface{}) {}

func (l *zapGormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		Logger().Named("gorm").Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *zapGormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		Logger().Named("gorm").Error(fmt.Sprintf(msg, data...))
	}
}

func (l *zapGormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	if !failed && elapsed < l.slow {
		return
	}

	sql, rows := fc()
	fields := []zap.Field{zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql)}
	if failed {
		Logger().Named("gorm").Error("query failed", append(fields, zap.Error(err))...)
		return
	}
	Logger().Named("gorm").Warn("slow sql", fields...)
}

// NewGormConfig 服务和测试共用的 GORM 配置
func NewGormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:  &zapGormLogger{slow: slowQueryThreshold, level: logger.Warn},
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// InitDB 连接 Postgres 并设置连接池
func InitDB(databaseURL string) error {
	db, err := gorm.Open(postgres.Open(databaseURL), NewGormConfig())
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	DB = db
	Logger().Info("database connected", zap.Int("max_open_conns", maxOpenConns))
	return nil
}

// Migrate 建表并创建部分唯一索引
//
// uniq_relationship_pending 保证同一方向最多一条 pending，
// uniq_relationship_matched 保证同一方向最多一条 matched，
// uniq_relationship_rejected 保证同一方向最多一条 rejected。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Profile{},
		&model.RelationshipRecord{},
		&model.NotificationEvent{},
		&model.NotificationTemplate{},
		&model.SystemSettings{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_relationship_pending ON relationship_records (subject_id, object_id) WHERE status = 'pending'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_relationship_matched ON relationship_records (subject_id, object_id) WHERE status = 'matched'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_relationship_rejected ON relationship_records (subject_id, object_id) WHERE status = 'rejected'`,
		`CREATE INDEX IF NOT EXISTS idx_notification_events_queue ON notification_events (status, attempt_count, created_at)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func GetDB() *gorm.DB {
	return DB
}

func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	DB = nil
	return sqlDB.Close()
}
