package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"dinq_match/model"
	"dinq_match/utils"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB 每个测试独立的内存库，迁移与生产一致
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), utils.NewGormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 单连接：SQLite 写入串行化
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, utils.Migrate(db))
	return db
}

type profileOpt func(*model.Profile)

func withBadges(badges ...string) profileOpt {
	return func(p *model.Profile) { p.Badges = badges }
}

func withPreferred(badges ...string) profileOpt {
	return func(p *model.Profile) { p.PreferredBadges = badges }
}

func withoutAddress() profileOpt {
	return func(p *model.Profile) { p.DeliveryAddress = nil }
}

func withAddress(address string) profileOpt {
	return func(p *model.Profile) { p.DeliveryAddress = &address }
}

var profileSeq struct {
	sync.Mutex
	n int
}

// createProfile 写入一个测试用户，默认带投递地址
func createProfile(t *testing.T, db *gorm.DB, opts ...profileOpt) *model.Profile {
	t.Helper()

	profileSeq.Lock()
	profileSeq.n++
	n := profileSeq.n
	profileSeq.Unlock()

	id := uuid.New()
	address := "addr-" + id.String()
	p := &model.Profile{
		ID:              id,
		DisplayName:     fmt.Sprintf("user-%d", n),
		Badges:          []string{},
		PreferredBadges: []string{},
		DeliveryAddress: &address,
		CreatedAt:       time.Now().UTC().Add(time.Duration(n) * time.Millisecond),
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// createEvent 直接写入一条待投递事件
func createEvent(t *testing.T, db *gorm.DB, target uuid.UUID, kind string, attempts int, createdAt time.Time) *model.NotificationEvent {
	t.Helper()

	event := &model.NotificationEvent{
		TargetProfileID: target,
		TemplateKind:    kind,
		Payload:         map[string]interface{}{"display_name": "tester"},
		Status:          model.EventPending,
		AttemptCount:    attempts,
		CreatedAt:       createdAt.UTC(),
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

func reloadEvent(t *testing.T, db *gorm.DB, id uuid.UUID) *model.NotificationEvent {
	t.Helper()

	var event model.NotificationEvent
	require.NoError(t, db.Where("id = ?", id).First(&event).Error)
	return &event
}

func countEvents(t *testing.T, db *gorm.DB, target uuid.UUID, kind string) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&model.NotificationEvent{}).
		Where("target_profile_id = ? AND template_kind = ?", target, kind).
		Count(&n).Error)
	return n
}

func countRecords(t *testing.T, db *gorm.DB, subject, object uuid.UUID, status string) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&model.RelationshipRecord{}).
		Where("subject_id = ? AND object_id = ? AND status = ?", subject, object, status).
		Count(&n).Error)
	return n
}

// zeroJitter 去掉随机扰动，便于断言分数
func zeroJitter() float64 { return 0 }

// fakeChannel 可按地址注入失败或阻塞的投递通道
type fakeChannel struct {
	mu      sync.Mutex
	failFor map[string]bool
	block   chan struct{} // 非空时 Send 阻塞直到关闭
	onSend  func(address string)
	sent    []string
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{failFor: make(map[string]bool)}
}

func (f *fakeChannel) Send(ctx context.Context, address, subject, body string) error {
	if f.onSend != nil {
		f.onSend(address)
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[address] {
		return fmt.Errorf("channel unavailable for %s", address)
	}
	f.sent = append(f.sent, address)
	return nil
}

func (f *fakeChannel) sentAddresses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}
