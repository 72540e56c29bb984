package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"dinq_match/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestMatchService(t *testing.T, db *gorm.DB) *MatchService {
	t.Helper()

	svc := NewMatchService(db, NewScorer(WithJitter(zeroJitter)), MatchConfig{TopK: 5})
	svc.SetEmitter(NewNotificationService(db))
	return svc
}

// TestProposeInterest_MutualMatch 双向意向产生一对 matched 记录和两条 new_match 事件
//
// 验证闭环：
// 1. A -> B：创建 pending，未匹配
// 2. B -> A：创建 pending 并完成匹配
// 3. 两个方向均为 matched，双方各收到一条 new_match
func TestProposeInterest_MutualMatch(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	first, err := svc.ProposeInterest(ctx, a.ID, b.ID, 0.7)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.False(t, first.Matched)

	second, err := svc.ProposeInterest(ctx, b.ID, a.ID, 0.6)
	require.NoError(t, err)
	assert.True(t, second.Created)
	assert.True(t, second.Matched)
	assert.Equal(t, model.RelationshipMatched, second.Record.Status)

	assert.Equal(t, int64(1), countRecords(t, db, a.ID, b.ID, model.RelationshipMatched))
	assert.Equal(t, int64(1), countRecords(t, db, b.ID, a.ID, model.RelationshipMatched))
	assert.Equal(t, int64(0), countRecords(t, db, a.ID, b.ID, model.RelationshipPending))

	assert.Equal(t, int64(1), countEvents(t, db, a.ID, model.KindNewMatch))
	assert.Equal(t, int64(1), countEvents(t, db, b.ID, model.KindNewMatch))

	var event model.NotificationEvent
	require.NoError(t, db.Where("target_profile_id = ?", a.ID).First(&event).Error)
	assert.Equal(t, b.ID.String(), event.Payload["match_profile_id"])
	assert.Equal(t, b.DisplayName, event.Payload["display_name"])
}

func TestProposeInterest_MutualMatchReverseOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	_, err := svc.ProposeInterest(ctx, b.ID, a.ID, 0.5)
	require.NoError(t, err)
	res, err := svc.ProposeInterest(ctx, a.ID, b.ID, 0.5)
	require.NoError(t, err)
	assert.True(t, res.Matched)

	assert.Equal(t, int64(1), countEvents(t, db, a.ID, model.KindNewMatch))
	assert.Equal(t, int64(1), countEvents(t, db, b.ID, model.KindNewMatch))
}

// TestProposeInterest_ConcurrentMutual 双方同时点赞，只会完成一次匹配
func TestProposeInterest_ConcurrentMutual(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	for round := 0; round < 10; round++ {
		a := createProfile(t, db)
		b := createProfile(t, db)

		var wg sync.WaitGroup
		results := make([]*ProposeResult, 2)
		errs := make([]error, 2)
		for i, pair := range [][2]uuid.UUID{{a.ID, b.ID}, {b.ID, a.ID}} {
			wg.Add(1)
			go func(i int, subject, object uuid.UUID) {
				defer wg.Done()
				results[i], errs[i] = svc.ProposeInterest(ctx, subject, object, 0.5)
			}(i, pair[0], pair[1])
		}
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		matchedCalls := 0
		for _, r := range results {
			if r.Matched {
				matchedCalls++
			}
		}
		assert.Equal(t, 1, matchedCalls, "exactly one caller completes the match")

		assert.Equal(t, int64(1), countRecords(t, db, a.ID, b.ID, model.RelationshipMatched))
		assert.Equal(t, int64(1), countRecords(t, db, b.ID, a.ID, model.RelationshipMatched))
		assert.Equal(t, int64(1), countEvents(t, db, a.ID, model.KindNewMatch))
		assert.Equal(t, int64(1), countEvents(t, db, b.ID, model.KindNewMatch))
	}
}

func TestResolvePair_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	_, err := svc.ProposeInterest(ctx, a.ID, b.ID, 0.5)
	require.NoError(t, err)
	res, err := svc.ProposeInterest(ctx, b.ID, a.ID, 0.5)
	require.NoError(t, err)
	require.True(t, res.Matched)

	for i := 0; i < 3; i++ {
		matched, err := svc.ResolvePair(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, matched)
	}

	assert.Equal(t, int64(1), countEvents(t, db, a.ID, model.KindNewMatch))
	assert.Equal(t, int64(1), countEvents(t, db, b.ID, model.KindNewMatch))

	// 已匹配后再次点赞为无操作
	again, err := svc.ProposeInterest(ctx, a.ID, b.ID, 0.5)
	require.NoError(t, err)
	assert.True(t, again.AlreadyMatched)
	assert.False(t, again.Created)
	assert.Equal(t, int64(0), countRecords(t, db, a.ID, b.ID, model.RelationshipPending))
}

func TestResolvePair_OneSidedIsNoop(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	_, err := svc.ProposeInterest(ctx, a.ID, b.ID, 0.5)
	require.NoError(t, err)

	matched, err := svc.ResolvePair(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, int64(1), countRecords(t, db, a.ID, b.ID, model.RelationshipPending))
}

// TestResolvePair_ConcurrentCallers 两条 pending 都已存在时并发 ResolvePair，只有一个调用完成匹配
func TestResolvePair_ConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)
	require.NoError(t, db.Create(&model.RelationshipRecord{SubjectID: a.ID, ObjectID: b.ID, Status: model.RelationshipPending, Score: 0.5}).Error)
	require.NoError(t, db.Create(&model.RelationshipRecord{SubjectID: b.ID, ObjectID: a.ID, Status: model.RelationshipPending, Score: 0.5}).Error)

	var wg sync.WaitGroup
	results := make([]bool, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				results[i], errs[i] = svc.ResolvePair(ctx, a.ID, b.ID)
			} else {
				results[i], errs[i] = svc.ResolvePair(ctx, b.ID, a.ID)
			}
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i] {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, int64(1), countEvents(t, db, a.ID, model.KindNewMatch))
	assert.Equal(t, int64(1), countEvents(t, db, b.ID, model.KindNewMatch))
}

// TestResolvePair_RaceWithReject 拒绝和匹配同时发生时，结果只能是其中之一
func TestResolvePair_RaceWithReject(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	for round := 0; round < 10; round++ {
		a := createProfile(t, db)
		b := createProfile(t, db)
		require.NoError(t, db.Create(&model.RelationshipRecord{SubjectID: a.ID, ObjectID: b.ID, Status: model.RelationshipPending, Score: 0.5}).Error)
		require.NoError(t, db.Create(&model.RelationshipRecord{SubjectID: b.ID, ObjectID: a.ID, Status: model.RelationshipPending, Score: 0.5}).Error)

		var wg sync.WaitGroup
		var matched bool
		var resolveErr, rejectErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			matched, resolveErr = svc.ResolvePair(ctx, a.ID, b.ID)
		}()
		go func() {
			defer wg.Done()
			_, rejectErr = svc.RejectInterest(ctx, b.ID, a.ID)
		}()
		wg.Wait()

		require.NoError(t, resolveErr)
		if matched {
			assert.ErrorIs(t, rejectErr, ErrInvalidInput)
			assert.Equal(t, int64(1), countEvents(t, db, a.ID, model.KindNewMatch))
		} else {
			require.NoError(t, rejectErr)
			assert.Equal(t, int64(0), countRecords(t, db, a.ID, b.ID, model.RelationshipMatched))
			assert.Equal(t, int64(0), countEvents(t, db, a.ID, model.KindNewMatch))
		}
	}
}

// failRelationshipUpdates 让之后对 relationship_records 的 UPDATE 返回错误，模拟死锁回滚
func failRelationshipUpdates(t *testing.T, db *gorm.DB) {
	t.Helper()

	err := db.Callback().Update().Before("gorm:update").Register("test:fail_relationship_update", func(tx *gorm.DB) {
		if tx.Statement.Table == (model.RelationshipRecord{}).TableName() {
			_ = tx.AddError(errors.New("deadlock detected"))
		}
	})
	require.NoError(t, err)
}

// TestResolvePair_StoreErrorAfterMatch 并发方已完成匹配时，本方的存储错误视为无操作
func TestResolvePair_StoreErrorAfterMatch(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)
	require.NoError(t, db.Create(&model.RelationshipRecord{SubjectID: a.ID, ObjectID: b.ID, Status: model.RelationshipMatched, Score: 0.5}).Error)
	require.NoError(t, db.Create(&model.RelationshipRecord{SubjectID: b.ID, ObjectID: a.ID, Status: model.RelationshipMatched, Score: 0.5}).Error)
	failRelationshipUpdates(t, db)

	matched, err := svc.ResolvePair(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, int64(0), countEvents(t, db, a.ID, model.KindNewMatch))
}

// TestResolvePair_StoreErrorSuppressesEvents 转换失败时回滚且不发事件
func TestResolvePair_StoreErrorSuppressesEvents(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)
	require.NoError(t, db.Create(&model.RelationshipRecord{SubjectID: a.ID, ObjectID: b.ID, Status: model.RelationshipPending, Score: 0.5}).Error)
	require.NoError(t, db.Create(&model.RelationshipRecord{SubjectID: b.ID, ObjectID: a.ID, Status: model.RelationshipPending, Score: 0.5}).Error)
	failRelationshipUpdates(t, db)

	matched, err := svc.ResolvePair(ctx, a.ID, b.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.False(t, matched)

	assert.Equal(t, int64(1), countRecords(t, db, a.ID, b.ID, model.RelationshipPending))
	assert.Equal(t, int64(1), countRecords(t, db, b.ID, a.ID, model.RelationshipPending))
	assert.Equal(t, int64(0), countEvents(t, db, a.ID, model.KindNewMatch))
	assert.Equal(t, int64(0), countEvents(t, db, b.ID, model.KindNewMatch))
}

func TestProposeInterest_Dedup(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	first, err := svc.ProposeInterest(ctx, a.ID, b.ID, 0.5)
	require.NoError(t, err)
	second, err := svc.ProposeInterest(ctx, a.ID, b.ID, 0.9)
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	require.NotNil(t, second.Record)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, int64(1), countRecords(t, db, a.ID, b.ID, model.RelationshipPending))
}

// TestRejectInterest_Dominates 拒绝之后任何一方再点赞都不会匹配
func TestRejectInterest_Dominates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	_, err := svc.ProposeInterest(ctx, a.ID, b.ID, 0.5)
	require.NoError(t, err)

	record, err := svc.RejectInterest(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, model.RelationshipRejected, record.Status)
	assert.Equal(t, a.ID, record.SubjectID)

	_, err = svc.ProposeInterest(ctx, b.ID, a.ID, 0.5)
	assert.ErrorIs(t, err, ErrPairRejected)
	_, err = svc.ProposeInterest(ctx, a.ID, b.ID, 0.5)
	assert.ErrorIs(t, err, ErrPairRejected)

	matched, err := svc.ResolvePair(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, int64(0), countEvents(t, db, a.ID, model.KindNewMatch))

	// 重复拒绝幂等
	_, err = svc.RejectInterest(ctx, b.ID, a.ID)
	require.NoError(t, err)
}

// TestRejectInterest_BeatsPendingPair 双方都是 pending 时插入的拒绝阻止匹配
func TestRejectInterest_BeatsPendingPair(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	// 直接写入双向 pending，模拟尚未执行 ResolvePair 的状态
	require.NoError(t, db.Create(&model.RelationshipRecord{SubjectID: a.ID, ObjectID: b.ID, Status: model.RelationshipPending, Score: 0.5}).Error)
	_, err := svc.RejectInterest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.RelationshipRecord{SubjectID: b.ID, ObjectID: a.ID, Status: model.RelationshipPending, Score: 0.5}).Error)

	matched, err := svc.ResolvePair(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, matched)
}

// TestRejectInterest_WithdrawsOwnPending 拒绝自己点过赞的人，原 pending 记录转为 rejected
func TestRejectInterest_WithdrawsOwnPending(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	proposed, err := svc.ProposeInterest(ctx, a.ID, b.ID, 0.5)
	require.NoError(t, err)

	record, err := svc.RejectInterest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, proposed.Record.ID, record.ID)
	assert.Equal(t, model.RelationshipRejected, record.Status)

	assert.Equal(t, int64(0), countRecords(t, db, a.ID, b.ID, model.RelationshipPending))
	assert.Equal(t, int64(0), countRecords(t, db, b.ID, a.ID, model.RelationshipPending))
	assert.Equal(t, int64(1), countRecords(t, db, a.ID, b.ID, model.RelationshipRejected))

	incoming, err := NewRelationshipService(db).ListInterests(ctx, b.ID, DirectionIncoming, model.RelationshipPending, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, incoming)
}

// TestRejectInterest_ClearsBothPending 双向 pending 未及匹配时被拒绝，不留任何 pending
func TestRejectInterest_ClearsBothPending(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	require.NoError(t, db.Create(&model.RelationshipRecord{SubjectID: a.ID, ObjectID: b.ID, Status: model.RelationshipPending, Score: 0.5}).Error)
	require.NoError(t, db.Create(&model.RelationshipRecord{SubjectID: b.ID, ObjectID: a.ID, Status: model.RelationshipPending, Score: 0.5}).Error)

	record, err := svc.RejectInterest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, record.SubjectID)

	assert.Equal(t, int64(1), countRecords(t, db, b.ID, a.ID, model.RelationshipRejected))
	assert.Equal(t, int64(1), countRecords(t, db, a.ID, b.ID, model.RelationshipCanceled))
	assert.Equal(t, int64(0), countRecords(t, db, a.ID, b.ID, model.RelationshipPending))
	assert.Equal(t, int64(0), countRecords(t, db, b.ID, a.ID, model.RelationshipPending))
}

// TestRejectInterest_ConcurrentSingleRow 并发重复拒绝只留下一条 rejected
func TestRejectInterest_ConcurrentSingleRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RejectInterest(ctx, a.ID, b.ID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), countRecords(t, db, a.ID, b.ID, model.RelationshipRejected))

	// 索引层面也不允许同方向第二条 rejected
	dup := &model.RelationshipRecord{SubjectID: a.ID, ObjectID: b.ID, Status: model.RelationshipRejected}
	assert.Error(t, db.Create(dup).Error)
}

func TestRejectInterest_WithoutPriorInterest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	record, err := svc.RejectInterest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, a.ID, record.SubjectID)
	assert.Equal(t, b.ID, record.ObjectID)

	_, err = svc.ProposeInterest(ctx, b.ID, a.ID, 0.5)
	assert.ErrorIs(t, err, ErrPairRejected)
}

func TestRejectInterest_MatchedPairInvalid(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	_, err := svc.ProposeInterest(ctx, a.ID, b.ID, 0.5)
	require.NoError(t, err)
	_, err = svc.ProposeInterest(ctx, b.ID, a.ID, 0.5)
	require.NoError(t, err)

	_, err = svc.RejectInterest(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCancelInterest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)
	b := createProfile(t, db)

	_, err := svc.ProposeInterest(ctx, a.ID, b.ID, 0.5)
	require.NoError(t, err)
	require.NoError(t, svc.CancelInterest(ctx, a.ID, b.ID))
	assert.Equal(t, int64(1), countRecords(t, db, a.ID, b.ID, model.RelationshipCanceled))

	assert.ErrorIs(t, svc.CancelInterest(ctx, a.ID, b.ID), ErrRelationshipNotFound)

	// 撤回后对方点赞不会匹配
	res, err := svc.ProposeInterest(ctx, b.ID, a.ID, 0.5)
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestProposeInterest_Validation(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	a := createProfile(t, db)

	_, err := svc.ProposeInterest(ctx, a.ID, a.ID, 0.5)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.ProposeInterest(ctx, uuid.Nil, a.ID, 0.5)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.ProposeInterest(ctx, a.ID, uuid.New(), 1.5)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.ProposeInterest(ctx, a.ID, uuid.New(), 0.5)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	var n int64
	require.NoError(t, db.Model(&model.RelationshipRecord{}).Count(&n).Error)
	assert.Zero(t, n, "rejected input must not write anything")
}

func TestGenerateMatches(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	requester := createProfile(t, db, withBadges("Hiking", "Books"), withPreferred("Hiking"))
	best := createProfile(t, db, withBadges("Hiking", "Books"))
	for i := 0; i < 6; i++ {
		createProfile(t, db)
	}

	res, err := svc.GenerateMatches(ctx, requester.ID)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 5)
	assert.Equal(t, best.ID, res.Candidates[0].CandidateID)
	assert.InDelta(t, 0.8, res.Candidates[0].Score, 1e-9)
	assert.Equal(t, 5, res.MatchesProposed)
	assert.Equal(t, 0, res.MatchesConfirmed)

	// 已有记录的候选人不会再次出现
	again, err := svc.GenerateMatches(ctx, requester.ID)
	require.NoError(t, err)
	assert.Len(t, again.Candidates, 2)
	for _, c := range again.Candidates {
		assert.NotEqual(t, best.ID, c.CandidateID)
	}
}

// TestGenerateMatches_PartialProgress 中途失败时返回部分结果，已写入的记录保留，重试时继续
func TestGenerateMatches_PartialProgress(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	requester := createProfile(t, db)
	for i := 0; i < 4; i++ {
		createProfile(t, db)
	}

	// 第三次写入意向时失败
	var inserts atomic.Int32
	const hook = "test:fail_third_interest"
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register(hook, func(tx *gorm.DB) {
		if tx.Statement.Table == (model.RelationshipRecord{}).TableName() && inserts.Add(1) == 3 {
			_ = tx.AddError(errors.New("connection reset"))
		}
	}))

	res, err := svc.GenerateMatches(ctx, requester.ID)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.MatchesProposed)

	var pending int64
	require.NoError(t, db.Model(&model.RelationshipRecord{}).
		Where("subject_id = ? AND status = ?", requester.ID, model.RelationshipPending).
		Count(&pending).Error)
	assert.Equal(t, int64(2), pending)

	require.NoError(t, db.Callback().Create().Remove(hook))

	again, err := svc.GenerateMatches(ctx, requester.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.MatchesProposed)
}

func TestGenerateMatches_ConfirmsExistingInterest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	requester := createProfile(t, db)
	admirer := createProfile(t, db)

	_, err := svc.ProposeInterest(ctx, admirer.ID, requester.ID, 0.5)
	require.NoError(t, err)

	// admirer 已有 pending 指向 requester，不在候选池中
	res, err := svc.GenerateMatches(ctx, requester.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)

	res2, err := svc.ProposeInterest(ctx, requester.ID, admirer.ID, 0.5)
	require.NoError(t, err)
	assert.True(t, res2.Matched)

	matches, err := svc.GetMatches(ctx, requester.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, admirer.ID, matches[0].ObjectID)
}

func TestGenerateMatches_CanceledReturnsToPool(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	requester := createProfile(t, db)
	other := createProfile(t, db)

	_, err := svc.ProposeInterest(ctx, requester.ID, other.ID, 0.5)
	require.NoError(t, err)

	res, err := svc.GenerateMatches(ctx, requester.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)

	require.NoError(t, svc.CancelInterest(ctx, requester.ID, other.ID))

	res, err = svc.GenerateMatches(ctx, requester.ID)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, other.ID, res.Candidates[0].CandidateID)
	assert.Equal(t, 1, res.MatchesProposed)
}

func TestGenerateMatches_Errors(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestMatchService(t, db)

	_, err := svc.GenerateMatches(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrProfileNotFound)

	requester := createProfile(t, db)

	// 只有自己时返回空列表
	res, err := svc.GenerateMatches(ctx, requester.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)

	sysSvc := NewSystemSettingsService(db)
	require.NoError(t, sysSvc.InitDefaultSettings())
	require.NoError(t, sysSvc.SetFeatureEnabled(model.SettingEnableMatchGeneration, false))
	svc.SetSystemSettingsService(sysSvc)

	_, err = svc.GenerateMatches(ctx, requester.ID)
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}
