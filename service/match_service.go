package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"dinq_match/metrics"
	"dinq_match/model"
	"dinq_match/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultCandidateLimit = 500

// pairCondition 匹配无序对 (a, b) 的两个方向
const pairCondition = "((subject_id = ? AND object_id = ?) OR (subject_id = ? AND object_id = ?))"

var errPairNotMutual = errors.New("pair not mutual")

// MatchConfig 匹配生成配置
type MatchConfig struct {
	TopK           int
	CandidateLimit int
}

// ProposeResult 一次意向提交的结果
type ProposeResult struct {
	Record         *model.RelationshipRecord `json:"record,omitempty"`
	Created        bool                      `json:"created"`         // 新建了 pending 记录（否则为去重）
	Matched        bool                      `json:"matched"`         // 本次调用完成了双向匹配
	AlreadyMatched bool                      `json:"already_matched"` // 该对用户此前已匹配
}

// GenerateResult 一次匹配生成的结果
type GenerateResult struct {
	MatchesProposed  int              `json:"matches_proposed"`
	MatchesConfirmed int              `json:"matches_confirmed"`
	Candidates       []CandidateScore `json:"candidates"`
}

type MatchService struct {
	db      *gorm.DB
	scorer  *Scorer
	emitter Emitter
	sysSvc  *SystemSettingsService
	cfg     MatchConfig
}

func NewMatchService(db *gorm.DB, scorer *Scorer, cfg MatchConfig) *MatchService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = defaultCandidateLimit
	}
	if scorer == nil {
		scorer = NewScorer()
	}
	return &MatchService{db: db, scorer: scorer, cfg: cfg}
}

// SetEmitter 设置通知入队器（用于依赖注入）
func (s *MatchService) SetEmitter(emitter Emitter) {
	s.emitter = emitter
}

// SetSystemSettingsService 设置功能开关来源
func (s *MatchService) SetSystemSettingsService(sysSvc *SystemSettingsService) {
	s.sysSvc = sysSvc
}

// GenerateMatches 为用户打分候选池并逐个提交意向
//
// 每个候选单独提交，不是一个整体事务：中途失败时返回已完成部分的结果和错误，
// 已写入的 pending 记录保留（每条记录本身是完整的），重新调用会跳过它们继续生成。
func (s *MatchService) GenerateMatches(ctx context.Context, userID uuid.UUID) (*GenerateResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !s.sysSvc.IsFeatureEnabled(model.SettingEnableMatchGeneration) {
		return nil, ErrFeatureDisabled
	}

	requester, err := s.getProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	pool, err := s.candidatePool(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{Candidates: s.scorer.Score(requester, pool, s.cfg.TopK)}
	for _, candidate := range result.Candidates {
		proposed, err := s.ProposeInterest(ctx, userID, candidate.CandidateID, candidate.Score)
		if errors.Is(err, ErrPairRejected) {
			// 打分之后对方刚刚拒绝，跳过
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to propose interest: %w", err)
		}
		if proposed.Created {
			result.MatchesProposed++
		}
		if proposed.Matched {
			result.MatchesConfirmed++
		}
	}

	utils.Logger().Info("matches generated",
		zap.String("profile_id", userID.String()),
		zap.Int("pool", len(pool)),
		zap.Int("proposed", result.MatchesProposed),
		zap.Int("confirmed", result.MatchesConfirmed))

	return result, nil
}

// candidatePool 排除自己以及任一方向存在非 canceled 记录的用户
func (s *MatchService) candidatePool(ctx context.Context, userID uuid.UUID) ([]model.Profile, error) {
	db := s.db.WithContext(ctx)

	asSubject := db.Model(&model.RelationshipRecord{}).
		Select("object_id").
		Where("subject_id = ? AND status <> ?", userID, model.RelationshipCanceled)
	asObject := db.Model(&model.RelationshipRecord{}).
		Select("subject_id").
		Where("object_id = ? AND status <> ?", userID, model.RelationshipCanceled)

	var pool []model.Profile
	err := db.Where("id <> ?", userID).
		Where("id NOT IN (?)", asSubject).
		Where("id NOT IN (?)", asObject).
		Order("created_at ASC").
		Limit(s.cfg.CandidateLimit).
		Find(&pool).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate pool: %w", err)
	}
	return pool, nil
}

// ProposeInterest 记录 subject -> object 的意向并尝试完成双向匹配
func (s *MatchService) ProposeInterest(ctx context.Context, subjectID, objectID uuid.UUID, score float64) (*ProposeResult, error) {
	if err := validatePair(subjectID, objectID); err != nil {
		return nil, err
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		return nil, fmt.Errorf("%w: score must be within [0, 1]", ErrInvalidInput)
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureProfiles(db, subjectID, objectID); err != nil {
		return nil, err
	}

	statuses, err := pairStatuses(db, subjectID, objectID)
	if err != nil {
		return nil, err
	}
	if statuses[model.RelationshipRejected] {
		metrics.RecordProposal("rejected")
		return nil, ErrPairRejected
	}
	if statuses[model.RelationshipMatched] {
		metrics.RecordProposal("matched_already")
		record, err := findRecord(db, subjectID, objectID, model.RelationshipMatched)
		if err != nil {
			return nil, err
		}
		return &ProposeResult{Record: record, AlreadyMatched: true}, nil
	}

	record := &model.RelationshipRecord{
		SubjectID: subjectID,
		ObjectID:  objectID,
		Status:    model.RelationshipPending,
		Score:     score,
	}

	// 依赖部分唯一索引 uniq_relationship_pending 去重
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to create relationship: %w", res.Error)
	}

	result := &ProposeResult{Record: record, Created: res.RowsAffected == 1}
	if result.Created {
		metrics.RecordProposal("created")
	} else {
		metrics.RecordProposal("duplicate")
		existing, err := findRecord(db, subjectID, objectID, model.RelationshipPending)
		if err != nil && !errors.Is(err, ErrRelationshipNotFound) {
			return nil, err
		}
		result.Record = existing
	}

	matched, err := s.ResolvePair(ctx, subjectID, objectID)
	if err != nil {
		return result, err
	}
	result.Matched = matched
	if matched && result.Record != nil {
		result.Record.Status = model.RelationshipMatched
	}

	return result, nil
}

// ResolvePair 若两个方向都是 pending 且无 rejected，则原子地将两条记录置为 matched
//
// 返回 true 表示本次调用完成了转换并已发送两条 new_match 事件；
// 已匹配、单向或被拒绝的情况返回 false，可重复调用。
func (s *MatchService) ResolvePair(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if err := validatePair(a, b); err != nil {
		return false, err
	}

	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.RelationshipRecord{}).
			Where("status = ?", model.RelationshipPending).
			Where(pairCondition, a, b, b, a).
			Where("NOT EXISTS (SELECT 1 FROM relationship_records r WHERE r.status = ? AND ((r.subject_id = ? AND r.object_id = ?) OR (r.subject_id = ? AND r.object_id = ?)))",
				model.RelationshipRejected, a, b, b, a).
			Updates(map[string]interface{}{
				"status":     model.RelationshipMatched,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 2 {
			return errPairNotMutual
		}
		return nil
	})

	if errors.Is(err, errPairNotMutual) {
		return false, nil
	}
	if err != nil {
		// 并发方已完成转换时（例如死锁回滚、唯一索引冲突），视为无操作
		if matched, checkErr := s.isPairMatched(ctx, a, b); checkErr == nil && matched {
			return false, nil
		}
		return false, fmt.Errorf("failed to resolve pair: %w", err)
	}

	metrics.RecordMatchConfirmed()
	utils.Logger().Info("mutual match confirmed",
		zap.String("profile_a", a.String()),
		zap.String("profile_b", b.String()))

	// 提交成功之后才发送事件；调用方取消不影响已提交的匹配
	s.emitMatchEvents(context.WithoutCancel(ctx), a, b)
	return true, nil
}

// RejectInterest userID 拒绝 otherID，完成后该对用户之间不再有 pending 记录
//
// 对方的 pending 意向置为 rejected；否则自己的 pending 意向置为 rejected；
// 两者都没有时写入一条 userID -> otherID 的 rejected 记录。已有 rejected 时幂等。
func (s *MatchService) RejectInterest(ctx context.Context, userID, otherID uuid.UUID) (*model.RelationshipRecord, error) {
	if err := validatePair(userID, otherID); err != nil {
		return nil, err
	}

	var record *model.RelationshipRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		statuses, err := pairStatuses(tx, userID, otherID)
		if err != nil {
			return err
		}
		if statuses[model.RelationshipMatched] {
			return fmt.Errorf("%w: pair already matched", ErrInvalidInput)
		}
		if statuses[model.RelationshipRejected] {
			// 已拒绝过：只清掉残留的 pending
			return closePending(tx, model.RelationshipCanceled, userID, otherID)
		}

		// 对方的意向优先记为被拒绝，自己的意向随之撤回
		flipped, err := transitionPending(tx, otherID, userID, model.RelationshipRejected)
		if err != nil {
			return err
		}
		if flipped {
			if _, err := transitionPending(tx, userID, otherID, model.RelationshipCanceled); err != nil {
				return err
			}
			record, err = findRecord(tx, otherID, userID, model.RelationshipRejected)
			return err
		}

		flipped, err = transitionPending(tx, userID, otherID, model.RelationshipRejected)
		if err != nil {
			return err
		}
		if flipped {
			record, err = findRecord(tx, userID, otherID, model.RelationshipRejected)
			return err
		}

		record = &model.RelationshipRecord{
			SubjectID: userID,
			ObjectID:  otherID,
			Status:    model.RelationshipRejected,
		}
		// uniq_relationship_rejected 挡住并发的重复拒绝
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
		if res.Error != nil {
			return fmt.Errorf("failed to create rejection: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			record, err = findRecord(tx, userID, otherID, model.RelationshipRejected)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// transitionPending 把 subject -> object 的 pending 记录改为 status，返回是否有记录被修改
func transitionPending(tx *gorm.DB, subjectID, objectID uuid.UUID, status string) (bool, error) {
	res := tx.Model(&model.RelationshipRecord{}).
		Where("subject_id = ? AND object_id = ? AND status = ?", subjectID, objectID, model.RelationshipPending).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update relationship: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func closePending(tx *gorm.DB, status string, a, b uuid.UUID) error {
	for _, pair := range [][2]uuid.UUID{{a, b}, {b, a}} {
		if _, err := transitionPending(tx, pair[0], pair[1], status); err != nil {
			return err
		}
	}
	return nil
}

// CancelInterest 撤回 subject -> object 的 pending 意向
func (s *MatchService) CancelInterest(ctx context.Context, subjectID, objectID uuid.UUID) error {
	if err := validatePair(subjectID, objectID); err != nil {
		return err
	}

	canceled, err := transitionPending(s.db.WithContext(ctx), subjectID, objectID, model.RelationshipCanceled)
	if err != nil {
		return err
	}
	if !canceled {
		return ErrRelationshipNotFound
	}
	return nil
}

// GetMatches 获取用户已确认的匹配
func (s *MatchService) GetMatches(ctx context.Context, userID uuid.UUID) ([]model.RelationshipRecord, error) {
	var records []model.RelationshipRecord
	err := s.db.WithContext(ctx).
		Where("subject_id = ? AND status = ?", userID, model.RelationshipMatched).
		Order("updated_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	return records, nil
}

func (s *MatchService) emitMatchEvents(ctx context.Context, a, b uuid.UUID) {
	if s.emitter == nil {
		return
	}

	names := s.displayNames(ctx, a, b)
	for _, pair := range [][2]uuid.UUID{{a, b}, {b, a}} {
		recipient, other := pair[0], pair[1]
		payload := map[string]interface{}{
			"match_profile_id": other.String(),
			"display_name":     names[other],
		}
		if _, err := s.emitter.Enqueue(ctx, recipient, model.KindNewMatch, payload); err != nil {
			// 通知尽力而为，匹配状态以数据库为准
			utils.Logger().Error("failed to enqueue match notification",
				zap.String("profile_id", recipient.String()),
				zap.Error(err))
		}
	}
}

func (s *MatchService) displayNames(ctx context.Context, ids ...uuid.UUID) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(ids))
	var profiles []model.Profile
	if err := s.db.WithContext(ctx).Select("id", "display_name").Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		utils.Logger().Warn("failed to load display names", zap.Error(err))
		return names
	}
	for _, p := range profiles {
		names[p.ID] = p.DisplayName
	}
	return names
}

func (s *MatchService) getProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return NewProfileService(s.db).GetProfile(ctx, id)
}

func (s *MatchService) ensureProfiles(db *gorm.DB, ids ...uuid.UUID) error {
	var count int64
	if err := db.Model(&model.Profile{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check profiles: %w", err)
	}
	if count != int64(len(ids)) {
		return ErrProfileNotFound
	}
	return nil
}

func (s *MatchService) isPairMatched(ctx context.Context, a, b uuid.UUID) (bool, error) {
	statuses, err := pairStatuses(s.db.WithContext(ctx), a, b)
	if err != nil {
		return false, err
	}
	return statuses[model.RelationshipMatched], nil
}

// pairStatuses 返回无序对 (a, b) 当前存在的所有状态
func pairStatuses(db *gorm.DB, a, b uuid.UUID) (map[string]bool, error) {
	var statuses []string
	err := db.Model(&model.RelationshipRecord{}).
		Where(pairCondition, a, b, b, a).
		Distinct().
		Pluck("status", &statuses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check relationship: %w", err)
	}

	set := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		set[st] = true
	}
	return set, nil
}

func findRecord(db *gorm.DB, subjectID, objectID uuid.UUID, status string) (*model.RelationshipRecord, error) {
	var record model.RelationshipRecord
	err := db.Where("subject_id = ? AND object_id = ? AND status = ?", subjectID, objectID, status).
		Order("updated_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRelationshipNotFound
		}
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return &record, nil
}

func validatePair(a, b uuid.UUID) error {
	if a == uuid.Nil || b == uuid.Nil {
		return fmt.Errorf("%w: user ids are required", ErrInvalidInput)
	}
	if a == b {
		return fmt.Errorf("%w: cannot target yourself", ErrInvalidInput)
	}
	return nil
}
