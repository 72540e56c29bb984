package service

import (
	"math/rand/v2"
	"sort"
	"strings"

	"dinq_match/model"

	"github.com/google/uuid"
)

const (
	baseScore       = 0.5
	preferenceBoost = 0.1
	sharedBoost     = 0.2
	jitterRange     = 0.1
	maxCandidate    = 0.95 // 1.0 保留给已确认的双向匹配

	DefaultTopK = 5
)

// CandidateScore 候选人打分结果（不落库，每次重新计算）
type CandidateScore struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Score       float64   `json:"score"`
}

// Scorer 纯函数打分器，无 I/O
type Scorer struct {
	jitter func() float64
}

type ScorerOption func(*Scorer)

// WithJitter 替换随机扰动源，返回值应位于 [0, 1)
func WithJitter(fn func() float64) ScorerOption {
	return func(s *Scorer) {
		s.jitter = fn
	}
}

func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{jitter: rand.Float64}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score 对候选池打分并返回前 topK 个（topK <= 0 时使用默认值）
func (s *Scorer) Score(requester *model.Profile, pool []model.Profile, topK int) []CandidateScore {
	if requester == nil || len(pool) == 0 {
		return []CandidateScore{}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	own := badgeSet(requester.Badges)
	preferred := badgeSet(requester.PreferredBadges)

	scores := make([]CandidateScore, 0, len(pool))
	for i := range pool {
		candidate := &pool[i]
		if candidate.ID == requester.ID {
			continue
		}
		scores = append(scores, CandidateScore{
			CandidateID: candidate.ID,
			Score:       s.scoreOne(own, preferred, badgeSet(candidate.Badges)),
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	if len(scores) > topK {
		scores = scores[:topK]
	}
	return scores
}

func (s *Scorer) scoreOne(own, preferred, theirs map[string]struct{}) float64 {
	score := baseScore
	score += preferenceBoost * overlapRatio(preferred, theirs)
	score += sharedBoost * overlapRatio(own, theirs)
	score += jitterRange * s.jitter()

	if score > maxCandidate {
		score = maxCandidate
	}
	if score < 0 {
		score = 0
	}
	return score
}

// overlapRatio = min(|base ∩ other| / |base|, 1)，base 为空时为 0
func overlapRatio(base, other map[string]struct{}) float64 {
	if len(base) == 0 {
		return 0
	}
	hits := 0
	for badge := range base {
		if _, ok := other[badge]; ok {
			hits++
		}
	}
	ratio := float64(hits) / float64(len(base))
	if ratio > 1 {
		return 1
	}
	return ratio
}

func badgeSet(badges []string) map[string]struct{} {
	set := make(map[string]struct{}, len(badges))
	for _, b := range badges {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		set[b] = struct{}{}
	}
	return set
}
