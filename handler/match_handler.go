package handler

import (
	"strconv"

	"dinq_match/middleware"
	"dinq_match/service"
	"dinq_match/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MatchHandler struct {
	matchSvc *service.MatchService
	relSvc   *service.RelationshipService
}

func NewMatchHandler(matchSvc *service.MatchService, relSvc *service.RelationshipService) *MatchHandler {
	return &MatchHandler{matchSvc: matchSvc, relSvc: relSvc}
}

type interestRequest struct {
	TargetUserID uuid.UUID `json:"target_user_id" binding:"required"`
	Score        *float64  `json:"score"`
}

// GenerateMatches 为当前用户生成匹配候选
// POST /api/v1/matches/generate
func (h *MatchHandler) GenerateMatches(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.matchSvc.GenerateMatches(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// GetMatches 获取当前用户的已匹配列表
// GET /api/v1/matches
func (h *MatchHandler) GetMatches(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	matches, err := h.matchSvc.GetMatches(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"matches": matches})
}

// ProposeInterest 表达对某个用户的兴趣
// POST /api/v1/interests
func (h *MatchHandler) ProposeInterest(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	var req interestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	// 手动点赞没有打分，使用基础分
	score := 0.5
	if req.Score != nil {
		score = *req.Score
	}

	result, err := h.matchSvc.ProposeInterest(c.Request.Context(), userID, req.TargetUserID, score)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// RejectInterest 拒绝某个用户
// POST /api/v1/interests/reject
func (h *MatchHandler) RejectInterest(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	var req interestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	record, err := h.matchSvc.RejectInterest(c.Request.Context(), userID, req.TargetUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "interest rejected", gin.H{"record": record})
}

// CancelInterest 撤回自己的意向
// POST /api/v1/interests/cancel
func (h *MatchHandler) CancelInterest(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	var req interestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := h.matchSvc.CancelInterest(c.Request.Context(), userID, req.TargetUserID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "interest canceled", nil)
}

// ListInterests 获取收到或发出的意向
// GET /api/v1/interests?direction=incoming&status=pending&limit=20&offset=0
func (h *MatchHandler) ListInterests(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := h.relSvc.ListInterests(c.Request.Context(), userID, c.Query("direction"), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"interests": records})
}
