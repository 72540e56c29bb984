package handler

import (
	"strconv"

	"dinq_match/middleware"
	"dinq_match/model"
	"dinq_match/service"
	"dinq_match/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	notifSvc    *service.NotificationService
	deliverySvc *service.DeliveryService
}

func NewNotificationHandler(notifSvc *service.NotificationService, deliverySvc *service.DeliveryService) *NotificationHandler {
	return &NotificationHandler{notifSvc: notifSvc, deliverySvc: deliverySvc}
}

// GetNotifications 获取当前用户的通知事件
// GET /api/v1/notifications?status=&limit=&offset=
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	// 分页参数
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := c.Query("status")
	if status != "" && status != model.EventPending && status != model.EventSent && status != model.EventFailed {
		utils.BadRequest(c, "invalid status")
		return
	}

	events, err := h.notifSvc.GetNotifications(c.Request.Context(), userID, status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"notifications": events})
}

// GetNotification 获取单条通知事件（仅限本人）
// GET /api/v1/notifications/:id
func (h *NotificationHandler) GetNotification(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "invalid notification id")
		return
	}

	event, err := h.notifSvc.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	// 不泄露他人通知是否存在
	if event.TargetProfileID != userID {
		respondError(c, service.ErrEventNotFound)
		return
	}

	utils.SuccessResponse(c, event)
}

// Enqueue 内部服务入队通知（论坛回复、新消息、订阅等）
// POST /api/internal/notifications/enqueue
func (h *NotificationHandler) Enqueue(c *gin.Context) {
	var req struct {
		TargetProfileID uuid.UUID              `json:"target_profile_id" binding:"required"`
		TemplateKind    string                 `json:"template_kind" binding:"required"`
		Payload         map[string]interface{} `json:"payload"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	event, err := h.notifSvc.Enqueue(c.Request.Context(), req.TargetProfileID, req.TemplateKind, req.Payload)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"event_id": event.ID, "status": event.Status})
}

// RunDeliveryBatch 立即执行一次投递批处理（供外部调度器调用）
// POST /api/internal/delivery/run
func (h *NotificationHandler) RunDeliveryBatch(c *gin.Context) {
	result, err := h.deliverySvc.RunBatch(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}
