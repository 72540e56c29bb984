package handler

import (
	"dinq_match/service"
	"dinq_match/utils"

	"github.com/gin-gonic/gin"
)

type NotificationTemplateHandler struct {
	templateSvc *service.TemplateService
}

func NewNotificationTemplateHandler(templateSvc *service.TemplateService) *NotificationTemplateHandler {
	return &NotificationTemplateHandler{
		templateSvc: templateSvc,
	}
}

// ListTemplates 获取所有通知模板（内置 + 覆盖）
// GET /api/admin/notification-templates
func (h *NotificationTemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.templateSvc.ListTemplates()
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"templates": templates})
}

// UpsertTemplate 创建或更新覆盖模板
// POST /api/admin/notification-templates/:type
func (h *NotificationTemplateHandler) UpsertTemplate(c *gin.Context) {
	var req struct {
		Title           string  `json:"title" binding:"required"`
		ContentTemplate *string `json:"content_template"`
		IsActive        *bool   `json:"is_active"`
		Description     *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "invalid request")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	template, err := h.templateSvc.UpsertTemplate(c.Param("type"), req.Title, req.ContentTemplate, isActive, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"template": template})
}

// DeleteTemplate 删除覆盖模板，恢复内置模板
// DELETE /api/admin/notification-templates/:type
func (h *NotificationTemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.templateSvc.DeleteTemplate(c.Param("type")); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "template override deleted", nil)
}
