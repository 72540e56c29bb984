package handler

import (
	"dinq_match/service"
	"dinq_match/utils"

	"github.com/gin-gonic/gin"
)

type SystemSettingsHandler struct {
	sysSvc *service.SystemSettingsService
}

func NewSystemSettingsHandler(sysSvc *service.SystemSettingsService) *SystemSettingsHandler {
	return &SystemSettingsHandler{sysSvc: sysSvc}
}

// GetSystemSettings 当前生效的功能开关
// GET /api/admin/settings
func (h *SystemSettingsHandler) GetSystemSettings(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{"settings": h.sysSvc.GetAllSettings()})
}

// UpdateSystemSetting 打开或关闭一个功能开关
// POST /api/admin/settings/:key  {"enabled": false}
func (h *SystemSettingsHandler) UpdateSystemSetting(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "enabled must be true or false")
		return
	}

	key := c.Param("key")
	if err := h.sysSvc.SetFeatureEnabled(key, *req.Enabled); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"key": key, "enabled": *req.Enabled})
}

// ReloadSystemSettings 多 Pod 部署时其他实例修改开关后重新加载
// POST /api/admin/settings/reload
func (h *SystemSettingsHandler) ReloadSystemSettings(c *gin.Context) {
	if err := h.sysSvc.LoadSettings(); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"settings": h.sysSvc.GetAllSettings()})
}
