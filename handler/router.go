package handler

import (
	"dinq_match/middleware"
	"dinq_match/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Match          *MatchHandler
	Notification   *NotificationHandler
	Template       *NotificationTemplateHandler
	Settings       *SystemSettingsHandler
	Realtime       *RealtimeHandler // 未配置 Redis 时可为空
	InternalAPIKey string
	AdminUserIDs   []string
}

// NewRouter 注册所有路由
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandlerMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket 连接（使用 token 认证，不需要 HTTP 中间件）
	if deps.Realtime != nil {
		r.GET("/ws", deps.Realtime.HandleWebSocket)
	}

	// HTTP API 路由组（需要认证）
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware())
	{
		// 匹配
		api.POST("/matches/generate", deps.Match.GenerateMatches)
		api.GET("/matches", deps.Match.GetMatches)

		// 意向
		api.GET("/interests", deps.Match.ListInterests)
		api.POST("/interests", deps.Match.ProposeInterest)
		api.POST("/interests/reject", deps.Match.RejectInterest)
		api.POST("/interests/cancel", deps.Match.CancelInterest)

		// 通知
		api.GET("/notifications", deps.Notification.GetNotifications)
		api.GET("/notifications/:id", deps.Notification.GetNotification)
	}

	// 内部服务路由组（论坛、消息、计费、调度器）
	internal := r.Group("/api/internal")
	internal.Use(middleware.InternalKeyMiddleware(deps.InternalAPIKey))
	{
		internal.POST("/notifications/enqueue", deps.Notification.Enqueue)
		internal.POST("/delivery/run", deps.Notification.RunDeliveryBatch)
	}

	// 管理员 API 路由组（需要认证 + 管理员权限）
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware(deps.AdminUserIDs))
	{
		// 系统配置管理
		admin.GET("/settings", deps.Settings.GetSystemSettings)
		admin.POST("/settings/reload", deps.Settings.ReloadSystemSettings)
		admin.POST("/settings/:key", deps.Settings.UpdateSystemSetting)

		// 通知模板覆盖
		admin.GET("/notification-templates", deps.Template.ListTemplates)
		admin.POST("/notification-templates/:type", deps.Template.UpsertTemplate)
		admin.DELETE("/notification-templates/:type", deps.Template.DeleteTemplate)
	}

	return r
}
