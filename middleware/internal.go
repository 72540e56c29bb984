package middleware

import (
	"crypto/subtle"

	"dinq_match/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InternalKeyMiddleware 内部服务调用鉴权（X-Internal-Key），未配置密钥时拒绝所有请求
func InternalKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Internal-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			utils.Unauthorized(c, "invalid internal key")
			return
		}
		c.Next()
	}
}

// AdminMiddleware 管理员鉴权，需在 AuthMiddleware 之后使用
func AdminMiddleware(adminIDs []string) gin.HandlerFunc {
	admins := make(map[uuid.UUID]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if parsed, err := uuid.Parse(id); err == nil {
			admins[parsed] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			utils.Unauthorized(c, "unauthorized")
			return
		}

		if _, ok := admins[userID]; !ok {
			utils.Forbidden(c, "admin only")
			return
		}

		c.Next()
	}
}
