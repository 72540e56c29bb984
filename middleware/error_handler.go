package middleware

import (
	"dinq_match/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware 兜底处理 panic 以及 handler 通过 c.Error 挂上的错误
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			utils.Logger().Error("panic recovered",
				zap.Any("panic", rec),
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Stack("stack"))
			if !c.Writer.Written() {
				utils.InternalServerError(c, "internal server error")
			}
			c.Abort()
		}()

		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}
		utils.Logger().Error("request error", zap.Error(last.Err), zap.String("path", c.FullPath()))
		if !c.Writer.Written() {
			// 内部错误细节只写日志
			utils.InternalServerError(c, "internal server error")
		}
	}
}
