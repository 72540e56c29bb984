package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构，code 为 0 表示成功，失败时与 HTTP 状态码一致
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Message: "success", Data: data})
}

// SuccessWithMessage 成功响应，message 说明本次操作的结果
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Message: message, Data: data})
}

// ErrorResponse 写入错误响应并终止后续 handler
func ErrorResponse(c *gin.Context, httpStatus int, message string) {
	if message == "" {
		message = http.StatusText(httpStatus)
	}
	c.AbortWithStatusJSON(httpStatus, Response{Code: httpStatus, Message: message})
}

func BadRequest(c *gin.Context, message string) { ErrorResponse(c, http.StatusBadRequest, message) }

func Unauthorized(c *gin.Context, message string) { ErrorResponse(c, http.StatusUnauthorized, message) }

func Forbidden(c *gin.Context, message string) { ErrorResponse(c, http.StatusForbidden, message) }

func NotFound(c *gin.Context, message string) { ErrorResponse(c, http.StatusNotFound, message) }

func Conflict(c *gin.Context, message string) { ErrorResponse(c, http.StatusConflict, message) }

func InternalServerError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, message)
}

// ServiceUnavailable 功能开关关闭或依赖不可用，客户端可稍后重试
func ServiceUnavailable(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusServiceUnavailable, message)
}
