package handler

import (
	"errors"

	"dinq_match/service"
	"dinq_match/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError 按错误类型返回对应的 HTTP 状态
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrUnknownTemplate):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrRelationshipNotFound),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrEventNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, service.ErrPairRejected), errors.Is(err, service.ErrBatchInProgress):
		utils.Conflict(c, err.Error())
	case errors.Is(err, service.ErrFeatureDisabled):
		utils.ServiceUnavailable(c, err.Error())
	default:
		utils.Logger().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		// 不向用户暴露内部错误细节
		utils.InternalServerError(c, "please try again")
	}
}
