package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-identity/internal/dto"
	"github.com/prperemyshlev/media-identity/internal/service"
	"go.uber.org/zap"
)

func respond(c *gin.Context, status int, data any, message string) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, dto.NewAPIResponse(status, data, message))
}

// respondError converts err into the failure envelope. Untyped errors are
// logged and reported as a generic internal error.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		logger.Error("unhandled error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			dto.NewAPIErrorResponse(http.StatusInternalServerError, service.MsgSomethingWentWrong))
		return
	}

	status := svcErr.Kind.StatusCode()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("kind", svcErr.Kind.String()),
			zap.Error(err),
		)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, dto.NewAPIErrorResponse(status, svcErr.Message))
}

func badRequest(c *gin.Context, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewAPIErrorResponse(http.StatusBadRequest, message))
}
