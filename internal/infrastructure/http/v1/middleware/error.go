package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/core/apperror"
	appctx "bizdesk/internal/core/context"
	"bizdesk/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		status, body := errorResponse(c, err)

		// Mark idempotency as failed with the exact response we return (best-effort).
		if key, store, ok := idempotencyFromGin(c); ok {
			if ferr := store.FailKey(c.Request.Context(), key, status, "application/json", body); ferr != nil {
				logger.Warn(c.Request.Context(), "failed to store idempotent error response",
					"idempotency_key", key,
					"error", ferr)
			}
		}

		c.JSON(status, body)
	}
}

func errorResponse(c *gin.Context, err error) (int, gin.H) {
	if appErr, ok := apperror.AsAppError(err); ok {
		if appErr.Err != nil {
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		}
		return appErr.HTTPStatus, gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		}
	}

	var ginErr *gin.Error
	if errors.As(err, &ginErr) && ginErr.IsType(gin.ErrorTypeBind) {
		return http.StatusBadRequest, gin.H{
			"code":    apperror.CodeInvalidInput,
			"message": ginErr.Error(),
			"details": nil,
		}
	}

	logger.Error(c.Request.Context(), "unhandled error",
		"error", err,
	)
	return http.StatusInternalServerError, gin.H{
		"code":    apperror.CodeInternal,
		"message": "Internal server error",
		"details": map[string]any{
			"request_id": appctx.GetRequestID(c.Request.Context()),
		},
	}
}
