package middleware

import (
	"net/http"

	"github.com/ezlinkai/vllm-relay/common/helper"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/gin-gonic/gin"
)

func errorType(statusCode int) string {
	switch {
	case statusCode == http.StatusUnauthorized:
		return "authentication_error"
	case statusCode == http.StatusServiceUnavailable:
		return "service_unavailable"
	case statusCode >= 400 && statusCode < 500:
		return "invalid_request_error"
	default:
		return "api_error"
	}
}

// abortWithMessage answers in the OpenAI error shape so SDK clients surface
// the message.
func abortWithMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error": gin.H{
			"message": helper.MessageWithRequestId(message, c.GetString(logger.RequestIdKey)),
			"type":    errorType(statusCode),
		},
	})
	c.Abort()
	logger.Warnf(c.Request.Context(), "request rejected with %d: %s", statusCode, message)
}
