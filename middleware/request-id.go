package middleware

import (
	"context"

	"github.com/ezlinkai/vllm-relay/common/helper"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/gin-gonic/gin"
)

const maxRequestIdLength = 128

// RequestId propagates a caller supplied X-Request-ID so relay logs line up
// with the client's, and mints one otherwise.
func RequestId() func(c *gin.Context) {
	return func(c *gin.Context) {
		id := c.GetHeader(logger.RequestIdKey)
		if id == "" || len(id) > maxRequestIdLength {
			id = helper.GenRequestID()
		}
		c.Set(logger.RequestIdKey, id)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIdKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Request.Header.Set(logger.RequestIdKey, id)
		c.Header(logger.RequestIdKey, id)
		c.Next()
	}
}
