package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/ezlinkai/vllm-relay/common/helper"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/relay/util"
	"github.com/gin-gonic/gin"
)

// RelayPanicRecover turns a panic in the relay chain into an OpenAI style 500
// that names the request and the channel being used.
func RelayPanicRecover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				ctx := c.Request.Context()
				logger.Errorf(ctx, "panic on channel #%d (%s): %v", c.GetInt(util.CtxChannelId), c.GetString(util.CtxOriginModel), err)
				logger.Errorf(ctx, "stacktrace from panic: %s", string(debug.Stack()))
				message := fmt.Sprintf("Panic detected, error: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"message": helper.MessageWithRequestId(message, c.GetString(logger.RequestIdKey)),
						"type":    "vllm_relay_panic",
						"code":    "internal_panic",
					},
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
