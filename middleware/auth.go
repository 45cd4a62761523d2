package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/helper"
	"github.com/gin-gonic/gin"
)

func bearerToken(c *gin.Context) string {
	key := c.Request.Header.Get("Authorization")
	key = strings.TrimPrefix(key, "Bearer ")
	key = strings.TrimPrefix(key, "sk-")
	return strings.TrimSpace(key)
}

func tokenEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// TokenAuth checks the relay key against RELAY_API_KEYS. With no keys
// configured the relay is open.
func TokenAuth() func(c *gin.Context) {
	return func(c *gin.Context) {
		keys := helper.SplitCommaList(config.RelayAPIKeys)
		if len(keys) == 0 {
			c.Next()
			return
		}
		key := bearerToken(c)
		for _, allowed := range keys {
			if tokenEqual(key, strings.TrimPrefix(allowed, "sk-")) {
				c.Next()
				return
			}
		}
		abortWithMessage(c, http.StatusUnauthorized, "invalid relay api key")
	}
}

// AdminAuth guards the channel API with ADMIN_TOKEN. Without a token the API
// is disabled.
func AdminAuth() func(c *gin.Context) {
	return func(c *gin.Context) {
		if config.AdminToken == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "admin api is disabled, set ADMIN_TOKEN to enable it",
			})
			c.Abort()
			return
		}
		token := strings.TrimPrefix(c.Request.Header.Get("Authorization"), "Bearer ")
		if !tokenEqual(token, config.AdminToken) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Not authorized for this operation, admin token is invalid",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
