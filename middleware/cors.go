package middleware

import (
	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/helper"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/gin-gonic/gin"
	cors "github.com/rs/cors/wrapper/gin"
)

// CORS allows the origins in CORS_ALLOWED_ORIGINS, or any origin when unset.
// The request id header is exposed so browser clients can quote it.
func CORS() gin.HandlerFunc {
	origins := helper.SplitCommaList(config.CorsAllowedOrigins)
	options := cors.Options{
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{logger.RequestIdKey},
	}
	if len(origins) == 0 {
		options.AllowOriginFunc = func(origin string) bool {
			return true
		}
	} else {
		options.AllowedOrigins = origins
	}
	return cors.New(options)
}
