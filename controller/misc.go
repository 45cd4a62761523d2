package controller

import (
	"net/http"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/relay/helper"
	"github.com/gin-gonic/gin"
)

func GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data": gin.H{
			"version":                        common.Version,
			"start_time":                     common.StartTime,
			"hosted_vllm_clean_tool_schemas": helper.HostedVLLMCleanDefault(),
			"hosted_vllm_api_base":           config.HostedVLLMAPIBase,
			"memory_cache_enabled":           config.MemoryCacheEnabled,
			"redis_enabled":                  common.RedisEnabled,
			"retry_times":                    config.RetryTimes,
			"metric_enabled":                 config.EnableMetric,
		},
	})
}
