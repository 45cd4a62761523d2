package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/middleware"
	"github.com/ezlinkai/vllm-relay/model"
	"github.com/ezlinkai/vllm-relay/monitor"
	"github.com/ezlinkai/vllm-relay/relay/channel/openai"
	"github.com/ezlinkai/vllm-relay/relay/helper"
	"github.com/ezlinkai/vllm-relay/router"
	"github.com/gin-gonic/gin"
)

// monitorGoroutines logs goroutine growth, which usually means stuck streams.
func monitorGoroutines() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		count := runtime.NumGoroutine()
		switch {
		case count > 5000:
			logger.SysError(fmt.Sprintf("high goroutine count detected: %d", count))
		case count > 2000:
			logger.SysLog(fmt.Sprintf("goroutine count elevated: %d", count))
		case config.DebugEnabled:
			logger.SysLog(fmt.Sprintf("goroutine count: %d", count))
		}
	}
}

func main() {
	common.Init()
	logger.SetupLogger()
	logger.SysLog(fmt.Sprintf("%s %s started", config.SystemName, common.Version))
	if os.Getenv("GIN_MODE") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.DebugEnabled {
		logger.SysLog("running in debug mode")
	}

	var err error
	model.DB, err = model.InitDB("SQL_DSN")
	if err != nil {
		logger.FatalLog("failed to initialize database: " + err.Error())
	}
	defer func() {
		if err := model.CloseDB(); err != nil {
			logger.FatalLog("failed to close database: " + err.Error())
		}
	}()
	if config.ChannelsFile != "" {
		if err = model.SeedChannelsFromFile(config.ChannelsFile); err != nil {
			logger.FatalLog("failed to seed channels: " + err.Error())
		}
	}

	if err = common.InitRedisClient(); err != nil {
		logger.FatalLog("failed to initialize Redis: " + err.Error())
	}
	if common.RedisEnabled {
		config.MemoryCacheEnabled = true
	}
	if config.MemoryCacheEnabled {
		logger.SysLog(fmt.Sprintf("memory cache enabled, sync frequency: %d seconds", config.SyncFrequency))
		model.InitChannelCache()
		go model.SyncChannelCache(config.SyncFrequency)
	}

	logger.SysLog(fmt.Sprintf("hosted_vllm tool schema cleaning default: %t", helper.HostedVLLMCleanDefault()))
	openai.InitTokenEncoders()
	if config.EnableMetric {
		logger.SysLog("metric enabled, will disable channel if too much request failed")
		monitor.Start()
	}
	go monitorGoroutines()

	server := gin.New()
	server.Use(gin.Recovery())
	// gzip on the whole server breaks SSE; the admin group enables it on its own.
	server.Use(middleware.RequestId())
	middleware.SetUpLogger(server)

	router.SetRouter(server)
	var port = os.Getenv("PORT")
	if port == "" {
		port = strconv.Itoa(*common.Port)
	}
	if err = server.Run(":" + port); err != nil {
		logger.FatalLog("failed to start HTTP server: " + err.Error())
	}
}
