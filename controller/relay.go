package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/middleware"
	dbmodel "github.com/ezlinkai/vllm-relay/model"
	"github.com/ezlinkai/vllm-relay/monitor"
	relayconstant "github.com/ezlinkai/vllm-relay/relay/constant"
	"github.com/ezlinkai/vllm-relay/relay/controller"
	"github.com/ezlinkai/vllm-relay/relay/model"
	"github.com/ezlinkai/vllm-relay/relay/util"
	"github.com/gin-gonic/gin"
)

// https://platform.openai.com/docs/api-reference/chat

func relayHelper(c *gin.Context, relayMode int) *model.ErrorWithStatusCode {
	switch relayMode {
	case relayconstant.RelayModeChatCompletions, relayconstant.RelayModeCompletions:
		return controller.RelayTextHelper(c)
	}
	return &model.ErrorWithStatusCode{
		StatusCode: http.StatusNotFound,
		Error: model.Error{
			Message: fmt.Sprintf("Invalid URL (%s %s)", c.Request.Method, c.Request.URL.Path),
			Type:    "invalid_request_error",
		},
	}
}

func Relay(c *gin.Context) {
	ctx := c.Request.Context()
	relayMode := relayconstant.Path2RelayMode(c.Request.URL.Path)
	if config.DebugEnabled {
		requestBody, _ := common.GetRequestBody(c)
		logger.Debugf(ctx, "request body: %s", string(requestBody))
	}
	channelId := c.GetInt(util.CtxChannelId)
	attempts := 1
	c.Set(util.CtxRelayAttempts, attempts)
	startTime := time.Now()
	bizErr := relayHelper(c, relayMode)
	if bizErr == nil {
		recordSuccess(channelId, startTime)
		return
	}
	channelName := c.GetString(util.CtxChannelName)
	group := c.GetString(util.CtxGroup)
	originalModel := c.GetString(util.CtxOriginModel)
	go processChannelRelayError(ctx, channelId, channelName, bizErr)

	retryTimes := config.RetryTimes
	if !shouldRetry(c, bizErr.StatusCode) {
		logger.Errorf(ctx, "relay error happen, status code is %d, won't retry in this case", bizErr.StatusCode)
		retryTimes = 0
	}
	failedChannelIds := []int{channelId}
	for i := retryTimes; i > 0; i-- {
		channel, err := dbmodel.CacheGetRandomSatisfiedChannel(group, middleware.LookupModel(originalModel), failedChannelIds)
		if err != nil {
			logger.Errorf(ctx, "CacheGetRandomSatisfiedChannel failed: %s", err.Error())
			break
		}
		logger.Infof(ctx, "using channel #%d to retry (remain times %d)", channel.Id, i)
		middleware.SetupContextForSelectedChannel(c, channel, originalModel)
		requestBody, err := common.GetRequestBody(c)
		if err != nil {
			logger.Errorf(ctx, "GetRequestBody failed: %s", err.Error())
			break
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		attempts++
		c.Set(util.CtxRelayAttempts, attempts)
		startTime = time.Now()
		bizErr = relayHelper(c, relayMode)
		if bizErr == nil {
			recordSuccess(channel.Id, startTime)
			return
		}
		failedChannelIds = append(failedChannelIds, channel.Id)
		go processChannelRelayError(ctx, channel.Id, channel.Name, bizErr)
		if !shouldRetry(c, bizErr.StatusCode) {
			break
		}
	}
	// upstream errors go back as they came, including tool validation failures
	c.JSON(bizErr.StatusCode, gin.H{
		"error": bizErr.Error,
	})
}

// recordSuccess feeds the success window and stores the channel's latest
// response time in milliseconds.
func recordSuccess(channelId int, startTime time.Time) {
	monitor.Emit(channelId, true)
	channel := &dbmodel.Channel{Id: channelId}
	channel.UpdateResponseTime(time.Since(startTime).Milliseconds())
}

// shouldRetry only retries failures another channel could fix. Request
// validation errors (4xx) would fail the same way everywhere.
func shouldRetry(c *gin.Context, statusCode int) bool {
	if _, ok := c.Get("specific_channel_id"); ok {
		return false
	}
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode/100 == 5
}

func processChannelRelayError(ctx context.Context, channelId int, channelName string, err *model.ErrorWithStatusCode) {
	logger.Errorf(ctx, "relay error (channel #%d): %s", channelId, err.String())
	if util.ShouldDisableChannel(&err.Error, err.StatusCode) {
		monitor.DisableChannel(channelId, channelName, err.Message)
	} else {
		monitor.Emit(channelId, false)
	}
}

func RelayNotImplemented(c *gin.Context) {
	err := model.Error{
		Message: "API not implemented",
		Type:    "api_error",
		Param:   "",
		Code:    "api_not_implemented",
	}
	c.JSON(http.StatusNotImplemented, gin.H{
		"error": err,
	})
}

func RelayNotFound(c *gin.Context) {
	err := model.Error{
		Message: fmt.Sprintf("Invalid URL (%s %s)", c.Request.Method, c.Request.URL.Path),
		Type:    "invalid_request_error",
		Param:   "",
		Code:    "",
	}
	c.JSON(http.StatusNotFound, gin.H{
		"error": err,
	})
}
