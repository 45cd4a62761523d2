package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/relay/channel/openai"
	"github.com/ezlinkai/vllm-relay/relay/constant"
	"github.com/ezlinkai/vllm-relay/relay/helper"
	"github.com/ezlinkai/vllm-relay/relay/model"
	"github.com/ezlinkai/vllm-relay/relay/util"
	"github.com/gin-gonic/gin"
)

func RelayTextHelper(c *gin.Context) *model.ErrorWithStatusCode {
	ctx := c.Request.Context()
	startTime := time.Now()
	c.Set("request_start_time", startTime)

	meta := util.GetRelayMeta(c)
	// get & validate textRequest
	textRequest, err := getAndValidateTextRequest(c, meta.Mode)
	if err != nil {
		logger.Errorf(ctx, "getAndValidateTextRequest failed: %s", err.Error())
		return openai.ErrorWrapper(err, "invalid_text_request", http.StatusBadRequest)
	}
	meta.IsStream = textRequest.Stream

	// provider prefix picks the request path, then the channel's mapping applies
	meta.OriginModelName = textRequest.Model
	var modelName string
	meta.APIType, modelName = constant.ResolveAPIType(meta.ChannelType, textRequest.Model)
	textRequest.Model, _ = util.GetMappedModelName(modelName, meta.ModelMapping)
	meta.ActualModelName = textRequest.Model
	meta.PromptTokens = getPromptTokens(textRequest, meta.Mode)

	adaptor := helper.GetAdaptor(meta.APIType, meta)
	if adaptor == nil {
		return openai.ErrorWrapper(fmt.Errorf("invalid api type: %d", meta.APIType), "invalid_api_type", http.StatusBadRequest)
	}
	adaptor.Init(meta)

	convertedRequest, err := adaptor.ConvertRequest(c, meta.Mode, textRequest)
	if err != nil {
		return openai.ErrorWrapper(err, "convert_request_failed", http.StatusInternalServerError)
	}
	jsonData, err := json.Marshal(convertedRequest)
	if err != nil {
		return openai.ErrorWrapper(err, "json_marshal_failed", http.StatusInternalServerError)
	}
	logger.Debugf(ctx, "converted request for %s: \n%s", adaptor.GetChannelName(), string(jsonData))
	var requestBody io.Reader = bytes.NewBuffer(jsonData)

	// do request
	resp, err := adaptor.DoRequest(c, meta, requestBody)
	if err != nil {
		logger.Errorf(ctx, "DoRequest failed: %s", err.Error())
		return openai.ErrorWrapper(err, "do_request_failed", http.StatusInternalServerError)
	}
	if isErrorResponse(resp, meta) {
		relayErr := util.RelayErrorHandler(resp)
		if relayErr.StatusCode == http.StatusOK {
			relayErr.StatusCode = http.StatusBadGateway
		}
		return relayErr
	}

	responseStartTime := time.Now()
	usage, respErr := adaptor.DoResponse(c, resp, meta)
	if respErr != nil {
		logger.Errorf(ctx, "respErr is not nil: %s", respErr.String())
		return respErr
	}

	duration := math.Round(time.Since(startTime).Seconds()*1000) / 1000
	var firstWordLatency float64
	if meta.IsStream {
		if latency, ok := c.Get("first_word_latency"); ok {
			if latencyFloat, ok := latency.(float64); ok {
				firstWordLatency = math.Round(latencyFloat*1000) / 1000
			}
		} else {
			firstWordLatency = math.Round(time.Since(responseStartTime).Seconds()*1000) / 1000
		}
	}
	if usage == nil {
		usage = &model.Usage{}
	}
	logger.Infof(ctx, "relayed model=%s channel=%d provider=%s stream=%t prompt_tokens=%d completion_tokens=%d duration=%.3fs first_word=%.3fs",
		meta.ActualModelName, meta.ChannelId, adaptor.GetChannelName(), meta.IsStream,
		usage.PromptTokens, usage.CompletionTokens, duration, firstWordLatency)
	return nil
}

// isErrorResponse treats a JSON answer to a streaming request as an error too;
// vLLM replies that way when it rejects a request before streaming starts.
func isErrorResponse(resp *http.Response, meta *util.RelayMeta) bool {
	if resp.StatusCode != http.StatusOK {
		return true
	}
	return meta.IsStream && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
}
