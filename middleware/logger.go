package middleware

import (
	"encoding/json"
	"time"

	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/relay/util"
	"github.com/gin-gonic/gin"
)

// AccessLogEntry is one JSON access log line. The channel fields are empty
// for requests that never reached Distribute.
type AccessLogEntry struct {
	Ts             string  `json:"ts"`
	Level          string  `json:"level"`
	RequestId      string  `json:"request_id"`
	Status         int     `json:"status"`
	LatencyMs      int64   `json:"latency_ms"`
	ClientIP       string  `json:"client_ip"`
	Method         string  `json:"method"`
	Path           string  `json:"path"`
	Group          string  `json:"group,omitempty"`
	Model          string  `json:"model,omitempty"`
	ChannelId      int     `json:"channel_id,omitempty"`
	ChannelName    string  `json:"channel_name,omitempty"`
	Attempts       int     `json:"attempts,omitempty"`
	FirstWordDelay float64 `json:"first_word_latency_s,omitempty"`
	Service        string  `json:"service"`
	Instance       string  `json:"instance"`
}

func keyString(keys map[string]any, key string) string {
	v, _ := keys[key].(string)
	return v
}

func keyInt(keys map[string]any, key string) int {
	v, _ := keys[key].(int)
	return v
}

func newAccessLogEntry(param gin.LogFormatterParams) AccessLogEntry {
	level := "info"
	if param.StatusCode >= 500 {
		level = "error"
	} else if param.StatusCode >= 400 {
		level = "warn"
	}
	firstWord, _ := param.Keys["first_word_latency"].(float64)
	return AccessLogEntry{
		Ts:             param.TimeStamp.Format(time.RFC3339Nano),
		Level:          level,
		RequestId:      keyString(param.Keys, logger.RequestIdKey),
		Status:         param.StatusCode,
		LatencyMs:      param.Latency.Milliseconds(),
		ClientIP:       param.ClientIP,
		Method:         param.Method,
		Path:           param.Path,
		Group:          keyString(param.Keys, util.CtxGroup),
		Model:          keyString(param.Keys, util.CtxOriginModel),
		ChannelId:      keyInt(param.Keys, util.CtxChannelId),
		ChannelName:    keyString(param.Keys, util.CtxChannelName),
		Attempts:       keyInt(param.Keys, util.CtxRelayAttempts),
		FirstWordDelay: firstWord,
		Service:        config.ServiceName,
		Instance:       config.InstanceId,
	}
}

// SetUpLogger logs failed requests, and every request in debug mode.
func SetUpLogger(server *gin.Engine) {
	server.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		if param.StatusCode == 200 && !config.DebugEnabled {
			return ""
		}
		jsonBytes, err := json.Marshal(newAccessLogEntry(param))
		if err != nil {
			return `{"level":"error","msg":"access log marshal error"}` + "\n"
		}
		return string(jsonBytes) + "\n"
	}))
}
