package util

import (
	"strings"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/model"
	"github.com/ezlinkai/vllm-relay/relay/constant"
	"github.com/gin-gonic/gin"
)

// Context keys written by the distributor middleware and the relay controller.
const (
	CtxChannelType   = "channel"
	CtxChannelId     = "channel_id"
	CtxChannelName   = "channel_name"
	CtxModelMapping  = "model_mapping"
	CtxBaseURL       = "base_url"
	CtxOriginModel   = "original_model"
	CtxGroup         = "group"
	CtxConfig        = "Config"
	CtxRelayAttempts = "relay_attempts"
)

type RelayMeta struct {
	Mode        int
	ChannelType int
	ChannelId   int
	ChannelName string
	Group       string
	// ModelMapping maps the requested model to the model the backend serves
	ModelMapping map[string]string
	// BaseURL is the proxy url set in the channel config
	BaseURL  string
	APIKey   string
	APIType  int
	Config   model.ChannelConfig
	IsStream bool
	// OriginModelName is the model name from the raw user request
	OriginModelName string
	// ActualModelName is the model name after prefix removal and mapping
	ActualModelName string
	RequestURLPath  string
	PromptTokens    int // only for DoResponse
}

func GetRelayMeta(c *gin.Context) *RelayMeta {
	meta := RelayMeta{
		Mode:            constant.Path2RelayMode(c.Request.URL.Path),
		ChannelType:     c.GetInt(CtxChannelType),
		ChannelId:       c.GetInt(CtxChannelId),
		ChannelName:     c.GetString(CtxChannelName),
		Group:           c.GetString(CtxGroup),
		ModelMapping:    c.GetStringMapString(CtxModelMapping),
		BaseURL:         c.GetString(CtxBaseURL),
		APIKey:          strings.TrimPrefix(c.Request.Header.Get("Authorization"), "Bearer "),
		RequestURLPath:  c.Request.URL.String(),
		OriginModelName: c.GetString(CtxOriginModel),
	}
	cfg, ok := c.Get(CtxConfig)
	if ok {
		meta.Config, _ = cfg.(model.ChannelConfig)
	}
	if meta.BaseURL == "" {
		meta.BaseURL = DefaultBaseURL(meta.ChannelType)
	}
	meta.BaseURL = strings.TrimSuffix(meta.BaseURL, "/")
	meta.APIType = constant.ChannelType2APIType(meta.ChannelType)
	return &meta
}

func DefaultBaseURL(channelType int) string {
	if channelType == common.ChannelTypeHostedVLLM {
		return config.HostedVLLMAPIBase
	}
	if channelType >= 0 && channelType < len(common.ChannelBaseURLs) {
		return common.ChannelBaseURLs[channelType]
	}
	return ""
}
