package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/model"
	"github.com/ezlinkai/vllm-relay/relay/constant"
	"github.com/ezlinkai/vllm-relay/relay/util"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const defaultGroup = "default"

type ModelRequest struct {
	Model string `json:"model,omitempty" form:"model"`
}

// Distribute picks the channel for the requested model. A provider prefix
// ("hosted_vllm/", "openai/") is ignored for the lookup.
func Distribute() func(c *gin.Context) {
	return func(c *gin.Context) {
		group := c.GetHeader("X-Channel-Group")
		if group == "" {
			group = defaultGroup
		}
		c.Set(util.CtxGroup, group)

		var modelRequest ModelRequest
		if err := common.UnmarshalBodyReusable(c, &modelRequest); err != nil {
			logger.Warnf(c.Request.Context(), "invalid request body: %s", err.Error())
			abortWithMessage(c, http.StatusBadRequest, "Invalid request")
			return
		}
		if modelRequest.Model == "" {
			abortWithMessage(c, http.StatusBadRequest, "model is required")
			return
		}

		var channel *model.Channel
		var err error
		if specific := c.GetHeader("X-Channel-Id"); specific != "" {
			channel, err = specificChannel(specific)
			if err != nil {
				abortWithMessage(c, http.StatusBadRequest, err.Error())
				return
			}
			c.Set("specific_channel_id", channel.Id)
		} else {
			channel, err = model.CacheGetRandomSatisfiedChannel(group, LookupModel(modelRequest.Model), nil)
			if err != nil {
				logger.Warnf(c.Request.Context(), "channel selection failed: %s", err.Error())
				abortWithMessage(c, http.StatusServiceUnavailable,
					fmt.Sprintf("There are no channels available for model %s under the current group %s", modelRequest.Model, group))
				return
			}
		}
		SetupContextForSelectedChannel(c, channel, modelRequest.Model)
		c.Next()
	}
}

// LookupModel is the model name channels are indexed by.
func LookupModel(requested string) string {
	_, name := constant.SplitProviderPrefix(requested)
	return name
}

func specificChannel(id string) (*model.Channel, error) {
	channelId, err := strconv.Atoi(id)
	if err != nil {
		return nil, errors.New("Invalid channel Id")
	}
	channel, err := model.CacheGetChannel(channelId)
	if err != nil {
		return nil, errors.New("Invalid channel Id")
	}
	if channel.Status != common.ChannelStatusEnabled {
		return nil, errors.New("The channel has been disabled")
	}
	return channel, nil
}

func SetupContextForSelectedChannel(c *gin.Context, channel *model.Channel, modelName string) {
	c.Set(util.CtxChannelType, channel.Type)
	c.Set(util.CtxChannelId, channel.Id)
	c.Set(util.CtxChannelName, channel.Name)
	c.Set(util.CtxModelMapping, channel.GetModelMapping())
	c.Set(util.CtxOriginModel, modelName) // for retry
	c.Set(util.CtxBaseURL, channel.GetBaseURL())
	c.Request.Header.Set("Authorization", fmt.Sprintf("Bearer %s", channel.Key))
	cfg, err := channel.LoadConfig()
	if err != nil {
		logger.SysError(err.Error())
	}
	c.Set(util.CtxConfig, cfg)
	logger.Debugf(c.Request.Context(), "channel:%d;requestModel:%s", channel.Id, modelName)
}
