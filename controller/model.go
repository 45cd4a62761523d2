package controller

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/ezlinkai/vllm-relay/common"
	dbmodel "github.com/ezlinkai/vllm-relay/model"
	"github.com/ezlinkai/vllm-relay/relay/constant"
	"github.com/ezlinkai/vllm-relay/relay/helper"
	relaymodel "github.com/ezlinkai/vllm-relay/relay/model"
	"github.com/ezlinkai/vllm-relay/relay/util"
	"github.com/gin-gonic/gin"
)

// https://platform.openai.com/docs/api-reference/models/list

type OpenAIModels struct {
	Id      string  `json:"id"`
	Object  string  `json:"object"`
	Created int     `json:"created"`
	OwnedBy string  `json:"owned_by"`
	Root    string  `json:"root"`
	Parent  *string `json:"parent"`
}

const modelCreated = 1626777600

func newOpenAIModel(modelName string, ownedBy string) OpenAIModels {
	return OpenAIModels{
		Id:      modelName,
		Object:  "model",
		Created: modelCreated,
		OwnedBy: ownedBy,
		Root:    modelName,
	}
}

func requestGroup(c *gin.Context) string {
	group := c.GetHeader("X-Channel-Group")
	if group == "" {
		group = "default"
	}
	return group
}

// ListModels lists what the enabled channels serve, not a static catalogue.
func ListModels(c *gin.Context) {
	models, err := dbmodel.EnabledModels(requestGroup(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": relaymodel.Error{Message: err.Error(), Type: "vllm_relay_error"},
		})
		return
	}
	data := make([]OpenAIModels, 0, len(models))
	for _, modelName := range models {
		data = append(data, newOpenAIModel(modelName, "vllm-relay"))
	}
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   data,
	})
}

func RetrieveModel(c *gin.Context) {
	modelId := c.Param("model")
	models, err := dbmodel.EnabledModels(requestGroup(c))
	if err == nil {
		for _, modelName := range models {
			if modelName == modelId {
				c.JSON(http.StatusOK, newOpenAIModel(modelName, "vllm-relay"))
				return
			}
		}
	}
	c.JSON(http.StatusNotFound, gin.H{
		"error": relaymodel.Error{
			Message: fmt.Sprintf("The model '%s' does not exist", modelId),
			Type:    "invalid_request_error",
			Param:   "model",
			Code:    "model_not_found",
		},
	})
}

type ChannelOption struct {
	Key   int    `json:"key"`
	Text  string `json:"text"`
	Value int    `json:"value"`
}

func ListTypes(c *gin.Context) {
	options := make([]ChannelOption, 0, len(common.ChannelTypeNames))
	for channelType, name := range common.ChannelTypeNames {
		options = append(options, ChannelOption{Key: channelType, Text: name, Value: channelType})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Key < options[j].Key })
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    options,
	})
}

// DashboardListModels reports the built-in model list of each request path.
func DashboardListModels(c *gin.Context) {
	apiType2Models := make(map[string][]string)
	for i := 0; i < constant.APITypeDummy; i++ {
		adaptor := helper.GetAdaptor(i, &util.RelayMeta{})
		if adaptor == nil {
			continue
		}
		apiType2Models[adaptor.GetChannelName()] = adaptor.GetModelList()
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    apiType2Models,
	})
}
