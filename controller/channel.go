package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/helper"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/model"
	"github.com/ezlinkai/vllm-relay/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
)

var validate = validator.New()

func fail(c *gin.Context, err error) {
	c.JSON(http.StatusOK, gin.H{
		"success": false,
		"message": err.Error(),
	})
}

// validateChannel checks the struct tags and that config and model_mapping
// hold valid JSON.
func validateChannel(channel *model.Channel) error {
	if err := validate.Struct(channel); err != nil {
		return err
	}
	if _, ok := common.ChannelTypeNames[channel.Type]; !ok {
		return errors.Errorf("unknown channel type %d", channel.Type)
	}
	if _, err := channel.LoadConfig(); err != nil {
		return err
	}
	if channel.ModelMapping != nil && *channel.ModelMapping != "" {
		var mapping map[string]string
		if err := json.Unmarshal([]byte(*channel.ModelMapping), &mapping); err != nil {
			return errors.Wrap(err, "model_mapping must be a JSON object of strings")
		}
	}
	return nil
}

// refreshChannelCache runs after every channel write. Proxy clients are
// rebuilt too since the write may have changed a channel's proxy.
func refreshChannelCache() {
	if config.MemoryCacheEnabled {
		model.InitChannelCache()
	}
	service.ResetProxyClientCache()
}

func GetAllChannels(c *gin.Context) {
	channels, err := model.GetAllChannels()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    channels,
	})
}

func GetChannel(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	channel, err := model.GetChannelById(id, false)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    channel,
	})
}

// AddChannel creates one channel per key when key lists several, separated
// by commas or newlines.
func AddChannel(c *gin.Context) {
	var channel model.Channel
	if err := c.ShouldBindJSON(&channel); err != nil {
		fail(c, err)
		return
	}
	channel.Id = 0
	if channel.Status == common.ChannelStatusUnknown {
		channel.Status = common.ChannelStatusEnabled
	}
	channel.Models = strings.Join(helper.SplitCommaList(channel.Models), ",")
	if err := validateChannel(&channel); err != nil {
		fail(c, err)
		return
	}

	keys := helper.SplitCommaList(strings.ReplaceAll(channel.Key, "\n", ","))
	if len(keys) == 0 {
		keys = []string{""}
	}
	created := make([]int, 0, len(keys))
	for i, key := range keys {
		item := channel
		item.Key = key
		if len(keys) > 1 {
			item.Name = fmt.Sprintf("%s-%d", channel.Name, i+1)
		}
		if err := item.Insert(); err != nil {
			fail(c, err)
			return
		}
		created = append(created, item.Id)
	}
	refreshChannelCache()
	logger.SysLog(fmt.Sprintf("channels created: %v", created))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    created,
	})
}

// clearableFields are applied whenever the body names them, since their zero
// value is a meaningful update.
var clearableFields = []string{"auto_disabled", "base_url", "config", "model_mapping"}

func applyClearableFields(channel *model.Channel, update *model.Channel, present map[string]json.RawMessage) {
	for _, field := range clearableFields {
		if _, ok := present[field]; !ok {
			continue
		}
		switch field {
		case "auto_disabled":
			channel.AutoDisabled = update.AutoDisabled
		case "base_url":
			channel.BaseURL = update.BaseURL
		case "config":
			channel.Config = update.Config
		case "model_mapping":
			channel.ModelMapping = update.ModelMapping
		}
	}
}

// UpdateChannel applies the non-empty fields of the body to the stored
// channel, plus any clearable field the body names explicitly.
func UpdateChannel(c *gin.Context) {
	body, err := common.GetRequestBody(c)
	if err != nil {
		fail(c, err)
		return
	}
	var update model.Channel
	var present map[string]json.RawMessage
	if err = json.Unmarshal(body, &update); err != nil {
		fail(c, err)
		return
	}
	if err = json.Unmarshal(body, &present); err != nil {
		fail(c, err)
		return
	}
	if update.Id == 0 {
		fail(c, errors.New("id is required"))
		return
	}
	channel, err := model.GetChannelById(update.Id, true)
	if err != nil {
		fail(c, err)
		return
	}
	if err = copier.CopyWithOption(channel, &update, copier.Option{IgnoreEmpty: true}); err != nil {
		fail(c, err)
		return
	}
	applyClearableFields(channel, &update, present)
	if err = validateChannel(channel); err != nil {
		fail(c, err)
		return
	}
	if err = channel.Update(); err != nil {
		fail(c, err)
		return
	}
	refreshChannelCache()
	channel.Key = ""
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    channel,
	})
}

func DeleteChannel(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	channel := model.Channel{Id: id}
	if err = channel.Delete(); err != nil {
		fail(c, err)
		return
	}
	refreshChannelCache()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
	})
}
