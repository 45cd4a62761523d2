package model

import (
	"encoding/json"
	"fmt"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/common/helper"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/pkg/errors"
)

type Channel struct {
	Id           int     `json:"id"`
	Type         int     `json:"type" gorm:"default:0" validate:"gte=1"`
	Key          string  `json:"key" gorm:"type:text"`
	Status       int     `json:"status" gorm:"default:1"`
	Name         string  `json:"name" gorm:"index" validate:"required,max=64"`
	Weight       *uint   `json:"weight" gorm:"default:0"`
	CreatedTime  int64   `json:"created_time" gorm:"bigint"`
	ResponseTime int     `json:"response_time"` // in milliseconds
	BaseURL      *string `json:"base_url" gorm:"column:base_url;default:''" validate:"omitempty,url"`
	Models       string  `json:"models" validate:"required"`
	Group        string  `json:"group" gorm:"type:varchar(32);default:'default'"`
	ModelMapping *string `json:"model_mapping" gorm:"type:varchar(1024);default:''"`
	Priority     *int64  `json:"priority" gorm:"bigint;default:0"`
	Config       string  `json:"config"`
	AutoDisabled bool    `json:"auto_disabled" gorm:"default:true"`
}

type ChannelConfig struct {
	// CleanToolSchemas overrides HOSTED_VLLM_CLEAN_TOOL_SCHEMAS for this channel when set.
	CleanToolSchemas *bool             `json:"clean_tool_schemas,omitempty"`
	Proxy            string            `json:"proxy,omitempty"`
	HeadersOverride  map[string]string `json:"headers_override,omitempty"`
}

func (channel *Channel) LoadConfig() (ChannelConfig, error) {
	var cfg ChannelConfig
	if channel.Config == "" {
		return cfg, nil
	}
	err := json.Unmarshal([]byte(channel.Config), &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "channel %d config", channel.Id)
	}
	return cfg, nil
}

func (channel *Channel) SetConfig(cfg ChannelConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	channel.Config = string(data)
	return nil
}

func (channel *Channel) GetPriority() int64 {
	if channel.Priority == nil {
		return 0
	}
	return *channel.Priority
}

func (channel *Channel) GetWeight() uint {
	if channel.Weight == nil || *channel.Weight == 0 {
		return 1
	}
	return *channel.Weight
}

func (channel *Channel) GetBaseURL() string {
	if channel.BaseURL == nil {
		return ""
	}
	return *channel.BaseURL
}

func (channel *Channel) GetModels() []string {
	return helper.SplitCommaList(channel.Models)
}

func (channel *Channel) GetGroups() []string {
	groups := helper.SplitCommaList(channel.Group)
	if len(groups) == 0 {
		return []string{"default"}
	}
	return groups
}

func (channel *Channel) GetModelMapping() map[string]string {
	if channel.ModelMapping == nil || *channel.ModelMapping == "" || *channel.ModelMapping == "{}" {
		return nil
	}
	modelMapping := make(map[string]string)
	err := json.Unmarshal([]byte(*channel.ModelMapping), &modelMapping)
	if err != nil {
		logger.SysError(fmt.Sprintf("failed to unmarshal model mapping for channel %d, error: %s", channel.Id, err.Error()))
		return nil
	}
	return modelMapping
}

// Serves reports whether the channel lists modelName for group.
func (channel *Channel) Serves(group string, modelName string) bool {
	if channel.Status != common.ChannelStatusEnabled {
		return false
	}
	inGroup := false
	for _, g := range channel.GetGroups() {
		if g == group {
			inGroup = true
			break
		}
	}
	if !inGroup {
		return false
	}
	for _, m := range channel.GetModels() {
		if m == modelName {
			return true
		}
	}
	return false
}

func GetAllChannels() ([]*Channel, error) {
	var channels []*Channel
	err := DB.Order("id desc").Omit("key").Find(&channels).Error
	return channels, err
}

func GetEnabledChannels() ([]*Channel, error) {
	var channels []*Channel
	err := DB.Where("status = ?", common.ChannelStatusEnabled).Find(&channels).Error
	return channels, err
}

func GetChannelById(id int, selectAll bool) (*Channel, error) {
	channel := Channel{Id: id}
	var err error
	if selectAll {
		err = DB.First(&channel, "id = ?", id).Error
	} else {
		err = DB.Omit("key").First(&channel, "id = ?", id).Error
	}
	return &channel, err
}

func GetChannelByName(name string) (*Channel, error) {
	var channel Channel
	err := DB.Where("name = ?", name).First(&channel).Error
	return &channel, err
}

func (channel *Channel) Insert() error {
	if channel.CreatedTime == 0 {
		channel.CreatedTime = helper.GetTimestamp()
	}
	return DB.Create(channel).Error
}

// Update writes every column of channel, zero values included, so callers
// must pass a fully loaded row.
func (channel *Channel) Update() error {
	err := DB.Model(channel).Select("*").Omit("id", "created_time", "response_time").Updates(channel).Error
	if err != nil {
		return errors.Wrapf(err, "update channel %d", channel.Id)
	}
	DB.Model(channel).First(channel, "id = ?", channel.Id)
	invalidateCachedChannel(channel.Id)
	return nil
}

func (channel *Channel) UpdateResponseTime(responseTime int64) {
	err := DB.Model(channel).Select("response_time").Updates(Channel{
		ResponseTime: int(responseTime),
	}).Error
	if err != nil {
		logger.SysError("failed to update response time: " + err.Error())
	}
}

func (channel *Channel) Delete() error {
	err := DB.Delete(channel).Error
	if err != nil {
		return errors.Wrapf(err, "delete channel %d", channel.Id)
	}
	invalidateCachedChannel(channel.Id)
	return nil
}

func UpdateChannelStatusById(id int, status int) error {
	err := DB.Model(&Channel{}).Where("id = ?", id).Update("status", status).Error
	if err != nil {
		return errors.Wrapf(err, "update channel %d status", id)
	}
	invalidateCachedChannel(id)
	return nil
}
