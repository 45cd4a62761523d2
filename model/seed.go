package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// ChannelSeed is one entry of the CHANNELS_FILE document.
type ChannelSeed struct {
	Name             string            `yaml:"name"`
	Type             string            `yaml:"type"`
	Key              string            `yaml:"key"`
	BaseURL          string            `yaml:"base_url"`
	Models           []string          `yaml:"models"`
	Group            string            `yaml:"group"`
	ModelMapping     map[string]string `yaml:"model_mapping"`
	Priority         int64             `yaml:"priority"`
	Weight           uint              `yaml:"weight"`
	Disabled         bool              `yaml:"disabled"`
	CleanToolSchemas *bool             `yaml:"clean_tool_schemas"`
	Proxy            string            `yaml:"proxy"`
	HeadersOverride  map[string]string `yaml:"headers_override"`
}

type seedFile struct {
	Channels []ChannelSeed `yaml:"channels"`
}

func channelTypeByName(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return common.ChannelTypeHostedVLLM, nil
	}
	for channelType, typeName := range common.ChannelTypeNames {
		if typeName == name {
			return channelType, nil
		}
	}
	return 0, fmt.Errorf("unknown channel type %q", name)
}

// ParseChannelSeeds decodes a YAML seed document into channel rows.
func ParseChannelSeeds(data []byte) ([]*Channel, error) {
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode channels file")
	}
	channels := make([]*Channel, 0, len(doc.Channels))
	for i, seed := range doc.Channels {
		if seed.Name == "" {
			return nil, fmt.Errorf("channel #%d: name is required", i)
		}
		if len(seed.Models) == 0 {
			return nil, fmt.Errorf("channel %s: models are required", seed.Name)
		}
		channelType, err := channelTypeByName(seed.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "channel %s", seed.Name)
		}
		channel := &Channel{
			Name:         seed.Name,
			Type:         channelType,
			Key:          seed.Key,
			Status:       common.ChannelStatusEnabled,
			Models:       strings.Join(seed.Models, ","),
			Group:        seed.Group,
			AutoDisabled: true,
		}
		if seed.Disabled {
			channel.Status = common.ChannelStatusManuallyDisabled
		}
		if channel.Group == "" {
			channel.Group = "default"
		}
		if seed.BaseURL != "" {
			baseURL := strings.TrimSuffix(seed.BaseURL, "/")
			channel.BaseURL = &baseURL
		}
		if len(seed.ModelMapping) > 0 {
			mapping, err := json.Marshal(seed.ModelMapping)
			if err != nil {
				return nil, err
			}
			s := string(mapping)
			channel.ModelMapping = &s
		}
		priority := seed.Priority
		channel.Priority = &priority
		weight := seed.Weight
		channel.Weight = &weight
		err = channel.SetConfig(ChannelConfig{
			CleanToolSchemas: seed.CleanToolSchemas,
			Proxy:            seed.Proxy,
			HeadersOverride:  seed.HeadersOverride,
		})
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, nil
}

// SeedChannelsFromFile upserts the channels of path by name.
func SeedChannelsFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read channels file")
	}
	channels, err := ParseChannelSeeds(data)
	if err != nil {
		return err
	}
	for _, channel := range channels {
		existing, err := GetChannelByName(channel.Name)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err = channel.Insert(); err != nil {
				return errors.Wrapf(err, "insert channel %s", channel.Name)
			}
			logger.SysLog(fmt.Sprintf("channel %s seeded", channel.Name))
		case err != nil:
			return errors.Wrapf(err, "look up channel %s", channel.Name)
		default:
			channel.Id = existing.Id
			channel.CreatedTime = existing.CreatedTime
			if err = DB.Save(channel).Error; err != nil {
				return errors.Wrapf(err, "update channel %s", channel.Name)
			}
			invalidateCachedChannel(channel.Id)
			logger.SysLog(fmt.Sprintf("channel %s updated from seed", channel.Name))
		}
	}
	return nil
}
