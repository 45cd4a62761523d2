package model

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/pkg/errors"
)

var (
	channelSyncLock      sync.RWMutex
	group2model2channels = make(map[string]map[string][]*Channel)
	channelsIDM          = make(map[int]*Channel)
)

var ErrNoAvailableChannel = errors.New("no available channel")

const channelCacheTTL = 10 * time.Minute

// buildChannelIndex groups enabled channels by group and model, highest
// priority first.
func buildChannelIndex(channels []*Channel) (map[string]map[string][]*Channel, map[int]*Channel) {
	index := make(map[string]map[string][]*Channel)
	byId := make(map[int]*Channel, len(channels))
	for _, channel := range channels {
		if channel.Status != common.ChannelStatusEnabled {
			continue
		}
		byId[channel.Id] = channel
		for _, group := range channel.GetGroups() {
			if _, ok := index[group]; !ok {
				index[group] = make(map[string][]*Channel)
			}
			for _, modelName := range channel.GetModels() {
				index[group][modelName] = append(index[group][modelName], channel)
			}
		}
	}
	for _, model2channels := range index {
		for _, list := range model2channels {
			sort.SliceStable(list, func(i, j int) bool {
				return list[i].GetPriority() > list[j].GetPriority()
			})
		}
	}
	return index, byId
}

func InitChannelCache() {
	channels, err := GetEnabledChannels()
	if err != nil {
		logger.SysError("failed to load channels: " + err.Error())
		return
	}
	index, byId := buildChannelIndex(channels)

	channelSyncLock.Lock()
	group2model2channels = index
	channelsIDM = byId
	channelSyncLock.Unlock()

	logger.SysLog("channels synced from database")
}

func SyncChannelCache(frequency int) {
	for {
		time.Sleep(time.Duration(frequency) * time.Second)
		logger.SysLog("syncing channels from database")
		InitChannelCache()
	}
}

func satisfiedChannels(group string, modelName string) ([]*Channel, error) {
	if config.MemoryCacheEnabled {
		channelSyncLock.RLock()
		defer channelSyncLock.RUnlock()
		return group2model2channels[group][modelName], nil
	}
	channels, err := GetEnabledChannels()
	if err != nil {
		return nil, err
	}
	var out []*Channel
	for _, channel := range channels {
		if channel.Serves(group, modelName) {
			out = append(out, channel)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].GetPriority() > out[j].GetPriority()
	})
	return out, nil
}

// selectChannel drops excluded ids, keeps the highest remaining priority tier
// and picks one of it by weight.
func selectChannel(candidates []*Channel, excludeIds []int, r *rand.Rand) *Channel {
	excluded := make(map[int]bool, len(excludeIds))
	for _, id := range excludeIds {
		excluded[id] = true
	}
	var tier []*Channel
	for _, channel := range candidates {
		if excluded[channel.Id] {
			continue
		}
		if len(tier) > 0 && channel.GetPriority() < tier[0].GetPriority() {
			break
		}
		tier = append(tier, channel)
	}
	if len(tier) == 0 {
		return nil
	}
	var total uint
	for _, channel := range tier {
		total += channel.GetWeight()
	}
	pick := uint(r.Int63n(int64(total)))
	for _, channel := range tier {
		if pick < channel.GetWeight() {
			return channel
		}
		pick -= channel.GetWeight()
	}
	return tier[len(tier)-1]
}

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))
var rngLock sync.Mutex

func CacheGetRandomSatisfiedChannel(group string, modelName string, excludeIds []int) (*Channel, error) {
	candidates, err := satisfiedChannels(group, modelName)
	if err != nil {
		return nil, errors.Wrap(err, "load channels")
	}
	rngLock.Lock()
	channel := selectChannel(candidates, excludeIds, rng)
	rngLock.Unlock()
	if channel == nil {
		return nil, errors.Wrapf(ErrNoAvailableChannel, "group %s model %s", group, modelName)
	}
	return channel, nil
}

// CacheGetChannel reads a channel (with key) through Redis when enabled.
func CacheGetChannel(id int) (*Channel, error) {
	if !common.RedisEnabled {
		return GetChannelById(id, true)
	}
	cacheKey := fmt.Sprintf(common.CacheChannelKey, id)
	if data, err := common.RedisGet(cacheKey); err == nil {
		var channel Channel
		if err = json.Unmarshal([]byte(data), &channel); err == nil {
			return &channel, nil
		}
	}
	channel, err := GetChannelById(id, true)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(channel)
	if err == nil {
		if err = common.RedisSet(cacheKey, string(data), channelCacheTTL); err != nil {
			logger.SysError(fmt.Sprintf("failed to cache channel %d: %s", id, err.Error()))
		}
	}
	return channel, nil
}

func invalidateCachedChannel(id int) {
	if !common.RedisEnabled {
		return
	}
	if err := common.RedisDel(fmt.Sprintf(common.CacheChannelKey, id)); err != nil {
		logger.SysError(fmt.Sprintf("failed to invalidate channel %d: %s", id, err.Error()))
	}
}

// EnabledModels lists every model served by an enabled channel in group.
func EnabledModels(group string) ([]string, error) {
	channels, err := GetEnabledChannels()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var models []string
	for _, channel := range channels {
		for _, modelName := range channel.GetModels() {
			if channel.Serves(group, modelName) && !seen[modelName] {
				seen[modelName] = true
				models = append(models, modelName)
			}
		}
	}
	sort.Strings(models)
	return models, nil
}
