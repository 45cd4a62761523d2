package monitor

import (
	"fmt"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/model"
)

// DisableChannel marks the channel auto disabled unless the channel opted out.
func DisableChannel(channelId int, channelName string, reason string) {
	channel, err := model.GetChannelById(channelId, false)
	if err != nil {
		logger.SysError(fmt.Sprintf("failed to get channel %d: %s", channelId, err.Error()))
		return
	}
	if !channel.AutoDisabled {
		logger.SysLog(fmt.Sprintf("channel #%d (%s) should be disabled but auto-disable is turned off, reason: %s", channelId, channelName, reason))
		return
	}
	if err = model.UpdateChannelStatusById(channelId, common.ChannelStatusAutoDisabled); err != nil {
		logger.SysError(fmt.Sprintf("failed to disable channel %d: %s", channelId, err.Error()))
		return
	}
	logger.SysLog(fmt.Sprintf("channel #%d (%s) has been disabled: %s", channelId, channelName, reason))
}

func MetricDisableChannel(channelId int, successRate float64) {
	reason := fmt.Sprintf("success rate %.2f%% of the last %d requests below threshold %.2f%%",
		successRate*100, config.MetricQueueSize, config.MetricSuccessRateThreshold*100)
	DisableChannel(channelId, "", reason)
}

