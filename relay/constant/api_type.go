package constant

import (
	"github.com/ezlinkai/vllm-relay/common"
)

const (
	APITypeOpenAI = iota
	APITypeHostedVLLM

	APITypeDummy // this one is only for count, do not add any channel after this
)

func ChannelType2APIType(channelType int) int {
	apiType := APITypeOpenAI
	switch channelType {
	case common.ChannelTypeHostedVLLM:
		apiType = APITypeHostedVLLM
	}
	return apiType
}
