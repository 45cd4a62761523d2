package helper

import (
	"sync"

	"github.com/ezlinkai/vllm-relay/relay/channel"
	"github.com/ezlinkai/vllm-relay/relay/channel/hostedvllm"
	"github.com/ezlinkai/vllm-relay/relay/channel/openai"
	"github.com/ezlinkai/vllm-relay/relay/constant"
	"github.com/ezlinkai/vllm-relay/relay/util"
)

// hostedVLLMCleanDefault is the process wide HOSTED_VLLM_CLEAN_TOOL_SCHEMAS
// value, read on first use.
var hostedVLLMCleanDefault = sync.OnceValue(func() bool {
	return hostedvllm.ResolveCleanToolSchemas(nil)
})

func GetAdaptor(apiType int, meta *util.RelayMeta) channel.Adaptor {
	switch apiType {
	case constant.APITypeOpenAI:
		return &openai.Adaptor{}
	case constant.APITypeHostedVLLM:
		return hostedvllm.NewAdaptor(HostedVLLMOptions(meta)...)
	}
	return nil
}

// HostedVLLMOptions turns the channel config into adaptor options. A channel
// level clean_tool_schemas wins over the environment.
func HostedVLLMOptions(meta *util.RelayMeta) []hostedvllm.Option {
	if meta != nil && meta.Config.CleanToolSchemas != nil {
		return []hostedvllm.Option{hostedvllm.WithCleanToolSchemas(*meta.Config.CleanToolSchemas)}
	}
	return []hostedvllm.Option{hostedvllm.WithCleanToolSchemas(hostedVLLMCleanDefault())}
}

// HostedVLLMCleanDefault reports the environment resolved cleaning default.
func HostedVLLMCleanDefault() bool {
	return hostedVLLMCleanDefault()
}
