package constant

import "strings"

// Provider prefixes a client may put in front of the model name to pick the
// upstream request path regardless of the channel type, e.g. "openai/deepseek-chat".
const (
	ProviderHostedVLLM = "hosted_vllm"
	ProviderOpenAI     = "openai"
)

var providerAPITypes = map[string]int{
	ProviderHostedVLLM: APITypeHostedVLLM,
	ProviderOpenAI:     APITypeOpenAI,
}

// SplitProviderPrefix splits "provider/model". Unknown prefixes are part of the
// model name (e.g. "deepseek-ai/DeepSeek-V3").
func SplitProviderPrefix(modelName string) (provider string, name string) {
	prefix, rest, ok := strings.Cut(modelName, "/")
	if !ok || rest == "" {
		return "", modelName
	}
	if _, known := providerAPITypes[prefix]; !known {
		return "", modelName
	}
	return prefix, rest
}

// ResolveAPIType returns the api type to use and the model name with any
// provider prefix removed.
func ResolveAPIType(channelType int, modelName string) (int, string) {
	provider, name := SplitProviderPrefix(modelName)
	if provider != "" {
		return providerAPITypes[provider], name
	}
	return ChannelType2APIType(channelType), modelName
}
