package hostedvllm

var ModelList = []string{
	"deepseek-chat",
	"deepseek-reasoner",
	"deepseek-ai/DeepSeek-V3",
	"deepseek-ai/DeepSeek-R1",
	"Qwen/Qwen2.5-72B-Instruct",
}

// SupportedParams are the request fields the vLLM OpenAI server accepts.
var SupportedParams = []string{
	"model", "messages", "prompt", "stream", "stream_options",
	"max_tokens", "max_completion_tokens", "temperature", "top_p", "top_k", "min_p",
	"n", "stop", "seed", "presence_penalty", "frequency_penalty", "repetition_penalty",
	"logit_bias", "logprobs", "top_logprobs", "user", "response_format",
	"tools", "tool_choice", "parallel_tool_calls", "functions", "function_call",
	"reasoning_effort", "echo", "suffix", "best_of",
	"chat_template_kwargs", "guided_json", "guided_regex", "guided_choice", "guided_grammar",
}

var supportedParamSet = func() map[string]bool {
	set := make(map[string]bool, len(SupportedParams))
	for _, p := range SupportedParams {
		set[p] = true
	}
	return set
}()

func IsSupportedParam(name string) bool {
	return supportedParamSet[name]
}
