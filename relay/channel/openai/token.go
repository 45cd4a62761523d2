package openai

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/relay/model"
	"github.com/pkoukk/tiktoken-go"
)

// Open-weight models served by vLLM have their own tokenizers; cl100k is
// close enough for the prompt estimate used when the backend omits usage.
const fallbackEncoding = "cl100k_base"

var (
	tokenEncoderMu      sync.RWMutex
	tokenEncoderMap     = map[string]*tiktoken.Tiktoken{}
	defaultTokenEncoder *tiktoken.Tiktoken
)

func InitTokenEncoders() {
	logger.SysLog("initializing token encoders")
	encoder, err := tiktoken.GetEncoding(fallbackEncoding)
	if err != nil {
		logger.FatalLog(fmt.Sprintf("failed to get %s token encoder: %s", fallbackEncoding, err.Error()))
	}
	tokenEncoderMu.Lock()
	defaultTokenEncoder = encoder
	tokenEncoderMu.Unlock()
	logger.SysLog("token encoders initialized")
}

func getTokenEncoder(modelName string) *tiktoken.Tiktoken {
	tokenEncoderMu.RLock()
	tokenEncoder, ok := tokenEncoderMap[modelName]
	fallback := defaultTokenEncoder
	tokenEncoderMu.RUnlock()
	if ok {
		return tokenEncoder
	}
	if !strings.HasPrefix(modelName, "gpt-") {
		return fallback
	}
	tokenEncoder, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		logger.SysError(fmt.Sprintf("failed to get token encoder for model %s: %s, using %s", modelName, err.Error(), fallbackEncoding))
		tokenEncoder = fallback
	}
	tokenEncoderMu.Lock()
	tokenEncoderMap[modelName] = tokenEncoder
	tokenEncoderMu.Unlock()
	return tokenEncoder
}

func getTokenNum(tokenEncoder *tiktoken.Tiktoken, text string) int {
	if config.ApproximateTokenEnabled || tokenEncoder == nil {
		return int(float64(len(text)) * 0.38)
	}
	return len(tokenEncoder.Encode(text, nil, nil))
}

func CountTokenMessages(messages []model.Message, modelName string) int {
	tokenEncoder := getTokenEncoder(modelName)
	tokensPerMessage := 3
	tokensPerName := 1

	tokenNum := 0
	for _, message := range messages {
		tokenNum += tokensPerMessage
		for _, content := range message.ParseContent() {
			if content.Type == model.ContentTypeText {
				tokenNum += getTokenNum(tokenEncoder, content.Text)
			}
		}
		tokenNum += getTokenNum(tokenEncoder, message.Role)
		if message.Name != nil {
			tokenNum += tokensPerName
			tokenNum += getTokenNum(tokenEncoder, *message.Name)
		}
	}
	tokenNum += 3 // Every reply is primed with <|start|>assistant<|message|>
	return tokenNum
}

func CountTokenInput(input any, modelName string) int {
	switch v := input.(type) {
	case string:
		return CountTokenText(v, modelName)
	case []string:
		return CountTokenText(strings.Join(v, ""), modelName)
	case []any:
		var sb strings.Builder
		for _, item := range v {
			if s, ok := item.(string); ok {
				sb.WriteString(s)
			}
		}
		return CountTokenText(sb.String(), modelName)
	}
	return 0
}

func CountTokenText(text string, modelName string) int {
	return getTokenNum(getTokenEncoder(modelName), text)
}
