package util

import (
	"errors"

	"github.com/ezlinkai/vllm-relay/relay/constant"
	"github.com/ezlinkai/vllm-relay/relay/model"
)

func ValidateTextRequest(textRequest *model.GeneralOpenAIRequest, relayMode int) error {
	if textRequest.MaxTokens < 0 || textRequest.MaxTokens > 1<<20 {
		return errors.New("max_tokens is invalid")
	}
	if textRequest.Model == "" {
		return errors.New("model is required")
	}
	switch relayMode {
	case constant.RelayModeCompletions:
		if textRequest.Prompt == nil {
			return errors.New("field prompt is required")
		}
	case constant.RelayModeChatCompletions:
		if len(textRequest.Messages) == 0 {
			return errors.New("field messages is required")
		}
	}
	return nil
}
