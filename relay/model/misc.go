package model

import "fmt"

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Error is the OpenAI error body. Upstream vLLM errors are decoded into it and
// handed back to the client as-is.
type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
	Code    any    `json:"code"`
}

type ErrorWithStatusCode struct {
	Error
	StatusCode int `json:"status_code"`
}

func (e *ErrorWithStatusCode) String() string {
	return fmt.Sprintf("status=%d type=%s code=%v message=%s", e.StatusCode, e.Type, e.Code, e.Message)
}
