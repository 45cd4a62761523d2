package util

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/logger"
	relaymodel "github.com/ezlinkai/vllm-relay/relay/model"
)

func ShouldDisableChannel(err *relaymodel.Error, statusCode int) bool {
	if !config.AutomaticDisableChannelEnabled {
		return false
	}
	if err == nil {
		return false
	}
	if statusCode == http.StatusUnauthorized {
		return true
	}
	switch err.Type {
	case "insufficient_quota", "authentication_error", "permission_error", "forbidden":
		return true
	}
	if err.Code == "invalid_api_key" || err.Code == "account_deactivated" {
		return true
	}

	message := strings.ToLower(err.Message)
	for _, keyword := range strings.Split(config.AutoDisableKeywords, "\n") {
		keyword = strings.TrimSpace(strings.ToLower(keyword))
		if keyword != "" && strings.Contains(message, keyword) {
			return true
		}
	}
	return false
}

// GeneralErrorResponse covers the error shapes OpenAI compatible servers
// return. vLLM answers with either {"error":{...}} or {"message": "..."}.
type GeneralErrorResponse struct {
	Error    relaymodel.Error `json:"error"`
	Message  string           `json:"message"`
	Msg      string           `json:"msg"`
	Err      string           `json:"err"`
	ErrorMsg string           `json:"error_msg"`
	Detail   any              `json:"detail"`
}

func (e GeneralErrorResponse) ToMessage() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != "" {
		return e.Err
	}
	if e.ErrorMsg != "" {
		return e.ErrorMsg
	}
	switch detail := e.Detail.(type) {
	case string:
		return detail
	case nil:
		return ""
	default:
		data, _ := json.Marshal(detail)
		return string(data)
	}
}

// RelayErrorHandler turns a non-200 upstream response into the error sent to
// the client. The upstream status code and message are kept as they are.
func RelayErrorHandler(resp *http.Response) (errWithStatusCode *relaymodel.ErrorWithStatusCode) {
	errWithStatusCode = &relaymodel.ErrorWithStatusCode{
		StatusCode: resp.StatusCode,
		Error: relaymodel.Error{
			Message: "",
			Type:    "upstream_error",
			Code:    "bad_response_status_code",
			Param:   strconv.Itoa(resp.StatusCode),
		},
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	if config.DebugEnabled {
		logger.SysLog(fmt.Sprintf("error happened, status code: %d, response: \n%s", resp.StatusCode, string(responseBody)))
	}

	var errResponse GeneralErrorResponse
	if err = json.Unmarshal(responseBody, &errResponse); err != nil {
		if text := strings.TrimSpace(string(responseBody)); text != "" {
			errWithStatusCode.Error.Message = text
		}
	} else if errResponse.Error.Message != "" {
		// OpenAI format error, so we override the default one
		errWithStatusCode.Error = errResponse.Error
	} else {
		errWithStatusCode.Error.Message = errResponse.ToMessage()
	}
	if errWithStatusCode.Error.Message == "" {
		errWithStatusCode.Error.Message = fmt.Sprintf("upstream returned status %d (%s)", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return
}
