package channel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/relay/constant"
	"github.com/ezlinkai/vllm-relay/relay/util"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

func SetupCommonRequestHeader(c *gin.Context, req *http.Request, meta *util.RelayMeta) {
	req.Header.Set("Content-Type", c.Request.Header.Get("Content-Type"))
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", c.Request.Header.Get("Accept"))
	if meta.IsStream && c.Request.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/event-stream")
	}
}

// ChatCompletionsURL maps the relay mode onto the OpenAI compatible path
// served by the backend.
func ChatCompletionsURL(meta *util.RelayMeta) (string, error) {
	switch meta.Mode {
	case constant.RelayModeChatCompletions:
		return fmt.Sprintf("%s/v1/chat/completions", meta.BaseURL), nil
	case constant.RelayModeCompletions:
		return fmt.Sprintf("%s/v1/completions", meta.BaseURL), nil
	}
	return "", errors.Errorf("unsupported relay mode %d for %s", meta.Mode, meta.RequestURLPath)
}

// RawRequestBody decodes the client body into a generic map so fields the
// typed request does not know about reach the backend untouched. Numbers are
// kept as json.Number.
func RawRequestBody(c *gin.Context) (map[string]any, error) {
	body, err := common.GetRequestBody(c)
	if err != nil {
		return nil, errors.Wrap(err, "read request body")
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var raw map[string]any
	if err = decoder.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode request body")
	}
	if raw == nil {
		return nil, errors.New("request body is not a JSON object")
	}
	return raw, nil
}

func DoRequestHelper(a Adaptor, c *gin.Context, meta *util.RelayMeta, requestBody io.Reader) (*http.Response, error) {
	fullRequestURL, err := a.GetRequestURL(meta)
	if err != nil {
		return nil, fmt.Errorf("get request url failed: %w", err)
	}
	// Not bound to the client context: a client disconnect should not cancel
	// the upstream call. RELAY_TIMEOUT bounds it instead.
	req, err := http.NewRequest(c.Request.Method, fullRequestURL, requestBody)
	if err != nil {
		return nil, fmt.Errorf("new request failed: %w", err)
	}
	err = a.SetupRequestHeader(c, req, meta)
	if err != nil {
		return nil, fmt.Errorf("setup request header failed: %w", err)
	}
	ApplyHeadersOverride(req, meta)

	resp, err := DoRequest(c, req, util.GetHTTPClient(meta))
	if err != nil {
		return nil, fmt.Errorf("do request failed: %w", err)
	}
	return resp, nil
}

// ApplyHeadersOverride sets the channel's configured headers last, so they win
// over client and adaptor headers. {api_key} expands to the channel key.
func ApplyHeadersOverride(req *http.Request, meta *util.RelayMeta) {
	for key, value := range meta.Config.HeadersOverride {
		if strings.Contains(value, "{api_key}") {
			value = strings.ReplaceAll(value, "{api_key}", meta.APIKey)
		}
		req.Header.Set(key, value)
	}
}

func DoRequest(c *gin.Context, req *http.Request, client *http.Client) (*http.Response, error) {
	defer func() {
		if req.Body != nil {
			_ = req.Body.Close()
		}
	}()

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("resp is nil")
	}
	return resp, nil
}
