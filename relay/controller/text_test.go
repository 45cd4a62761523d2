package controller

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/model"
	"github.com/ezlinkai/vllm-relay/relay/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolRequest = `{
	"model": "deepseek-chat",
	"messages": [{"role": "user", "content": "weather in Paris?"}],
	"tools": [{
		"type": "function",
		"function": {
			"name": "get_weather",
			"parameters": {
				"type": "object",
				"properties": {"location": {"type": "string"}},
				"additionalProperties": false
			}
		},
		"strict": true
	}]
}`

const completion = `{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"sunny"},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":1,"total_tokens":13}}`

type upstream struct {
	server *httptest.Server
	path   string
	auth   string
	body   map[string]any
}

func newUpstream(t *testing.T, status int, response string) *upstream {
	t.Helper()
	u := &upstream{}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.path = r.URL.Path
		u.auth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &u.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(u.server.Close)
	return u
}

func (u *upstream) parameters(t *testing.T) map[string]any {
	t.Helper()
	tools, ok := u.body["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	return tools[0].(map[string]any)["function"].(map[string]any)["parameters"].(map[string]any)
}

func relayContext(t *testing.T, baseURL string, channelType int, cfg model.ChannelConfig, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("Authorization", "Bearer sk-vllm")
	c.Set(util.CtxChannelType, channelType)
	c.Set(util.CtxChannelId, 7)
	c.Set(util.CtxBaseURL, baseURL)
	c.Set(util.CtxConfig, cfg)
	return c, w
}

// streamRecorder satisfies http.CloseNotifier, which gin's Stream needs.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func newTestWriter(t *testing.T, w http.ResponseWriter) gin.ResponseWriter {
	t.Helper()
	c, _ := gin.CreateTestContext(w)
	return c.Writer
}

func boolPtr(b bool) *bool {
	return &b
}

func TestRelayCleansToolSchemas(t *testing.T) {
	up := newUpstream(t, http.StatusOK, completion)
	c, w := relayContext(t, up.server.URL, common.ChannelTypeHostedVLLM, model.ChannelConfig{CleanToolSchemas: boolPtr(true)}, toolRequest)

	relayErr := RelayTextHelper(c)
	require.Nil(t, relayErr)

	assert.Equal(t, "/v1/chat/completions", up.path)
	assert.Equal(t, "Bearer sk-vllm", up.auth)
	params := up.parameters(t)
	assert.NotContains(t, params, "additionalProperties")
	assert.NotContains(t, up.body["tools"].([]any)[0], "strict")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, completion, w.Body.String())
}

func TestRelayKeepsToolSchemasWhenDisabled(t *testing.T) {
	up := newUpstream(t, http.StatusOK, completion)
	c, _ := relayContext(t, up.server.URL, common.ChannelTypeHostedVLLM, model.ChannelConfig{CleanToolSchemas: boolPtr(false)}, toolRequest)

	require.Nil(t, RelayTextHelper(c))

	var want map[string]any
	require.NoError(t, json.Unmarshal([]byte(toolRequest), &want))
	assert.Equal(t, want, up.body)
}

func TestRelayOpenAIPrefixSkipsCleaning(t *testing.T) {
	up := newUpstream(t, http.StatusOK, completion)
	body := strings.Replace(toolRequest, `"deepseek-chat"`, `"openai/deepseek-chat"`, 1)
	c, _ := relayContext(t, up.server.URL, common.ChannelTypeHostedVLLM, model.ChannelConfig{CleanToolSchemas: boolPtr(true)}, body)

	require.Nil(t, RelayTextHelper(c))

	assert.Equal(t, "deepseek-chat", up.body["model"])
	assert.Equal(t, false, up.parameters(t)["additionalProperties"])
}

func TestRelayHostedVLLMPrefixOnOpenAIChannel(t *testing.T) {
	up := newUpstream(t, http.StatusOK, completion)
	body := strings.Replace(toolRequest, `"deepseek-chat"`, `"hosted_vllm/deepseek-chat"`, 1)
	c, _ := relayContext(t, up.server.URL, common.ChannelTypeOpenAI, model.ChannelConfig{CleanToolSchemas: boolPtr(true)}, body)

	require.Nil(t, RelayTextHelper(c))

	assert.Equal(t, "deepseek-chat", up.body["model"])
	assert.NotContains(t, up.parameters(t), "additionalProperties")
}

func TestRelayAppliesModelMapping(t *testing.T) {
	up := newUpstream(t, http.StatusOK, completion)
	c, _ := relayContext(t, up.server.URL, common.ChannelTypeHostedVLLM, model.ChannelConfig{}, toolRequest)
	c.Set(util.CtxModelMapping, map[string]string{"deepseek-chat": "deepseek-ai/DeepSeek-V3"})

	require.Nil(t, RelayTextHelper(c))

	assert.Equal(t, "deepseek-ai/DeepSeek-V3", up.body["model"])
}

func TestRelayPropagatesBackendError(t *testing.T) {
	backendErr := `{"object":"error","message":"Hosted_vllmException - No tool calls but found tool output","type":"BadRequestError","param":null,"code":400}`
	up := newUpstream(t, http.StatusBadRequest, backendErr)
	c, _ := relayContext(t, up.server.URL, common.ChannelTypeHostedVLLM, model.ChannelConfig{}, toolRequest)

	relayErr := RelayTextHelper(c)
	require.NotNil(t, relayErr)

	assert.Equal(t, http.StatusBadRequest, relayErr.StatusCode)
	assert.Equal(t, "Hosted_vllmException - No tool calls but found tool output", relayErr.Message)
}

func TestRelayStreams(t *testing.T) {
	stream := "data: {\"id\":\"chatcmpl-1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"sun\"}}]}\n\n" +
		"data: {\"id\":\"chatcmpl-1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"ny\"}}],\"usage\":{\"prompt_tokens\":12,\"completion_tokens\":2,\"total_tokens\":14}}\n\n" +
		"data: [DONE]\n\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(stream))
	}))
	t.Cleanup(server.Close)
	body := strings.Replace(toolRequest, `"model": "deepseek-chat",`, `"model": "deepseek-chat", "stream": true,`, 1)
	c, _ := relayContext(t, server.URL, common.ChannelTypeHostedVLLM, model.ChannelConfig{}, body)
	w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool)}
	c.Writer = newTestWriter(t, w)

	require.Nil(t, RelayTextHelper(c))

	out := w.Body.String()
	assert.Contains(t, out, `"content":"sun"`)
	assert.Contains(t, out, "data: [DONE]")
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
}

func TestRelayRejectsInvalidRequest(t *testing.T) {
	c, _ := relayContext(t, "http://127.0.0.1:1", common.ChannelTypeHostedVLLM, model.ChannelConfig{}, `{"model":"deepseek-chat"}`)

	relayErr := RelayTextHelper(c)
	require.NotNil(t, relayErr)
	assert.Equal(t, http.StatusBadRequest, relayErr.StatusCode)
}
