package hostedvllm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/relay/constant"
	"github.com/ezlinkai/vllm-relay/relay/model"
	"github.com/ezlinkai/vllm-relay/relay/toolschema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTools() []any {
	return []any{
		map[string]any{
			"type": "function",
			"function": map[string]any{
				"name": "test_func",
				"parameters": map[string]any{
					"type":                 "object",
					"properties":           map[string]any{"arg": map[string]any{"type": "string"}},
					"additionalProperties": false,
					"strict":               true,
				},
			},
		},
	}
}

func nestedTools() []any {
	return []any{
		map[string]any{
			"type": "function",
			"function": map[string]any{
				"name": "test_func",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"nested": map[string]any{
							"type":                 "object",
							"properties":           map[string]any{"inner": map[string]any{"type": "string"}},
							"additionalProperties": false,
						},
					},
					"additionalProperties": false,
					"strict":               true,
				},
			},
		},
	}
}

func resultParams(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	tools, ok := result["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	function := tools[0].(map[string]any)["function"].(map[string]any)
	return function["parameters"].(map[string]any)
}

func TestCleanToolSchemasDefault(t *testing.T) {
	// Setenv registers the restore; the variable is then removed entirely
	t.Setenv(config.HostedVLLMCleanToolSchemasEnv, "")
	require.NoError(t, os.Unsetenv(config.HostedVLLMCleanToolSchemasEnv))
	_, set := os.LookupEnv(config.HostedVLLMCleanToolSchemasEnv)
	require.False(t, set)
	assert.True(t, NewAdaptor().CleanToolSchemas())
}

func TestCleanToolSchemasEmptyEnv(t *testing.T) {
	t.Setenv(config.HostedVLLMCleanToolSchemasEnv, "")
	assert.True(t, NewAdaptor().CleanToolSchemas())
}

func TestCleanToolSchemasEnv(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"false", false},
		{"0", false},
		{"no", false},
		{"False", false},
		{"FALSE", false},
		{" no ", true},
		{"true", true},
		{"1", true},
		{"yes", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(config.HostedVLLMCleanToolSchemasEnv, tt.value)
			assert.Equal(t, tt.want, NewAdaptor().CleanToolSchemas())
		})
	}
}

func TestCleanToolSchemasOption(t *testing.T) {
	assert.False(t, NewAdaptor(WithCleanToolSchemas(false)).CleanToolSchemas())
	assert.True(t, NewAdaptor(WithCleanToolSchemas(true)).CleanToolSchemas())
}

func TestCleanToolSchemasOptionOverridesEnv(t *testing.T) {
	t.Setenv(config.HostedVLLMCleanToolSchemasEnv, "true")
	assert.False(t, NewAdaptor(WithCleanToolSchemas(false)).CleanToolSchemas())

	t.Setenv(config.HostedVLLMCleanToolSchemasEnv, "false")
	assert.True(t, NewAdaptor(WithCleanToolSchemas(true)).CleanToolSchemas())
}

func TestCleanToolSchemasResolvedOnce(t *testing.T) {
	t.Setenv(config.HostedVLLMCleanToolSchemasEnv, "false")
	adaptor := NewAdaptor()
	t.Setenv(config.HostedVLLMCleanToolSchemasEnv, "true")
	assert.False(t, adaptor.CleanToolSchemas())
}

func TestMapOpenAIParamsCleanEnabled(t *testing.T) {
	adaptor := NewAdaptor(WithCleanToolSchemas(true))
	tools := testTools()

	result := adaptor.MapOpenAIParams(map[string]any{"tools": tools}, map[string]any{}, "test-model", false)

	params := resultParams(t, result)
	assert.NotContains(t, params, "additionalProperties")
	assert.NotContains(t, params, "strict")
	assert.Equal(t, map[string]any{"arg": map[string]any{"type": "string"}}, params["properties"])

	// the caller's tools are untouched
	original := tools[0].(map[string]any)["function"].(map[string]any)["parameters"].(map[string]any)
	assert.Equal(t, false, original["additionalProperties"])
	assert.Equal(t, true, original["strict"])
}

func TestMapOpenAIParamsCleanDisabled(t *testing.T) {
	adaptor := NewAdaptor(WithCleanToolSchemas(false))

	result := adaptor.MapOpenAIParams(map[string]any{"tools": testTools()}, map[string]any{}, "test-model", false)

	params := resultParams(t, result)
	assert.Equal(t, false, params["additionalProperties"])
	assert.Equal(t, true, params["strict"])
}

func TestMapOpenAIParamsNestedProperties(t *testing.T) {
	clean := NewAdaptor(WithCleanToolSchemas(true))
	noClean := NewAdaptor(WithCleanToolSchemas(false))

	resultClean := clean.MapOpenAIParams(map[string]any{"tools": nestedTools()}, map[string]any{}, "test-model", false)
	resultNoClean := noClean.MapOpenAIParams(map[string]any{"tools": nestedTools()}, map[string]any{}, "test-model", false)

	nestedClean := resultParams(t, resultClean)["properties"].(map[string]any)["nested"].(map[string]any)
	assert.NotContains(t, nestedClean, "additionalProperties")

	nestedNoClean := resultParams(t, resultNoClean)["properties"].(map[string]any)["nested"].(map[string]any)
	assert.Contains(t, nestedNoClean, "additionalProperties")
}

func TestMapOpenAIParamsWithoutTools(t *testing.T) {
	adaptor := NewAdaptor(WithCleanToolSchemas(true))

	result := adaptor.MapOpenAIParams(map[string]any{"temperature": 0.7}, map[string]any{}, "test-model", false)

	assert.NotContains(t, result, "tools")
	assert.Equal(t, 0.7, result["temperature"])
}

func TestMapOpenAIParamsMergesOptional(t *testing.T) {
	adaptor := NewAdaptor()

	result := adaptor.MapOpenAIParams(
		map[string]any{"temperature": 0.2, "unknown_param": 1},
		map[string]any{"max_tokens": 16, "temperature": 1.0},
		"test-model", true)

	assert.Equal(t, 0.2, result["temperature"])
	assert.Equal(t, 16, result["max_tokens"])
	assert.NotContains(t, result, "unknown_param")
}

type renameStrict struct{}

func (renameStrict) Tools(tools []model.Tool) []model.Tool { return tools }
func (renameStrict) Raw(tools any) any                     { return toolschema.Prune(tools, "strict") }

func TestWithToolSchemaPolicy(t *testing.T) {
	adaptor := NewAdaptor(WithCleanToolSchemas(true), WithToolSchemaPolicy(renameStrict{}))

	result := adaptor.MapOpenAIParams(map[string]any{"tools": testTools()}, nil, "test-model", false)

	params := resultParams(t, result)
	assert.NotContains(t, params, "strict")
	assert.Equal(t, false, params["additionalProperties"])
}

func newContext(t *testing.T, body string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

const weatherRequest = `{
	"model": "deepseek-chat",
	"messages": [{"role": "user", "content": "weather in Paris?"}],
	"tools": [{
		"type": "function",
		"function": {
			"name": "get_weather",
			"parameters": {
				"type": "object",
				"properties": {"location": {"type": "string"}},
				"required": ["location"],
				"additionalProperties": false
			}
		},
		"strict": true
	}],
	"chat_template_kwargs": {"thinking": true},
	"seed": 12345678901234567
}`

func TestConvertRequestCleansRawBody(t *testing.T) {
	c := newContext(t, weatherRequest)
	adaptor := NewAdaptor(WithCleanToolSchemas(true))

	converted, err := adaptor.ConvertRequest(c, constant.RelayModeChatCompletions, &model.GeneralOpenAIRequest{Model: "deepseek-ai/DeepSeek-V3"})
	require.NoError(t, err)

	data, err := json.Marshal(converted)
	require.NoError(t, err)
	body := string(data)
	assert.NotContains(t, body, "additionalProperties")
	assert.NotContains(t, body, "strict")
	assert.Contains(t, body, `"model":"deepseek-ai/DeepSeek-V3"`)
	assert.Contains(t, body, `"chat_template_kwargs":{"thinking":true}`)
	assert.Contains(t, body, `"seed":12345678901234567`)
	assert.Contains(t, body, `"required":["location"]`)
}

func TestConvertRequestDisabledKeepsBody(t *testing.T) {
	c := newContext(t, weatherRequest)
	adaptor := NewAdaptor(WithCleanToolSchemas(false))

	converted, err := adaptor.ConvertRequest(c, constant.RelayModeChatCompletions, &model.GeneralOpenAIRequest{Model: "deepseek-chat"})
	require.NoError(t, err)

	data, err := json.Marshal(converted)
	require.NoError(t, err)
	assert.JSONEq(t, weatherRequest, string(data))
}

func TestConvertRequestTypedFallback(t *testing.T) {
	c := newContext(t, "not json")
	adaptor := NewAdaptor(WithCleanToolSchemas(true))
	strict := true
	request := &model.GeneralOpenAIRequest{
		Model: "deepseek-chat",
		Tools: []model.Tool{{
			Type: "function",
			Function: model.Function{
				Name:   "get_weather",
				Strict: &strict,
				Parameters: map[string]any{
					"type":                 "object",
					"additionalProperties": false,
				},
			},
		}},
	}

	converted, err := adaptor.ConvertRequest(c, constant.RelayModeChatCompletions, request)
	require.NoError(t, err)

	out, ok := converted.(*model.GeneralOpenAIRequest)
	require.True(t, ok)
	require.Len(t, out.Tools, 1)
	assert.Nil(t, out.Tools[0].Function.Strict)
	assert.Equal(t, map[string]any{"type": "object"}, out.Tools[0].Function.Parameters)

	// the request handed in is not modified
	assert.NotNil(t, request.Tools[0].Function.Strict)
	assert.Contains(t, request.Tools[0].Function.Parameters, "additionalProperties")
}

func TestConvertRequestNilRequest(t *testing.T) {
	c := newContext(t, "{}")
	_, err := NewAdaptor().ConvertRequest(c, constant.RelayModeChatCompletions, nil)
	assert.Error(t, err)
}
