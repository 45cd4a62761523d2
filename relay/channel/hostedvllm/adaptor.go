// Package hostedvllm relays OpenAI compatible requests to self-hosted vLLM
// servers. Tool schemas are cleaned before they are sent unless the gate is
// switched off with HOSTED_VLLM_CLEAN_TOOL_SCHEMAS or per channel.
package hostedvllm

import (
	"io"
	"net/http"

	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/env"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/relay/channel"
	"github.com/ezlinkai/vllm-relay/relay/channel/openai"
	"github.com/ezlinkai/vllm-relay/relay/constant"
	"github.com/ezlinkai/vllm-relay/relay/model"
	"github.com/ezlinkai/vllm-relay/relay/toolschema"
	"github.com/ezlinkai/vllm-relay/relay/util"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
)

const channelName = "hosted_vllm"

type Adaptor struct {
	ChannelType int

	cleanToolSchemas bool
	policy           toolschema.Policy
}

type options struct {
	cleanToolSchemas *bool
	policy           toolschema.Policy
}

type Option func(*options)

// WithCleanToolSchemas overrides HOSTED_VLLM_CLEAN_TOOL_SCHEMAS.
func WithCleanToolSchemas(enabled bool) Option {
	return func(o *options) {
		o.cleanToolSchemas = &enabled
	}
}

// WithToolSchemaPolicy replaces the cleaning strategy. A nil policy keeps the
// default one.
func WithToolSchemaPolicy(policy toolschema.Policy) Option {
	return func(o *options) {
		if policy != nil {
			o.policy = policy
		}
	}
}

// NewAdaptor resolves the cleaning flag once. The environment is not read
// again for the lifetime of the adaptor.
func NewAdaptor(opts ...Option) *Adaptor {
	o := options{policy: toolschema.Default}
	for _, opt := range opts {
		opt(&o)
	}
	return &Adaptor{
		cleanToolSchemas: ResolveCleanToolSchemas(o.cleanToolSchemas),
		policy:           o.policy,
	}
}

// ResolveCleanToolSchemas applies override > HOSTED_VLLM_CLEAN_TOOL_SCHEMAS > true.
func ResolveCleanToolSchemas(override *bool) bool {
	if override != nil {
		return *override
	}
	return env.Toggle(config.HostedVLLMCleanToolSchemasEnv)
}

func (a *Adaptor) CleanToolSchemas() bool {
	return a.cleanToolSchemas
}

func (a *Adaptor) Init(meta *util.RelayMeta) {
	a.ChannelType = meta.ChannelType
}

func (a *Adaptor) GetRequestURL(meta *util.RelayMeta) (string, error) {
	return channel.ChatCompletionsURL(meta)
}

func (a *Adaptor) SetupRequestHeader(c *gin.Context, req *http.Request, meta *util.RelayMeta) error {
	channel.SetupCommonRequestHeader(c, req, meta)
	// vLLM only checks the key when started with --api-key
	if meta.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+meta.APIKey)
	}
	return nil
}

// ConvertRequest forwards the client body as decoded JSON so unknown fields
// survive, with tools passed through the schema gate. When the raw body is
// not available the typed request is copied and cleaned instead.
func (a *Adaptor) ConvertRequest(c *gin.Context, relayMode int, request *model.GeneralOpenAIRequest) (any, error) {
	if request == nil {
		return nil, errors.New("request is nil")
	}
	ctx := c.Request.Context()
	if relayMode == constant.RelayModeChatCompletions && config.HostedVLLMValidateToolMessages {
		if err := CheckToolMessageSequence(request.Messages); err != nil {
			logger.Warnf(ctx, "hosted vllm may reject model %s: %s", request.Model, err.Error())
		}
	}

	raw, err := channel.RawRequestBody(c)
	if err == nil {
		raw["model"] = request.Model
		return a.MapOpenAIParams(raw, nil, request.Model, false), nil
	}
	logger.Debugf(ctx, "raw body unavailable, converting typed request: %s", err.Error())

	var converted model.GeneralOpenAIRequest
	if err = copier.CopyWithOption(&converted, request, copier.Option{DeepCopy: true}); err != nil {
		return nil, errors.Wrap(err, "copy request")
	}
	converted.Tools = toolschema.Apply(a.policy, request.Tools, a.cleanToolSchemas)
	return &converted, nil
}

// MapOpenAIParams merges nonDefaultParams over optionalParams. tools, when
// present, goes through the schema gate; every other parameter is forwarded
// as is. With dropParams set, parameters vLLM does not accept are left out.
func (a *Adaptor) MapOpenAIParams(nonDefaultParams map[string]any, optionalParams map[string]any, modelName string, dropParams bool) map[string]any {
	mapped := make(map[string]any, len(optionalParams)+len(nonDefaultParams))
	for k, v := range optionalParams {
		mapped[k] = v
	}
	for k, v := range nonDefaultParams {
		if dropParams && !IsSupportedParam(k) {
			continue
		}
		if k == "tools" {
			if v == nil {
				continue
			}
			v = toolschema.ApplyRaw(a.policy, v, a.cleanToolSchemas)
		}
		mapped[k] = v
	}
	return mapped
}

func (a *Adaptor) DoRequest(c *gin.Context, meta *util.RelayMeta, requestBody io.Reader) (*http.Response, error) {
	return channel.DoRequestHelper(a, c, meta, requestBody)
}

func (a *Adaptor) DoResponse(c *gin.Context, resp *http.Response, meta *util.RelayMeta) (usage *model.Usage, err *model.ErrorWithStatusCode) {
	if meta.IsStream {
		var responseText string
		err, responseText, usage = openai.StreamHandler(c, resp, meta.Mode)
		if usage == nil {
			usage = openai.ResponseText2Usage(responseText, meta.ActualModelName, meta.PromptTokens)
		}
	} else {
		err, usage = openai.Handler(c, resp, meta.PromptTokens, meta.ActualModelName)
	}
	return
}

func (a *Adaptor) GetModelList() []string {
	return ModelList
}

func (a *Adaptor) GetChannelName() string {
	return channelName
}
