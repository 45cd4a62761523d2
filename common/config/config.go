package config

import (
	"os"
	"strings"

	"github.com/ezlinkai/vllm-relay/common/env"
	"github.com/google/uuid"
)

var SystemName = "vLLM Relay"

var ServiceName = env.String("SERVICE_NAME", "vllm-relay")
var InstanceId = env.String("INSTANCE_ID", uuid.New().String()[:8])

var DebugEnabled = strings.ToLower(os.Getenv("DEBUG")) == "true"
var DebugSQLEnabled = strings.ToLower(os.Getenv("DEBUG_SQL")) == "true"
var MemoryCacheEnabled = strings.ToLower(os.Getenv("MEMORY_CACHE_ENABLED")) == "true"

// Admin API access. Empty disables /api/channel.
var AdminToken = os.Getenv("ADMIN_TOKEN")

// Comma separated client keys accepted on /v1. Empty accepts any caller.
var RelayAPIKeys = env.String("RELAY_API_KEYS", "")

// Comma separated browser origins. Empty allows any origin.
var CorsAllowedOrigins = env.String("CORS_ALLOWED_ORIGINS", "")

var ChannelsFile = env.String("CHANNELS_FILE", "")

var SyncFrequency = env.Int("SYNC_FREQUENCY", 10*60) // unit is second

var RelayTimeout = env.Int("RELAY_TIMEOUT", 0) // unit is second

var RetryTimes = env.Int("RETRY_TIMES", 0)

var ApproximateTokenEnabled = env.Bool("APPROXIMATE_TOKEN_ENABLED", false)

var AutomaticDisableChannelEnabled = env.Bool("AUTOMATIC_DISABLE_CHANNEL_ENABLED", false)

// One keyword per line, matched case-insensitively against upstream error messages.
var AutoDisableKeywords = `api key not valid
invalid_api_key
incorrect api key provided
authentication_error
permission denied
account_deactivated
insufficient_quota`

var EnableMetric = env.Bool("ENABLE_METRIC", false)
var MetricQueueSize = env.Int("METRIC_QUEUE_SIZE", 10)
var MetricSuccessRateThreshold = env.Float64("METRIC_SUCCESS_RATE_THRESHOLD", 0.8)
var MetricSuccessChanSize = env.Int("METRIC_SUCCESS_CHAN_SIZE", 1024)
var MetricFailChanSize = env.Int("METRIC_FAIL_CHAN_SIZE", 128)

// HostedVLLMCleanToolSchemasEnv is read once per hosted vLLM adaptor construction.
const HostedVLLMCleanToolSchemasEnv = "HOSTED_VLLM_CLEAN_TOOL_SCHEMAS"

var HostedVLLMAPIBase = env.String("HOSTED_VLLM_API_BASE", "http://localhost:8000")

// HostedVLLMValidateToolMessages enables the local tool message sequence check (warning only).
var HostedVLLMValidateToolMessages = env.Toggle("HOSTED_VLLM_VALIDATE_TOOL_MESSAGES")
