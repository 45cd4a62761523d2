package common

import "time"

var StartTime = time.Now().Unix() // unit: second
var Version = "v0.1.0"

var SQLitePath = "vllm-relay.db"
var SQLiteBusyTimeout = 3000

var UsingSQLite = false
var UsingPostgreSQL = false
var UsingMySQL = false

const (
	ChannelStatusUnknown          = 0
	ChannelStatusEnabled          = 1
	ChannelStatusManuallyDisabled = 2
	ChannelStatusAutoDisabled     = 3
)

const (
	ChannelTypeUnknown    = 0
	ChannelTypeOpenAI     = 1
	ChannelTypeHostedVLLM = 2
	ChannelTypeDeepseek   = 3
	ChannelTypeCustom     = 8
)

var ChannelBaseURLs = []string{
	"",                         // 0
	"https://api.openai.com",   // 1
	"http://localhost:8000",    // 2
	"https://api.deepseek.com", // 3
	"",                         // 4
	"",                         // 5
	"",                         // 6
	"",                         // 7
	"",                         // 8
}

var ChannelTypeNames = map[int]string{
	ChannelTypeOpenAI:     "openai",
	ChannelTypeHostedVLLM: "hosted_vllm",
	ChannelTypeDeepseek:   "deepseek",
	ChannelTypeCustom:     "custom",
}

const (
	CacheChannelKey = "channel:%d"
)
