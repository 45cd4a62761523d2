package util

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/service"
)

var HTTPClient *http.Client

func init() {
	if config.RelayTimeout == 0 {
		HTTPClient = &http.Client{}
	} else {
		HTTPClient = &http.Client{
			Timeout: time.Duration(config.RelayTimeout) * time.Second,
		}
	}
}

// GetHTTPClient returns the proxy client configured on the channel, falling
// back to the shared relay client.
func GetHTTPClient(meta *RelayMeta) *http.Client {
	if meta == nil || meta.Config.Proxy == "" {
		return HTTPClient
	}
	client, err := service.NewProxyHttpClient(meta.Config.Proxy)
	if err != nil {
		logger.SysError(fmt.Sprintf("channel %d proxy %q unusable, relaying directly: %s", meta.ChannelId, meta.Config.Proxy, err.Error()))
		return HTTPClient
	}
	return client
}
