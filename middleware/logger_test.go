package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/common/logger"
	"github.com/ezlinkai/vllm-relay/relay/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAccessLogEntryCarriesRelayFields(t *testing.T) {
	entry := newAccessLogEntry(gin.LogFormatterParams{
		TimeStamp:  time.Unix(0, 0),
		StatusCode: http.StatusBadGateway,
		Latency:    1500 * time.Millisecond,
		Method:     http.MethodPost,
		Path:       "/v1/chat/completions",
		Keys: map[string]any{
			logger.RequestIdKey:   "req-1",
			util.CtxGroup:         "default",
			util.CtxOriginModel:   "hosted_vllm/deepseek-chat",
			util.CtxChannelId:     7,
			util.CtxChannelName:   "vllm-a",
			util.CtxRelayAttempts: 2,
			"first_word_latency":  0.25,
		},
	})

	assert.Equal(t, "error", entry.Level)
	assert.Equal(t, "req-1", entry.RequestId)
	assert.Equal(t, int64(1500), entry.LatencyMs)
	assert.Equal(t, "hosted_vllm/deepseek-chat", entry.Model)
	assert.Equal(t, 7, entry.ChannelId)
	assert.Equal(t, "vllm-a", entry.ChannelName)
	assert.Equal(t, 2, entry.Attempts)
	assert.Equal(t, 0.25, entry.FirstWordDelay)
	assert.Equal(t, config.ServiceName, entry.Service)
}

func TestAccessLogEntryWithoutChannel(t *testing.T) {
	entry := newAccessLogEntry(gin.LogFormatterParams{StatusCode: http.StatusUnauthorized})
	assert.Equal(t, "warn", entry.Level)
	assert.Zero(t, entry.ChannelId)
	assert.Empty(t, entry.Model)
}

func TestRequestIdPropagation(t *testing.T) {
	server := newAuthServer(func(c *gin.Context) { c.Next() })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set(logger.RequestIdKey, "client-id")
	server.ServeHTTP(w, req)
	assert.Equal(t, "client-id", w.Header().Get(logger.RequestIdKey))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set(logger.RequestIdKey, strings.Repeat("x", maxRequestIdLength+1))
	server.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get(logger.RequestIdKey), 22)
}

func TestCORSAllowedOrigins(t *testing.T) {
	prev := config.CorsAllowedOrigins
	t.Cleanup(func() { config.CorsAllowedOrigins = prev })
	config.CorsAllowedOrigins = "https://chat.example.com"

	gin.SetMode(gin.TestMode)
	server := gin.New()
	server.Use(CORS())
	server.GET("/v1/models", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for origin, allowed := range map[string]bool{
		"https://chat.example.com": true,
		"https://evil.example.com": false,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
		req.Header.Set("Origin", origin)
		server.ServeHTTP(w, req)
		if allowed {
			assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
		} else {
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		}
	}
}
