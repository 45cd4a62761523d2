package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	server := gin.New()
	SetRouter(server)
	return server
}

func TestUnknownRoute(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid URL (GET /v1/unknown)")
}

func TestStatusIsPublic(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestChannelAPIRequiresAdmin(t *testing.T) {
	prev := config.AdminToken
	config.AdminToken = "root-token"
	t.Cleanup(func() { config.AdminToken = prev })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/channel/", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer wrong")
	newRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRelayRequiresKey(t *testing.T) {
	prev := config.RelayAPIKeys
	config.RelayAPIKeys = "sk-relay"
	t.Cleanup(func() { config.RelayAPIKeys = prev })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"deepseek-chat"}`))
	newRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
