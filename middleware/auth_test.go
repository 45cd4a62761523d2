package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newAuthServer(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	server := gin.New()
	server.Use(RequestId())
	server.GET("/guarded", handler, func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return server
}

func serve(server *gin.Engine, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	server.ServeHTTP(w, req)
	return w
}

func TestTokenAuth(t *testing.T) {
	prev := config.RelayAPIKeys
	t.Cleanup(func() { config.RelayAPIKeys = prev })

	config.RelayAPIKeys = ""
	server := newAuthServer(TokenAuth())
	assert.Equal(t, http.StatusOK, serve(server, "").Code, "open without keys")

	config.RelayAPIKeys = "sk-alpha, beta"
	assert.Equal(t, http.StatusOK, serve(server, "Bearer sk-alpha").Code)
	assert.Equal(t, http.StatusOK, serve(server, "Bearer beta").Code)
	assert.Equal(t, http.StatusOK, serve(server, "Bearer sk-beta").Code)

	w := serve(server, "Bearer sk-gamma")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid relay api key")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAdminAuth(t *testing.T) {
	prev := config.AdminToken
	t.Cleanup(func() { config.AdminToken = prev })
	server := newAuthServer(AdminAuth())

	config.AdminToken = ""
	assert.Equal(t, http.StatusForbidden, serve(server, "Bearer anything").Code)

	config.AdminToken = "root-token"
	assert.Equal(t, http.StatusOK, serve(server, "Bearer root-token").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(server, "Bearer other").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(server, "").Code)
}

func TestRequestIdKeepsClientValue(t *testing.T) {
	server := newAuthServer(func(c *gin.Context) { c.Next() })
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("X-Request-ID", "client-id")
	server.ServeHTTP(w, req)
	assert.Equal(t, "client-id", w.Header().Get("X-Request-ID"))
}
