package controller

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ezlinkai/vllm-relay/common"
	"github.com/ezlinkai/vllm-relay/common/config"
	"github.com/ezlinkai/vllm-relay/middleware"
	"github.com/ezlinkai/vllm-relay/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) {
	t.Helper()
	db, err := model.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))
	prevDB, prevCache := model.DB, config.MemoryCacheEnabled
	model.DB = db
	config.MemoryCacheEnabled = false
	t.Cleanup(func() {
		model.DB.Exec("DELETE FROM channels")
		model.DB = prevDB
		config.MemoryCacheEnabled = prevCache
	})
}

func addChannel(t *testing.T, name string, baseURL string, priority int64) *model.Channel {
	t.Helper()
	channel := &model.Channel{
		Type:     common.ChannelTypeHostedVLLM,
		Name:     name,
		Key:      "sk-" + name,
		Status:   common.ChannelStatusEnabled,
		BaseURL:  &baseURL,
		Models:   "deepseek-chat",
		Group:    "default",
		Priority: &priority,
	}
	require.NoError(t, channel.Insert())
	return channel
}

func newServer() *gin.Engine {
	gin.SetMode(gin.TestMode)
	server := gin.New()
	server.Use(middleware.RequestId())
	relay := server.Group("/v1")
	relay.GET("/models", ListModels)
	relay.GET("/models/:model", RetrieveModel)
	relay.POST("/chat/completions", middleware.Distribute(), Relay)
	api := server.Group("/api")
	api.GET("/status", GetStatus)
	api.GET("/channel", GetAllChannels)
	api.GET("/channel/types", ListTypes)
	api.GET("/channel/:id", GetChannel)
	api.POST("/channel", AddChannel)
	api.PUT("/channel", UpdateChannel)
	api.DELETE("/channel/:id", DeleteChannel)
	return server
}

func do(server *gin.Engine, method string, path string, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	server.ServeHTTP(w, req)
	return w
}

