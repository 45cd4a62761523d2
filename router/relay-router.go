package router

import (
	"github.com/ezlinkai/vllm-relay/controller"
	"github.com/ezlinkai/vllm-relay/middleware"
	"github.com/gin-gonic/gin"
)

func SetRelayRouter(router *gin.Engine) {
	// https://platform.openai.com/docs/api-reference/introduction
	modelsRouter := router.Group("/v1/models")
	modelsRouter.Use(middleware.CORS(), middleware.TokenAuth())
	{
		modelsRouter.GET("", controller.ListModels)
		modelsRouter.GET("/:model", controller.RetrieveModel)
	}
	relayV1Router := router.Group("/v1")
	relayV1Router.Use(middleware.CORS(), middleware.RelayPanicRecover(), middleware.TokenAuth(), middleware.Distribute())
	{
		relayV1Router.POST("/completions", controller.Relay)
		relayV1Router.POST("/chat/completions", controller.Relay)
		relayV1Router.POST("/embeddings", controller.RelayNotImplemented)
		relayV1Router.POST("/responses", controller.RelayNotImplemented)
	}
}
