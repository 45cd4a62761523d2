package router

import (
	"github.com/ezlinkai/vllm-relay/controller"
	"github.com/gin-gonic/gin"
)

func SetRouter(router *gin.Engine) {
	SetApiRouter(router)
	SetRelayRouter(router)
	router.NoRoute(controller.RelayNotFound)
}
