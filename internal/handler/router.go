package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/szurutag/internal/pkg/response"
)

type RouterDeps struct {
	Webhook *WebhookHandler
	Stats   *StatsHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/webhook", deps.Webhook.Notify)
	api.GET("/stats", deps.Stats.Get)
	api.GET("/healthz", healthz)
}

func healthz(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
