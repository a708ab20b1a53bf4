// Package router registers the chat service routes.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/handler"
	"github.com/kart-io/docchat/internal/docchat/metrics"
)

// Register registers the chat service routes on the engine.
func Register(engine *gin.Engine, h *handler.DocChatHandler) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, metrics.Get().Export("docchat", "server"))
	})

	v1 := engine.Group("/v1")
	{
		v1.POST("/chat", h.Chat)
		v1.POST("/retrieve", h.Retrieve)
		v1.POST("/reload", h.Reload)
		v1.GET("/documents", h.Documents)
		v1.GET("/stats", h.Stats)
	}

	logger.Info("HTTP routes registered")
}
