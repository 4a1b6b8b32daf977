package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizmatters/design-research-gateway/internal/auth"
)

// NewRouter registers every gateway route. metricsHandler may be nil.
func NewRouter(h *Handler, metricsHandler http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(h.logger.Named("http")))

	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := router.Group("/api")
	if h.sessionsEnabled() {
		api.Use(auth.OptionalSession(h.jwtManager, h.logger))
	}
	{
		api.POST("/dify", h.Invoke)
		api.GET("/dify", auth.RequireDiagnosticsToken(h.cfg.Diagnostics.TokenHash, h.logger), h.DescribeConfig)
		api.GET("/ws/dify", NewStreamProxy(h).StreamInvocation)

		api.POST("/export", h.Export)
		api.POST("/research", h.Research)
		api.POST("/generate-image", h.GenerateImage)
	}

	if h.sessionsEnabled() {
		api.POST("/sessions", h.CreateSession)

		sessions := api.Group("/sessions", auth.RequireSession(h.jwtManager, h.logger))
		{
			sessions.GET("/research", h.GetResearch)
			sessions.PUT("/research", h.UpdateResearch)
		}
	} else {
		h.logger.Info("Sessions disabled, session routes not registered")
	}

	return router
}
