package routes

import (
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/handlers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupHealthRoutes registers health check and metrics endpoints
func SetupHealthRoutes(router *gin.Engine, handler *handlers.HealthHandler) {
	router.GET("/health", handler.Live)
	router.GET("/health/ready", handler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
