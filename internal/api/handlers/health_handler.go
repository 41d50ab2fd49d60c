package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is a dependency the readiness check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string            `json:"status" example:"healthy"`
	Timestamp time.Time         `json:"timestamp" example:"2026-03-10T09:00:00Z"`
	Checks    map[string]string `json:"checks,omitempty"`
	Cache     interface{}       `json:"cache,omitempty"`
}

type HealthHandler struct {
	checks       map[string]Pinger
	cacheMetrics func() map[string]interface{}
	timeout      time.Duration
	log          *zap.Logger
}

// NewHealthHandler builds the health checks. cacheMetrics may be nil.
func NewHealthHandler(checks map[string]Pinger, cacheMetrics func() map[string]interface{}, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		checks:       checks,
		cacheMetrics: cacheMetrics,
		timeout:      2 * time.Second,
		log:          log,
	}
}

// Live godoc
// @Summary Health check endpoint
// @Description Get the current health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// Ready godoc
// @Summary Readiness check endpoint
// @Description Checks the database and, when enabled, Redis
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.log.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			resp.Checks[name] = "down"
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}
	if h.cacheMetrics != nil {
		resp.Cache = h.cacheMetrics()
	}

	c.JSON(status, resp)
}
