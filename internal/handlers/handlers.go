package handlers

import (
	"net/http"
	"time"

	"castflow/internal/metrics"
	"castflow/internal/services"

	"github.com/gin-gonic/gin"
)

// LogStreamHandler exposes the live execution log stream.
type LogStreamHandler struct {
	hub *services.LogStreamHub
}

func NewLogStreamHandler(hub *services.LogStreamHub) *LogStreamHandler {
	return &LogStreamHandler{hub: hub}
}

func (h *LogStreamHandler) HandleWebSocket(c *gin.Context) {
	h.hub.HandleWebSocket(c)
}

func (h *LogStreamHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": map[string]interface{}{
			"connected_clients": h.hub.ClientCount(),
			"status":            "running",
		},
	})
}

// MetricsHandler exposes the engine and rate limit counters.
type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

func (h *MetricsHandler) Metrics(c *gin.Context) {
	rlTotal, rlByPrefix := metrics.RateLimitSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"engine": metrics.SnapshotEngine(),
		"rate_limit": gin.H{
			"dropped_total":     rlTotal,
			"dropped_by_prefix": rlByPrefix,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": c.GetHeader("X-Request-Time"),
		"version":   "1.0.0",
	})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}
