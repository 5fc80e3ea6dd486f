package handlers

import (
	"net/http"
	"time"

	"siliconflow-balance-plugin/internal/services"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checker services.HealthCheckerInterface
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker services.HealthCheckerInterface, version string) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		version: version,
	}
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status    services.HealthStatus            `json:"status"`
	Timestamp time.Time                        `json:"timestamp"`
	Services  map[string]*services.HealthCheck `json:"services"`
	Version   string                           `json:"version,omitempty"`
}

// GetHealth returns the overall health status
func (h *HealthHandler) GetHealth(c *gin.Context) {
	checks := h.checker.GetDetailedHealth()

	overallStatus := services.HealthStatusHealthy
	for _, check := range checks {
		if check.Status == services.HealthStatusUnhealthy {
			overallStatus = services.HealthStatusUnhealthy
			break
		} else if check.Status == services.HealthStatusDegraded {
			overallStatus = services.HealthStatusDegraded
		}
	}

	// Degraded still answers 200
	statusCode := http.StatusOK
	if overallStatus == services.HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Services:  checks,
		Version:   h.version,
	})
}

// GetLiveness returns a simple liveness check
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// GetReadiness reports ready once a credential is configured
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	check := h.checker.CheckHealth()

	if check.Status != services.HealthStatusHealthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not_ready",
			"message":   check.Message,
			"timestamp": time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}
