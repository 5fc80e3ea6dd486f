package services

import (
	"fmt"
	"net/url"
	"time"

	"siliconflow-balance-plugin/internal/config"
)

// HealthStatus represents the health status of a service
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck represents a health check result
type HealthCheck struct {
	Service      string        `json:"service"`
	Status       HealthStatus  `json:"status"`
	Message      string        `json:"message,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
	Timestamp    time.Time     `json:"timestamp"`
}

// PluginHealthChecker reports whether the plugin can serve queries.
// It only inspects configuration and never calls the balance API.
type PluginHealthChecker struct {
	config *config.Config
}

// NewPluginHealthChecker creates a health checker over cfg
func NewPluginHealthChecker(cfg *config.Config) *PluginHealthChecker {
	return &PluginHealthChecker{config: cfg}
}

func newHealthCheck(service string, start time.Time, status HealthStatus, message string) *HealthCheck {
	return &HealthCheck{
		Service:      service,
		Status:       status,
		Message:      message,
		ResponseTime: time.Since(start),
		Timestamp:    start,
	}
}

// CheckHealth checks that a credential is configured. A missing key is
// degraded rather than unhealthy: the command still answers with
// instructions.
func (p *PluginHealthChecker) CheckHealth() *HealthCheck {
	start := time.Now()

	if p.config.API.APIKey == "" {
		return newHealthCheck("credential", start, HealthStatusDegraded, "api.api_key is not configured")
	}
	return newHealthCheck("credential", start, HealthStatusHealthy, "api key configured")
}

// CheckEndpoint validates the configured endpoint URL
func (p *PluginHealthChecker) CheckEndpoint() *HealthCheck {
	start := time.Now()

	u, err := url.Parse(p.config.API.Endpoint)
	if err != nil {
		return newHealthCheck("endpoint", start, HealthStatusUnhealthy, fmt.Sprintf("invalid endpoint: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return newHealthCheck("endpoint", start, HealthStatusUnhealthy, fmt.Sprintf("invalid endpoint %q", p.config.API.Endpoint))
	}
	return newHealthCheck("endpoint", start, HealthStatusHealthy, u.Host)
}

// CheckPlugin reports whether the plugin is enabled
func (p *PluginHealthChecker) CheckPlugin() *HealthCheck {
	start := time.Now()

	if !p.config.Plugin.Enabled {
		return newHealthCheck("plugin", start, HealthStatusDegraded, "plugin disabled")
	}
	return newHealthCheck("plugin", start, HealthStatusHealthy, "plugin enabled")
}

// GetDetailedHealth returns every check keyed by name
func (p *PluginHealthChecker) GetDetailedHealth() map[string]*HealthCheck {
	return map[string]*HealthCheck{
		"credential": p.CheckHealth(),
		"endpoint":   p.CheckEndpoint(),
		"plugin":     p.CheckPlugin(),
	}
}
