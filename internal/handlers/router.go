package handlers

import (
	"github.com/gin-gonic/gin"
)

// Router handles HTTP routing setup
type Router struct {
	commandHandler *CommandHandler
	pluginHandler  *PluginHandler
	healthHandler  *HealthHandler
}

// NewRouter creates a new Router instance with all handlers
func NewRouter(commandHandler *CommandHandler, pluginHandler *PluginHandler, healthHandler *HealthHandler) *Router {
	return &Router{
		commandHandler: commandHandler,
		pluginHandler:  pluginHandler,
		healthHandler:  healthHandler,
	}
}

// SetupRoutes configures the API routes on group, which carries any
// authentication middleware
func (r *Router) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/commands", r.commandHandler.Invoke)
	api.GET("/plugin", r.pluginHandler.GetManifest)
}

// SetupHealthRoutes configures health check routes
func (r *Router) SetupHealthRoutes(engine *gin.Engine) {
	health := engine.Group("/health")
	{
		health.GET("", r.healthHandler.GetHealth)
		health.GET("/live", r.healthHandler.GetLiveness)
		health.GET("/ready", r.healthHandler.GetReadiness)
	}
}
