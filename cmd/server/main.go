package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"siliconflow-balance-plugin/internal/command"
	"siliconflow-balance-plugin/internal/config"
	"siliconflow-balance-plugin/internal/handlers"
	"siliconflow-balance-plugin/internal/middleware"
	"siliconflow-balance-plugin/internal/plugin"
	"siliconflow-balance-plugin/internal/services"
	"siliconflow-balance-plugin/pkg/logger"
	"siliconflow-balance-plugin/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "siliconflow-balance-plugin"

// Server represents the main application server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	metrics    *metrics.MetricsCollector
	client     *services.SiliconFlowClient
	plugin     *plugin.Plugin
	health     *services.PluginHealthChecker
	router     *handlers.Router
}

func main() {
	// PLUGIN_CONFIG_PATH overrides the default plugin config location
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := &logger.Config{
		Level:       cfg.Logging.Level,
		Environment: cfg.Logging.Environment,
		OutputPaths: cfg.Logging.OutputPaths,
	}

	if err := logger.Initialize(loggerConfig); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log := logger.GetLogger()

	log.Info("Starting SiliconFlow balance plugin server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("endpoint", cfg.API.Endpoint),
		zap.Duration("timeout", cfg.API.Timeout),
		zap.Bool("api_key_configured", cfg.API.APIKey != ""),
		zap.Bool("plugin_enabled", cfg.Plugin.Enabled),
		zap.Strings("command_prefixes", cfg.Plugin.CommandPrefixes),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("environment", cfg.Logging.Environment),
	)

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	if err := server.Start(); err != nil {
		log.Fatal("Server failed to start", zap.Error(err))
	}
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	log := logger.GetLogger()

	log.Info("Initializing server components")

	mc := metrics.NewMetricsCollector()

	log.Debug("Initializing SiliconFlow client")
	client := services.NewSiliconFlowClient(&cfg.API, mc)

	log.Debug("Initializing plugin")
	p := plugin.New(cfg, client, mc)

	registry := command.NewRegistry()
	if err := p.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register plugin commands: %w", err)
	}
	dispatcher := command.NewDispatcher(registry, p.Permissions(), cfg.Plugin.CommandPrefixes)

	health := services.NewPluginHealthChecker(cfg)
	if check := health.CheckHealth(); check.Status != services.HealthStatusHealthy {
		log.Warn("Plugin credential check failed", zap.String("message", check.Message))
	}

	router := handlers.NewRouter(
		handlers.NewCommandHandler(dispatcher),
		handlers.NewPluginHandler(p.Manifest(), registry),
		handlers.NewHealthHandler(health, p.Manifest().Version),
	)

	log.Info("Server components initialized successfully")

	return &Server{
		config:  cfg,
		metrics: mc,
		client:  client,
		plugin:  p,
		health:  health,
		router:  router,
	}, nil
}

// Engine builds the gin engine with middleware and routes
func (s *Server) Engine() *gin.Engine {
	engine := gin.New()
	s.setupMiddleware(engine)
	s.setupRoutes(engine)
	return engine
}

// Start starts the HTTP server with graceful shutdown handling
func (s *Server) Start() error {
	log := logger.GetLogger()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:           s.Engine(),
		ReadTimeout:       s.config.Server.ReadTimeout,
		WriteTimeout:      s.config.Server.WriteTimeout,
		IdleTimeout:       s.config.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	log.Info("HTTP server configured",
		zap.String("address", s.httpServer.Addr),
		zap.Duration("read_timeout", s.config.Server.ReadTimeout),
		zap.Duration("write_timeout", s.config.Server.WriteTimeout),
		zap.Duration("idle_timeout", s.config.Server.IdleTimeout),
		zap.Bool("auth_enabled", s.config.Server.AuthToken != ""),
	)

	go func() {
		log.Info("Starting HTTP server", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	return s.waitForShutdown()
}

// setupMiddleware configures the middleware stack
func (s *Server) setupMiddleware(engine *gin.Engine) {
	// Recovery first so panics in later middleware are caught
	engine.Use(logger.RecoveryMiddleware())
	engine.Use(logger.LoggingMiddleware())
	engine.Use(middleware.MetricsMiddleware(s.metrics))
	engine.Use(s.corsMiddleware())
}

// setupRoutes configures all application routes
func (s *Server) setupRoutes(engine *gin.Engine) {
	s.router.SetupHealthRoutes(engine)

	api := engine.Group("/api")
	api.Use(middleware.AuthMiddleware(s.config.Server.AuthToken))
	s.router.SetupRoutes(api)

	engine.GET("/metrics", s.metricsHandler)
	engine.GET("/status", s.statusHandler)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Correlation-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// metricsHandler reports request, invocation and upstream counters
func (s *Server) metricsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":      serviceName,
		"version":      s.plugin.Manifest().Version,
		"metrics":      s.metrics.GetMetrics(),
		"success_rate": s.metrics.GetSuccessRate(),
	})
}

// statusHandler provides detailed status information
func (s *Server) statusHandler(c *gin.Context) {
	credential := s.health.CheckHealth()

	c.JSON(http.StatusOK, gin.H{
		"service":            serviceName,
		"status":             "running",
		"plugin":             plugin.Name,
		"plugin_enabled":     s.config.Plugin.Enabled,
		"api_key_configured": credential.Status == services.HealthStatusHealthy,
		"endpoint":           s.config.API.Endpoint,
		"uptime":             s.metrics.GetUptime().String(),
		"version":            s.plugin.Manifest().Version,
	})
}

// waitForShutdown waits for interrupt signal and performs graceful shutdown
func (s *Server) waitForShutdown() error {
	log := logger.GetLogger()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Info("Shutting down HTTP server", zap.Duration("timeout", 30*time.Second))

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	m := s.metrics.GetMetrics()
	log.Info("Server gracefully stopped",
		zap.Int64("total_requests", m.TotalRequests),
		zap.Int64("invocations", m.Invocations),
		zap.Int64("upstream_calls", m.UpstreamCalls),
	)

	// Sync errors on stdout/stderr are expected and not worth reporting
	_ = logger.GetLogger().Sync()
	return nil
}
