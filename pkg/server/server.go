// Package server wires the gin router, middleware, and handlers into the
// HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/mindflow-live/mindflow/pkg/config"
	"github.com/mindflow-live/mindflow/pkg/server/handlers"
)

// localOrigin matches any localhost origin regardless of port, so local
// development never needs CORS configuration.
var localOrigin = regexp.MustCompile(`^http://(localhost|127\.0\.0\.1)(:\d+)?$`)

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	logger  *slog.Logger
	router  *gin.Engine
	service handlers.Coordinator
	server  *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, service handlers.Coordinator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		logger:  logger,
		service: service,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware(s.config.CORS.AllowedOrigin))

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.service)
	ingestHandler := handlers.NewIngestHandler(s.service, s.logger)
	graphHandler := handlers.NewGraphHandler(s.service, s.logger)
	searchHandler := handlers.NewSearchHandler(s.service, s.logger)

	api := s.router.Group("/api")
	{
		api.GET("/health", healthHandler.HealthCheck)
		api.POST("/ingest", ingestHandler.Ingest)
		api.GET("/graph", graphHandler.GetGraph)
		api.POST("/search", searchHandler.Search)
	}
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware allows the configured production origin plus any localhost
// origin, with credentials. Disallowed origins get no CORS headers at all.
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (origin == allowedOrigin || localOrigin.MatchString(origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "*")
			c.Header("Access-Control-Allow-Methods", "*")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
