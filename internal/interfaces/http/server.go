// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/interfaces/http/middleware"
	"github.com/your-org/hospital-backend/internal/interfaces/http/routes"
	"gorm.io/gorm"
)

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	gin         *gin.Engine
	httpServer  *http.Server
	db          *gorm.DB
	redisClient *redis.Client
	startedAt   time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	return &Server{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
	}
}

// Start builds the engine and serves until Stop or a listen error
func (s *Server) Start() error {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	s.gin = gin.New()

	// Install custom binding rules before any route binds a request
	registerValidations()

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}
	s.startedAt = time.Now()

	log.Printf("🚀 HTTP Server starting on port %s", s.config.Server.Port)
	log.Printf("🌐 API Base URL: http://localhost:%s/api/v1", s.config.Server.Port)
	log.Printf("📊 Health Check: http://localhost:%s/health", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	log.Println("🛑 Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	log.Println("✅ HTTP server stopped gracefully")
	return nil
}

// setupMiddleware wires the chain. Order matters: recovery wraps
// everything and the limiters run before any handler work.
func (s *Server) setupMiddleware() {
	s.gin.Use(
		gin.Recovery(),
		middleware.Logger(s.config),
		middleware.RequestID(),
		middleware.CORS(s.config),
		middleware.SecurityHeaders(),
		middleware.RateLimit(s.config, s.redisClient),
		middleware.RequestSizeLimit(10<<20),
		middleware.Timeout(30*time.Second),
	)
}

// setupRoutes mounts probes, the versioned API, and the dev-only docs
func (s *Server) setupRoutes() {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)

	apiV1 := s.gin.Group("/api/v1")
	routes.SetupRoutes(apiV1, s.db, s.redisClient, s.config)

	if s.config.IsDevelopment() {
		s.gin.Static("/docs", "./docs")
		s.gin.GET("/", s.rootIndex)
	}
}

// rootIndex sketches the API surface for developers poking around
func (s *Server) rootIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":     "Hospital Pharmacy API",
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
		"docs":        "/docs",
		"health":      "/health",
		"endpoints": gin.H{
			"auth":        "/api/v1/auth",
			"patients":    "/api/v1/patients",
			"pharmacy":    "/api/v1/pharmacy",
			"inventory":   "/api/v1/inventory",
			"procurement": "/api/v1/procurement",
			"billing":     "/api/v1/billing",
			"catalog":     "/api/v1/catalog",
			"reports":     "/api/v1/reports",
			"admin":       "/api/v1/admin",
		},
	})
}

// healthCheck reports per-dependency health; any failure answers 503
func (s *Server) healthCheck(c *gin.Context) {
	checks := gin.H{"database": "up", "redis": "up"}
	healthy := true

	if sqlDB, err := s.db.DB(); err != nil || sqlDB.Ping() != nil {
		checks["database"] = "down"
		healthy = false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		checks["redis"] = "down"
		healthy = false
	}

	payload := gin.H{
		"status":      "healthy",
		"checks":      checks,
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	}
	if !healthy {
		payload["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, payload)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// readinessCheck answers once the server is accepting traffic
func (s *Server) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).String(),
	})
}
