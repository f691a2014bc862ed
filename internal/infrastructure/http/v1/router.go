// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"buildplus/internal/core/tx"
	"buildplus/internal/infrastructure/http/v1/handlers"
	"buildplus/internal/infrastructure/http/v1/middleware"
	"buildplus/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// TxManager is injected into every API request context for repositories.
	TxManager tx.Manager

	// Database backs the readiness and info probes.
	Database handlers.DatabaseProbe

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// DeletionService serves the admin data deletion endpoints.
	DeletionService handlers.DeletionService

	// AdminRole is required on /api/admin routes.
	AdminRole string

	// Version is reported by /health/info.
	Version string

	// GinMode is one of gin.DebugMode, gin.ReleaseMode, gin.TestMode.
	GinMode string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	mode := cfg.GinMode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	adminRole := cfg.AdminRole
	if adminRole == "" {
		adminRole = "ADMIN"
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no company required)
	if cfg.Database != nil {
		healthHandler := handlers.NewHealthHandler(cfg.Database, cfg.Version)
		health := router.Group("/health")
		{
			health.GET("/live", healthHandler.Live)
			health.GET("/ready", healthHandler.Ready)
			health.GET("/info", healthHandler.Info)
		}
	}

	admin := router.Group("/api/admin")
	if cfg.TxManager != nil {
		admin.Use(middleware.Database(cfg.TxManager)) // 1. Repositories find the TxManager in context
	}
	admin.Use(middleware.Auth(cfg.JWTValidator)) // 2. Validate JWT
	admin.Use(middleware.Company())              // 3. Company from token, optional header must match
	admin.Use(middleware.RequireRole(adminRole)) // 4. Admin only

	if cfg.DeletionService != nil {
		RegisterDataDeletionRoutes(admin.Group("/data-deletion"), handlers.NewDataDeletionHandler(cfg.DeletionService))
	}

	return router
}
