package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/herbalscanner/backend/config"
)

// SetupRouter creates and configures the Gin router.
// limiter may be nil to disable per-IP rate limiting.
func SetupRouter(cfg *config.Config, handler *Handler, limiter *RateLimiter, logger *slog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.MaxMultipartMemory = maxUploadBytes

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(limiter.Middleware())
	}
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", handler.Signup)
			auth.POST("/login", handler.Login)
			auth.POST("/logout", handler.Logout)
			auth.GET("/session", handler.Session)
		}

		scans := v1.Group("/scans")
		{
			scans.POST("", handler.CreateScan)
			scans.GET("", handler.ListScans)
			scans.GET("/:id", handler.GetScan)
			scans.POST("/:id/bookmark", handler.ToggleBookmark)
			scans.PUT("/:id/notes", handler.UpdateNotes)
			scans.DELETE("/:id", handler.DeleteScan)
		}

		v1.GET("/stats", handler.Stats)

		library := v1.Group("/library")
		{
			library.GET("", handler.SearchLibrary)
			library.GET("/:id", handler.GetPlant)
		}
	}

	return router
}
