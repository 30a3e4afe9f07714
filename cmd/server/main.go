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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/portfolio/backend/internal/config"
	"github.com/portfolio/backend/internal/db"
	"github.com/portfolio/backend/internal/logger"
	"github.com/portfolio/backend/internal/middleware"
	"github.com/portfolio/backend/internal/routes"
)

func main() {
	// Initialize logger first
	logger.Initialize()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{"error": err.Error()})
	}

	// The metadata store is optional; without it lookups fail per request.
	var conn *gorm.DB
	if cfg.DatabaseURL != "" {
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal("Failed to run migrations", map[string]interface{}{"error": err.Error()})
		}
		conn, err = db.Connect(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
		}
	} else {
		logger.Warn("DATABASE_URL not set, metadata store disabled", nil)
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	r := gin.New()

	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigin))
	r.Use(gin.Recovery())

	svc := routes.NewServices(cfg, conn)

	r.GET("/health", func(c *gin.Context) {
		dbStatus := gin.H{"status": "disabled"}
		statusCode := http.StatusOK
		overallStatus := "ok"

		if conn != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := db.Ping(ctx, conn); err != nil {
				dbStatus = gin.H{"status": "error", "error": err.Error()}
				statusCode = http.StatusServiceUnavailable
				overallStatus = "error"
			} else {
				dbStatus = gin.H{"status": "ok"}
			}
		}

		storageStatus := gin.H{"status": "ok"}
		if svc.StorageErr != nil {
			storageStatus = gin.H{"status": "unconfigured", "error": svc.StorageErr.Error()}
		}

		c.JSON(statusCode, gin.H{
			"status":    overallStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
			"services": gin.H{
				"database": dbStatus,
				"storage":  storageStatus,
				"gemini":   gin.H{"configured": svc.Gemini.HasKey(), "model": svc.Gemini.Model()},
			},
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.SetupRoutes(r, cfg, svc)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	logger.Info("Starting portfolio backend server", map[string]interface{}{
		"port":     cfg.Port,
		"gin_mode": gin.Mode(),
		"app_env":  cfg.AppEnv,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
	logger.Info("Shutting down server gracefully...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		logger.Info("Server exited gracefully", nil)
	}
}
