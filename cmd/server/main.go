package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/herbalscanner/backend/config"
	httpDelivery "github.com/herbalscanner/backend/internal/delivery/http"
	"github.com/herbalscanner/backend/internal/infrastructure/catalog"
	"github.com/herbalscanner/backend/internal/infrastructure/logging"
	"github.com/herbalscanner/backend/internal/infrastructure/predictor"
	"github.com/herbalscanner/backend/internal/infrastructure/storage"
	"github.com/herbalscanner/backend/internal/usecase"
)

const (
	shutdownTimeout        = 10 * time.Second
	rateLimitCleanupPeriod = time.Minute
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := logging.New(cfg.Log)

	logger.Info("starting HerbalScanner backend",
		"version", "1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Type,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize infrastructure dependencies
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close storage", "error", err)
		}
	}()

	// Uploads are written by the handler and read back by the predictor
	osFs := afero.NewOsFs()

	library, err := catalog.Load(osFs, cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load plant library: %w", err)
	}
	logger.Info("plant library loaded", "plants", library.Len(), "path", cfg.Catalog.Path)

	classifier := predictor.NewClient(cfg.Predictor.BaseURL, predictor.Options{
		Timeout:   cfg.Predictor.Timeout,
		RateLimit: cfg.Predictor.RateLimit,
		Burst:     cfg.Predictor.Burst,
		Logger:    logger,
		Fs:        osFs,
	})
	logger.Info("predictor configured",
		"base_url", cfg.Predictor.BaseURL,
		"timeout", cfg.Predictor.Timeout,
		"rate_limit", cfg.Predictor.RateLimit,
	)

	// Initialize usecase layer
	authService := usecase.NewAuthService(store, usecase.AuthServiceConfig{
		PasswordHashCost: cfg.Auth.PasswordHashCost,
	}, logger)
	historyService := usecase.NewHistoryService(store, authService, logger)
	scanService := usecase.NewScanService(classifier, library, historyService, logger)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(httpDelivery.Dependencies{
		Auth:      authService,
		History:   historyService,
		Scans:     scanService,
		Library:   library,
		Uploads:   osFs,
		UploadDir: cfg.Storage.UploadDir,
		Logger:    logger,
	})

	var limiter *httpDelivery.RateLimiter
	if cfg.RateLimit.PerIP > 0 {
		limiter = httpDelivery.NewRateLimiter(cfg.RateLimit.PerIP, rateLimitCleanupPeriod)
		defer limiter.Stop()
	}

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, limiter, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
