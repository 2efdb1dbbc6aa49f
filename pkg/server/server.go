package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tastesync/pkg/config"
	"tastesync/pkg/logging"
	"tastesync/pkg/middleware"
	"tastesync/pkg/monitoring"
)

// Config represents server configuration
type Config struct {
	Port            string
	ServiceName     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// DefaultConfig returns default server configuration. Generation requests
// wait on a hosted model, so the write timeout is generous.
func DefaultConfig(serviceName, defaultPort string) Config {
	return Config{
		Port:            config.GetEnv("PORT", defaultPort),
		ServiceName:     serviceName,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    config.GetEnvDuration("HTTP_WRITE_TIMEOUT", 180*time.Second),
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     config.GetEnvList("CORS_ORIGINS"),
	}
}

// SetupServiceRouter creates a gin engine with the common middleware chain,
// /health backed by health and /metrics backed by metrics.
func SetupServiceRouter(logger logging.Logger, cfg Config, health *monitoring.HealthChecker, metrics *monitoring.MetricsCollector) *gin.Engine {
	if config.GetEnv("GIN_MODE", "debug") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	if metrics != nil {
		router.Use(metrics.MetricsMiddleware())
		router.GET("/metrics", metrics.Handler())
	}

	if health != nil {
		router.GET("/health", health.Handler())
	} else {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": monitoring.StatusHealthy, "service": cfg.ServiceName})
		})
	}

	return router
}

// Start serves router until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, cfg Config, router http.Handler, logger logging.Logger) error {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logging.Fields{
			"port":    cfg.Port,
			"service": cfg.ServiceName,
		}).Info("Starting HTTP server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.WithField("service", cfg.ServiceName).Info("Shutting down server...")

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.WithField("service", cfg.ServiceName).Info("Server stopped")
	return nil
}
