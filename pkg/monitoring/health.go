package monitoring

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp int64                  `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckResult represents the result of an individual health check
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthCheck is a function that performs a health check
type HealthCheck func(ctx context.Context) CheckResult

// Pinger is anything with a context-aware Ping (franz-go clients, adapters
// around Redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

type registeredCheck struct {
	check    HealthCheck
	optional bool
}

// HealthChecker manages and executes health checks
type HealthChecker struct {
	service string
	version string
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]registeredCheck
}

// NewHealthChecker creates a new health checker instance
func NewHealthChecker(service, version string) *HealthChecker {
	return &HealthChecker{
		service: service,
		version: version,
		timeout: 5 * time.Second,
		checks:  make(map[string]registeredCheck),
	}
}

// AddCheck registers a check whose failure makes the service unhealthy.
func (hc *HealthChecker) AddCheck(name string, check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = registeredCheck{check: check}
}

// AddOptionalCheck registers a check whose failure only degrades the service.
func (hc *HealthChecker) AddOptionalCheck(name string, check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = registeredCheck{check: check, optional: true}
}

// CheckHealth runs all health checks and returns the overall status
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	checks := make(map[string]registeredCheck, len(hc.checks))
	for k, v := range hc.checks {
		checks[k] = v
	}
	hc.mu.RUnlock()
	sort.Strings(names)

	status := HealthStatus{
		Service:   hc.service,
		Version:   hc.version,
		Timestamp: time.Now().Unix(),
		Checks:    make(map[string]CheckResult, len(names)),
	}

	anyUnhealthy, anyDegraded := false, false
	for _, name := range names {
		rc := checks[name]
		checkCtx, cancel := context.WithTimeout(ctx, hc.timeout)
		result := rc.check(checkCtx)
		cancel()

		status.Checks[name] = result
		switch {
		case result.Status == StatusHealthy:
		case result.Status == StatusDegraded || rc.optional:
			anyDegraded = true
		default:
			anyUnhealthy = true
		}
	}

	switch {
	case anyUnhealthy:
		status.Status = StatusUnhealthy
	case anyDegraded:
		status.Status = StatusDegraded
	default:
		status.Status = StatusHealthy
	}
	return status
}

// Handler returns a gin handler for the health check endpoint
func (hc *HealthChecker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		health := hc.CheckHealth(c.Request.Context())
		statusCode := http.StatusOK
		if health.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, health)
	}
}

// DatabaseHealthCheck creates a health check for database connectivity
func DatabaseHealthCheck(db *sql.DB) HealthCheck {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		if db == nil {
			return CheckResult{Status: StatusUnhealthy, Message: "Database connection is nil"}
		}
		if err := db.PingContext(ctx); err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("Database ping failed: %v", err),
				Latency: time.Since(start).String(),
			}
		}
		return CheckResult{
			Status:  StatusHealthy,
			Message: "Database connection successful",
			Latency: time.Since(start).String(),
		}
	}
}

// PingHealthCheck checks a broker or cache connection.
func PingHealthCheck(name string, p Pinger) HealthCheck {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		if p == nil {
			return CheckResult{Status: StatusUnhealthy, Message: name + " client is nil"}
		}
		if err := p.Ping(ctx); err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("%s ping failed: %v", name, err),
				Latency: time.Since(start).String(),
			}
		}
		return CheckResult{
			Status:  StatusHealthy,
			Message: name + " connection healthy",
			Latency: time.Since(start).String(),
		}
	}
}

// ConfigurationHealthCheck creates a health check for required configuration
func ConfigurationHealthCheck(configs map[string]string) HealthCheck {
	return func(context.Context) CheckResult {
		missing := []string{}
		for key, value := range configs {
			if value == "" {
				missing = append(missing, key)
			}
		}
		sort.Strings(missing)

		if len(missing) > 0 {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("Missing required configuration: %v", missing),
			}
		}
		return CheckResult{Status: StatusHealthy, Message: "All required configuration present"}
	}
}
