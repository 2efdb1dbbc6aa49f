package metering

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"tastesync/pkg/ctxkeys"
)

// RateLimiter is a fixed-window per-user request limiter for the
// model-backed endpoints.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	usage map[string]*rateUsage
}

type rateUsage struct {
	windowStart time.Time
	count       int
}

// NewRateLimiter allows limit requests per window. A non-positive limit
// disables limiting.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Hour
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		usage:  make(map[string]*rateUsage),
	}
}

// Allow consumes one request for userID and reports the remaining budget
// and seconds until the window resets.
func (rl *RateLimiter) Allow(userID string) (bool, int, int) {
	if rl == nil || userID == "" || rl.limit <= 0 {
		return true, 0, 0
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.usage[userID]
	if !ok || now.Sub(entry.windowStart) >= rl.window {
		entry = &rateUsage{windowStart: now}
		rl.usage[userID] = entry
	}
	resetSeconds := max(int(entry.windowStart.Add(rl.window).Sub(now).Seconds()), 0)

	if entry.count >= rl.limit {
		return false, 0, resetSeconds
	}
	entry.count++
	return true, rl.limit - entry.count, resetSeconds
}

// Cleanup forgets users whose window expired long ago.
func (rl *RateLimiter) Cleanup() {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for id, entry := range rl.usage {
		if now.Sub(entry.windowStart) >= 2*rl.window {
			delete(rl.usage, id)
		}
	}
}

func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	if rl == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(rl.window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}

// RateLimitMiddleware applies rl to the authenticated user.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := ctxkeys.GetUserID(c.Request.Context())
		allowed, remaining, resetSeconds := rl.Allow(userID)
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(resetSeconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"error":      "Generation rate limit exceeded. Try again later.",
				"retryAfter": resetSeconds,
			})
			return
		}
		if rl != nil && rl.limit > 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
			c.Header("X-RateLimit-Reset", strconv.Itoa(resetSeconds))
		}
		c.Next()
	}
}
