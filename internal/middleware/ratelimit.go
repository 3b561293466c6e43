package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-IP rate limiting for the local server.
// The Lambda surface relies on the platform's own throttling instead.
type RateLimitConfig struct {
	Rate  rate.Limit
	Burst int
	// MaxAge is how long an idle per-IP limiter is kept before eviction.
	MaxAge time.Duration
}

// DefaultRateLimitConfig allows 20 requests/second with burst of 40.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Rate:   rate.Limit(20),
		Burst:  40,
		MaxAge: 10 * time.Minute,
	}
}

type ipLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit returns a gin middleware applying a per-client-IP token
// bucket. Stale entries are evicted lazily on access.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	var mu sync.Mutex
	entries := make(map[string]*ipLimitEntry)

	allow := func(ip string) bool {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now()
		for key, entry := range entries {
			if now.Sub(entry.lastSeen) > cfg.MaxAge {
				delete(entries, key)
			}
		}
		entry, ok := entries[ip]
		if !ok {
			entry = &ipLimitEntry{limiter: rate.NewLimiter(cfg.Rate, cfg.Burst)}
			entries[ip] = entry
		}
		entry.lastSeen = now
		return entry.limiter.Allow()
	}

	return func(c *gin.Context) {
		if !allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			return
		}
		c.Next()
	}
}
