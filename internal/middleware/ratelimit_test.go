package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func newRateLimitedEngine(cfg RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RateLimit(cfg))
	engine.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func doRequest(engine *gin.Engine, remoteAddr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = remoteAddr
	engine.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	engine := newRateLimitedEngine(RateLimitConfig{
		Rate:   rate.Limit(1),
		Burst:  3,
		MaxAge: time.Minute,
	})

	for i := 0; i < 3; i++ {
		if code := doRequest(engine, "10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, code)
		}
	}
}

func TestRateLimitRejectsOverBurst(t *testing.T) {
	engine := newRateLimitedEngine(RateLimitConfig{
		Rate:   rate.Limit(1),
		Burst:  2,
		MaxAge: time.Minute,
	})

	doRequest(engine, "10.0.0.1:1234")
	doRequest(engine, "10.0.0.1:1234")

	if code := doRequest(engine, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after burst exhausted, got %d", code)
	}
}

func TestRateLimitIsPerIP(t *testing.T) {
	engine := newRateLimitedEngine(RateLimitConfig{
		Rate:   rate.Limit(1),
		Burst:  1,
		MaxAge: time.Minute,
	})

	if code := doRequest(engine, "10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("First client: expected 200, got %d", code)
	}
	if code := doRequest(engine, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Errorf("First client: expected 429, got %d", code)
	}
	if code := doRequest(engine, "10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("Second client: expected 200, got %d", code)
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.Rate <= 0 || cfg.Burst <= 0 {
		t.Errorf("Expected positive defaults, got %+v", cfg)
	}
	if cfg.MaxAge <= 0 {
		t.Errorf("Expected positive eviction age, got %v", cfg.MaxAge)
	}
}
