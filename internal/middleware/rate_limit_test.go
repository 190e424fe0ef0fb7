package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func rateLimitRouter(client *redis.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/errors", RateLimit(client, DefaultRateLimitConfig()), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})
	return r
}

func TestRateLimit_NoRedisPassesThrough(t *testing.T) {
	r := rateLimitRouter(nil)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/errors", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "" {
			t.Errorf("limit header set without a limiter: %q", got)
		}
	}
}

func TestRateLimit_RedisFailureFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	r := rateLimitRouter(client)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/errors", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 when Redis is unreachable, got %d", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "" {
		t.Errorf("remaining header set on limiter failure: %q", got)
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerMinute != 600 {
		t.Errorf("requests per minute = %d, want 600", cfg.RequestsPerMinute)
	}
	if cfg.KeyPrefix == "" || cfg.Message == "" {
		t.Errorf("config incomplete: %+v", cfg)
	}
}
