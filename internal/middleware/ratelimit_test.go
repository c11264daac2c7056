package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterHandle_BlocksWithinWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Now()
	limiter := &rateLimiter{
		window:        10 * time.Second,
		last:          make(map[string]time.Time),
		sweepInterval: 10 * time.Second,
		now: func() time.Time {
			return now
		},
	}

	c1, _ := gin.CreateTestContext(httptest.NewRecorder())
	c1.Request = httptest.NewRequest("POST", "/api/v1/music/download/abc", nil)
	limiter.handle(c1)
	require.False(t, c1.IsAborted())

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = httptest.NewRequest("POST", "/api/v1/music/download/abc", nil)
	limiter.handle(c2)
	require.True(t, c2.IsAborted())
}

func TestRateLimiterCleanupExpiredLocked_RemovesExpiredEntries(t *testing.T) {
	base := time.Now()
	limiter := &rateLimiter{
		window:        10 * time.Second,
		last:          make(map[string]time.Time),
		sweepInterval: 10 * time.Second,
		now:           time.Now,
	}
	limiter.last["expired"] = base.Add(-20 * time.Second)
	limiter.last["active"] = base.Add(-2 * time.Second)

	limiter.mu.Lock()
	limiter.cleanupExpiredLocked(base)
	limiter.mu.Unlock()

	require.NotContains(t, limiter.last, "expired")
	require.Contains(t, limiter.last, "active")
	require.False(t, limiter.lastSweep.IsZero())
}

func TestRateLimiterHandle_SeparatesClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Now()
	limiter := &rateLimiter{
		window:        time.Minute,
		last:          make(map[string]time.Time),
		sweepInterval: time.Minute,
		now:           func() time.Time { return now },
	}

	first, _ := gin.CreateTestContext(httptest.NewRecorder())
	first.Request = httptest.NewRequest("GET", "/api/v1/music/download/abc", nil)
	first.Request.RemoteAddr = "10.0.0.1:1234"
	limiter.handle(first)
	require.False(t, first.IsAborted())

	second, _ := gin.CreateTestContext(httptest.NewRecorder())
	second.Request = httptest.NewRequest("GET", "/api/v1/music/download/abc", nil)
	second.Request.RemoteAddr = "10.0.0.2:1234"
	limiter.handle(second)
	require.False(t, second.IsAborted())

	now = now.Add(2 * time.Minute)
	again, _ := gin.CreateTestContext(httptest.NewRecorder())
	again.Request = httptest.NewRequest("GET", "/api/v1/music/download/abc", nil)
	again.Request.RemoteAddr = "10.0.0.1:1234"
	limiter.handle(again)
	require.False(t, again.IsAborted())
}
