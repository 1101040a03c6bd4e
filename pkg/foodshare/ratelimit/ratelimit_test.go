package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newRedisStore(t *testing.T, window time.Duration) *RedisStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, window)
}

// stores runs fn once per AttemptStore implementation
func stores(t *testing.T, window time.Duration, fn func(t *testing.T, store AttemptStore)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("redis", func(t *testing.T) { fn(t, newRedisStore(t, window)) })
}

func TestLoginLimiterLocksAfterMaxFailures(t *testing.T) {
	window := 15 * time.Minute
	stores(t, window, func(t *testing.T, store AttemptStore) {
		ctx := context.Background()
		clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
		limiter := NewLoginLimiter(store, 5, window).WithClock(clock.Now)

		for i := 0; i < 5; i++ {
			wait, err := limiter.Check(ctx, "a@example.com")
			require.NoError(t, err)
			assert.Zero(t, wait, "attempt %d should be allowed", i+1)
			_, err = limiter.RecordFailure(ctx, "a@example.com")
			require.NoError(t, err)
			clock.Advance(time.Minute)
		}

		wait, err := limiter.Check(ctx, "A@Example.com ")
		require.NoError(t, err)
		assert.Equal(t, 10*time.Minute, wait)

		// Other emails are unaffected
		wait, err = limiter.Check(ctx, "b@example.com")
		require.NoError(t, err)
		assert.Zero(t, wait)
	})
}

func TestLoginLimiterWindowAnchoredAtFirstFailure(t *testing.T) {
	window := 15 * time.Minute
	stores(t, window, func(t *testing.T, store AttemptStore) {
		ctx := context.Background()
		clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
		limiter := NewLoginLimiter(store, 5, window).WithClock(clock.Now)

		for i := 0; i < 5; i++ {
			_, err := limiter.RecordFailure(ctx, "a@example.com")
			require.NoError(t, err)
		}

		clock.Advance(14*time.Minute + 59*time.Second)
		wait, err := limiter.Check(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, time.Second, wait)

		clock.Advance(time.Second)
		wait, err = limiter.Check(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Zero(t, wait)

		// A new failure starts a fresh window
		attempts, err := limiter.RecordFailure(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, 1, attempts.Count)
		assert.True(t, clock.Now().Equal(attempts.FirstAt))
	})
}

func TestLoginLimiterReset(t *testing.T) {
	window := 15 * time.Minute
	stores(t, window, func(t *testing.T, store AttemptStore) {
		ctx := context.Background()
		limiter := NewLoginLimiter(store, 2, window)

		limiter.RecordFailure(ctx, "a@example.com")
		limiter.RecordFailure(ctx, "a@example.com")
		wait, _ := limiter.Check(ctx, "a@example.com")
		assert.Greater(t, wait, time.Duration(0))

		require.NoError(t, limiter.Reset(ctx, "a@example.com"))
		wait, _ = limiter.Check(ctx, "a@example.com")
		assert.Zero(t, wait)
	})
}

func TestMemoryStoreCleanup(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.Increment(context.Background(), "old", now.Add(-time.Hour), 15*time.Minute)
	store.Increment(context.Background(), "fresh", now, 15*time.Minute)

	assert.Equal(t, 1, store.Cleanup(now))
	a, _ := store.Get(context.Background(), "fresh")
	assert.Equal(t, 1, a.Count)
}

func TestLockoutMessage(t *testing.T) {
	assert.Equal(t, "Too many login attempts. Please try again in 15 minutes.", LockoutMessage(14*time.Minute+10*time.Second))
	assert.Equal(t, "Too many login attempts. Please try again in 1 minutes.", LockoutMessage(time.Second))
}

func TestIPLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewIPLimiter(1, 2).Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 3)
	for i := range codes {
		resp := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(resp, req)
		codes[i] = resp.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different client has its own bucket
	resp := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestIPLimiterDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewIPLimiter(0, 0).Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 5; i++ {
		resp := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		r.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code)
	}
}

func TestIPLimiterCleanup(t *testing.T) {
	l := NewIPLimiter(1, 1)
	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	l.visitors["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)

	assert.Equal(t, 1, l.Cleanup(time.Now()))
	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "10.0.0.2")
}

func TestIPLimiterStartCleanup(t *testing.T) {
	l := NewIPLimiter(1, 1)
	l.Allow("10.0.0.1")
	l.mu.Lock()
	l.visitors["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)
	l.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.StartCleanup(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.visitors) == 0
	}, time.Second, 10*time.Millisecond)
}
