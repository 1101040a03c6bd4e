package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter throttles requests per client IP with a token bucket
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	idle     time.Duration
}

// NewIPLimiter allows rps requests per second per IP with the given burst
func NewIPLimiter(rps float64, burst int) *IPLimiter {
	return &IPLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

// Allow reports whether a request from ip may proceed
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// Cleanup forgets visitors idle for longer than the idle timeout at now
func (l *IPLimiter) Cleanup(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, ip)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup every interval until ctx is done
func (l *IPLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.Cleanup(now)
			}
		}
	}()
}

// Middleware rejects requests over the limit with RateLimited.
// A non-positive rps disables throttling.
func (l *IPLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.rps <= 0 {
			c.Next()
			return
		}
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			apperrors.Respond(c, apperrors.RateLimited("Too many requests, slow down"))
			return
		}
		c.Next()
	}
}
