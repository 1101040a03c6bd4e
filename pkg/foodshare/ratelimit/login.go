package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mikepea/foodshare/pkg/foodshare/models"
)

// Attempts is the failure count for one key inside its current window
type Attempts struct {
	Count     int
	FirstAt   time.Time
	ExpiresAt time.Time
}

// AttemptStore records failed attempts per key. Implementations start a
// fresh window when the previous one has elapsed at now.
type AttemptStore interface {
	Get(ctx context.Context, key string) (Attempts, error)
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Attempts, error)
	Reset(ctx context.Context, key string) error
}

// LoginLimiter locks an email out after too many failed logins.
// The window is anchored at the first failure.
type LoginLimiter struct {
	store       AttemptStore
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewLoginLimiter creates a limiter allowing maxAttempts failures per window
func NewLoginLimiter(store AttemptStore, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		store:       store,
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// WithClock replaces the time source
func (l *LoginLimiter) WithClock(now func() time.Time) *LoginLimiter {
	l.now = now
	return l
}

func loginKey(email string) string {
	return "login_attempts:" + models.NormalizeEmail(email)
}

// Check returns how long email stays locked out; zero means it may try
func (l *LoginLimiter) Check(ctx context.Context, email string) (time.Duration, error) {
	key := loginKey(email)
	attempts, err := l.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if attempts.Count == 0 {
		return 0, nil
	}

	now := l.now()
	if !now.Before(attempts.ExpiresAt) {
		return 0, l.store.Reset(ctx, key)
	}
	if attempts.Count >= l.maxAttempts {
		return attempts.ExpiresAt.Sub(now), nil
	}
	return 0, nil
}

// RecordFailure counts a failed login for email
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) (Attempts, error) {
	return l.store.Increment(ctx, loginKey(email), l.now(), l.window)
}

// Reset clears the failures for email after a successful login
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	return l.store.Reset(ctx, loginKey(email))
}

// LockoutMessage formats the remaining lockout in whole minutes, rounded up
func LockoutMessage(remaining time.Duration) string {
	minutes := int(math.Ceil(remaining.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Too many login attempts. Please try again in %d minutes.", minutes)
}
