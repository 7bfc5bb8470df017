// Package ratelimit throttles repeated operations per key. Keys are built
// with Key and end with the acting username, so a user's limiters can be
// dropped together on logout.
package ratelimit

import (
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/amirk1998/stockkeeper/pkg/errors"
)

const (
	keySep      = ":"
	maxLimiters = 10000
)

// Key joins scope parts into a limiter key, e.g. Key("product", "add", "alice").
func Key(parts ...string) string {
	return strings.Join(parts, keySep)
}

type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rps      rate.Limit
	burst    int
}

// NewRateLimiter allows rps operations per second per key, with bursts of
// up to burst.
func NewRateLimiter(rps int, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// GetLimiter returns the limiter for key, creating it on first use.
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, ok := rl.limiters[key]
	rl.mu.RUnlock()
	if ok {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok = rl.limiters[key]; !ok {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.GetLimiter(key).Allow()
}

// CheckLimit consumes one token for key. The error matches
// ErrRateLimitExceeded.
func (rl *RateLimiter) CheckLimit(key string) error {
	if rl.Allow(key) {
		return nil
	}
	return errors.NewAppError(errors.ErrRateLimitExceeded,
		"too many requests, please wait a moment", errors.CodeThrottled)
}

// ForgetUser drops every limiter whose key ends with the username segment.
func (rl *RateLimiter) ForgetUser(username string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	dropped := 0
	for key := range rl.limiters {
		if key == username || strings.HasSuffix(key, keySep+username) {
			delete(rl.limiters, key)
			dropped++
		}
	}
	return dropped
}

// Cleanup resets the table once it grows past maxLimiters.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.limiters) > maxLimiters {
		clear(rl.limiters)
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}
