package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter manages one token bucket per key (a client address, a browser tab)
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewLimiter creates a new rate limiter
// requestsPerHour: total requests allowed per hour per key (e.g., 3600)
// burst: max requests in a burst (e.g., 60)
func NewLimiter(requestsPerHour int, burst int) *Limiter {
	// Convert requests per hour to requests per second
	r := rate.Limit(float64(requestsPerHour) / 3600.0)

	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// NewIntervalLimiter allows one event per interval per key, with the given burst
func NewIntervalLimiter(interval time.Duration, burst int) *Limiter {
	r := rate.Inf
	if interval > 0 {
		r = rate.Every(interval)
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// GetLimiter returns the rate limiter for a specific key
func (l *Limiter) GetLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}

	return limiter
}

// Allow checks if an event is allowed for the given key now
func (l *Limiter) Allow(key string) bool {
	return l.GetLimiter(key).Allow()
}

// AllowAt checks if an event is allowed for the given key at t
func (l *Limiter) AllowAt(key string, t time.Time) bool {
	return l.GetLimiter(key).AllowN(t, 1)
}

// Tokens returns the current number of available tokens for a key
func (l *Limiter) Tokens(key string) float64 {
	return l.GetLimiter(key).Tokens()
}

// Forget drops the bucket for key
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, key)
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
