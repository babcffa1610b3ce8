package provider

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Default provider budget: 300 requests per 15 minutes
const (
	DefaultLimit       = 300
	DefaultWindow      = 15 * time.Minute
	DefaultMinInterval = 100 * time.Millisecond
)

// RateLimiter manages the provider's windowed request budget
type RateLimiter struct {
	mu sync.Mutex

	limit    int
	usage    int
	window   time.Duration
	resetsAt time.Time

	// Minimum interval between requests
	minInterval time.Duration
	lastRequest time.Time

	now func() time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window
func NewRateLimiter(limit int, window, minInterval time.Duration) *RateLimiter {
	r := &RateLimiter{
		limit:       limit,
		window:      window,
		minInterval: minInterval,
		now:         time.Now,
	}
	r.resetsAt = r.now().Add(window)
	return r
}

// Wait blocks until a request can be made without exceeding the budget
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.After(r.resetsAt) {
		r.usage = 0
		r.resetsAt = now.Add(r.window)
	}

	if r.usage >= r.limit {
		if err := r.sleep(ctx, r.resetsAt.Sub(now)); err != nil {
			return err
		}
		r.usage = 0
		r.resetsAt = r.now().Add(r.window)
	}

	// Enforce minimum interval between requests
	if elapsed := r.now().Sub(r.lastRequest); elapsed < r.minInterval {
		if err := r.sleep(ctx, r.minInterval-elapsed); err != nil {
			return err
		}
	}

	r.usage++
	r.lastRequest = r.now()
	return nil
}

// sleep releases the lock while waiting. Caller holds r.mu.
func (r *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	r.mu.Unlock()
	defer r.mu.Lock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateFromHeaders syncs the budget with the provider's view. The provider
// returns X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset
// (unix seconds).
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v := h.Get("X-RateLimit-Limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			r.limit = limit
		}
	}
	if v := h.Get("X-RateLimit-Remaining"); v != "" {
		if remaining, err := strconv.Atoi(v); err == nil && remaining >= 0 {
			r.usage = max(r.limit-remaining, 0)
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if reset, err := strconv.ParseInt(v, 10, 64); err == nil && reset > 0 {
			r.resetsAt = time.Unix(reset, 0)
		}
	}
}

// Status returns the remaining requests in the current window
func (r *RateLimiter) Status() (remaining int, resetsAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit - r.usage, r.resetsAt
}
