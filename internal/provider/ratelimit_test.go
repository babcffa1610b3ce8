package provider

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestRateLimiter_Budget(t *testing.T) {
	r := NewRateLimiter(3, time.Hour, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := r.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	if remaining, _ := r.Status(); remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}

	// Exhausted budget blocks until the window resets; the context wins here
	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := r.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait on exhausted budget = %v, want deadline exceeded", err)
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	r := NewRateLimiter(1, time.Minute, 0)
	r.now = func() time.Time { return now }
	r.resetsAt = now.Add(time.Minute)

	if err := r.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("Wait after window reset: %v", err)
	}
	if remaining, _ := r.Status(); remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
}

func TestRateLimiter_MinInterval(t *testing.T) {
	r := NewRateLimiter(100, time.Hour, 30*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := r.Wait(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("three requests took %v, want at least 60ms", elapsed)
	}
}

func TestRateLimiter_UpdateFromHeaders(t *testing.T) {
	tests := []struct {
		name          string
		headers       map[string]string
		wantRemaining int
	}{
		{"no headers", nil, 100},
		{"remaining only", map[string]string{"X-RateLimit-Remaining": "40"}, 40},
		{"limit and remaining", map[string]string{"X-RateLimit-Limit": "500", "X-RateLimit-Remaining": "450"}, 450},
		{"garbage ignored", map[string]string{"X-RateLimit-Limit": "abc", "X-RateLimit-Remaining": "-3"}, 100},
		{"remaining above limit", map[string]string{"X-RateLimit-Remaining": "250"}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRateLimiter(100, time.Hour, 0)
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			r.UpdateFromHeaders(h)
			if remaining, _ := r.Status(); remaining != tt.wantRemaining {
				t.Errorf("remaining = %d, want %d", remaining, tt.wantRemaining)
			}
		})
	}
}
