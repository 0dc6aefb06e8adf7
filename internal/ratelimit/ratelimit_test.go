package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial requests",
			rps:      1,
			burst:    3,
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      1,
			burst:    2,
			calls:    5,
			wantPass: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)

			passed := 0
			for range tt.calls {
				if rl.Allow("scanner-1") {
					passed++
				}
			}
			if passed != tt.wantPass {
				t.Errorf("expected %d allowed, got %d", tt.wantPass, passed)
			}
		})
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := New(1, 1)

	if !rl.Allow("scanner-1") {
		t.Error("first request on scanner-1 should be allowed")
	}
	if rl.Allow("scanner-1") {
		t.Error("second request on scanner-1 should be blocked")
	}
	if !rl.Allow("scanner-2") {
		t.Error("scanner-2 should be independent and allowed")
	}
}

func TestKeyedRateLimiter_Wait(t *testing.T) {
	rl := New(100, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Burst token, then a refill within the timeout.
	if err := rl.Wait(ctx, "key"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := rl.Wait(ctx, "key"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
}

func TestKeyedRateLimiter_WaitCanceled(t *testing.T) {
	rl := New(0.001, 1)
	rl.Allow("key") // drain the burst token

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx, "key"); err == nil {
		t.Error("expected wait to fail when context expires")
	}
}
