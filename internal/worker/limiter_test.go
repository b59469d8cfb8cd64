package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://www.courtlistener.com/api/rest/v4/opinions/1/"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different host has an independent budget
	if err := limiter.Wait(ctx, "http://localhost:11434/api/generate"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	start := time.Now()
	err := limiter.WaitWithDelay(ctx, "http://example.com", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}

	if time.Since(start) < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", time.Since(start))
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(1, 1)
	limiter.SetHostRate("www.courtlistener.com", 100, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// Overridden host allows a burst the default would not
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx, "https://www.courtlistener.com/api/"); err != nil {
			t.Fatalf("wait %d failed: %v", i, err)
		}
	}
}

func TestLimiter_ContextCancel(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://example.com"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(cancelled, "http://example.com"); err == nil {
		t.Error("expected error when context expires before budget clears")
	}
}
