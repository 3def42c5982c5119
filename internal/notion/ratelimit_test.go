package notion

import (
	"context"
	"testing"
	"time"
)

func TestLimiterBurstThenPaces(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var slept []time.Duration

	l := NewLimiter(2)
	l.now = func() time.Time { return now }
	l.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if len(slept) != 2 {
		t.Fatalf("expected 2 paced requests after a burst of 2, got %d", len(slept))
	}
	for _, d := range slept {
		if d != 500*time.Millisecond {
			t.Fatalf("expected 500ms spacing at 2 rps, got %s", d)
		}
	}
}

func TestLimiterRefillsOverTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(3)
	l.now = func() time.Time { return now }
	l.sleep = func(_ context.Context, d time.Duration) error {
		t.Fatalf("unexpected sleep of %s", d)
		return nil
	}

	for i := 0; i < 3; i++ {
		_ = l.Wait(context.Background())
	}
	now = now.Add(time.Second)
	for i := 0; i < 3; i++ {
		_ = l.Wait(context.Background())
	}
}

func TestNilLimiterDisabled(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter must not block: %v", err)
	}
	if NewLimiter(0) != nil {
		t.Fatalf("expected zero rps to disable pacing")
	}
}

func TestLimiterHonoursCancellation(t *testing.T) {
	l := NewLimiter(1)
	_ = l.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
