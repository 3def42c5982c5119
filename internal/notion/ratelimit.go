package notion

import (
	"context"
	"math"
	"sync"
	"time"
)

// Limiter paces outbound requests with a token bucket. Notion allows an
// average of three requests per second per integration.
type Limiter struct {
	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	mu           sync.Mutex
	tokens       float64
	capacity     float64
	refillPerSec float64
	lastRefill   time.Time
}

// NewLimiter returns a limiter allowing rps requests per second with a burst
// of ceil(rps). A non-positive rps disables pacing.
func NewLimiter(rps float64) *Limiter {
	if rps <= 0 {
		return nil
	}
	capacity := math.Max(1, math.Ceil(rps))
	return &Limiter{
		now:          time.Now,
		sleep:        sleepCtx,
		tokens:       capacity,
		capacity:     capacity,
		refillPerSec: rps,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	delay := l.reserve()
	if delay <= 0 {
		return ctx.Err()
	}
	return l.sleep(ctx, delay)
}

// reserve takes one token, possibly driving the balance negative, and returns
// how long the caller must wait for that token to be backed.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !l.lastRefill.IsZero() {
		elapsed := now.Sub(l.lastRefill).Seconds()
		if elapsed > 0 {
			l.tokens = math.Min(l.capacity, l.tokens+elapsed*l.refillPerSec)
		}
	}
	l.lastRefill = now

	l.tokens--
	if l.tokens >= 0 {
		return 0
	}
	deficit := -l.tokens
	return time.Duration(deficit / l.refillPerSec * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
