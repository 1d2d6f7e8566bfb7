// Package resilience guards calls to the optional backing services (the
// PostgreSQL check-in store and the Redis topic cache) with jittered retry
// and a failure-counting breaker.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Backoff retries an operation with capped, fully jittered exponential
// delays. The zero value makes three attempts starting at 100ms.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
	// Retryable reports whether a failed attempt may be repeated. Nil
	// retries everything except context errors.
	Retryable func(error) bool
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.Base <= 0 {
		b.Base = 100 * time.Millisecond
	}
	if b.Cap <= 0 {
		b.Cap = 5 * time.Second
	}
	return b
}

// Delay returns the wait before retry number attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	b = b.withDefaults()
	ceiling := b.Cap
	if shift := attempt - 1; shift < 32 {
		if d := b.Base << shift; d > 0 && d < ceiling {
			ceiling = d
		}
	}
	return time.Duration(rand.Int63n(int64(ceiling) + 1))
}

// Do calls fn until it succeeds, the attempts are used up, fn fails with a
// non-retryable error, or ctx ends.
func (b Backoff) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b = b.withDefaults()
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
		if attempt == b.Attempts || !b.retryable(err) {
			break
		}
		delay := b.Delay(attempt)
		slog.Warn("retrying after failure",
			"component", "resilience",
			"operation", op,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (b Backoff) retryable(err error) bool {
	if b.Retryable != nil {
		return b.Retryable(err)
	}
	return true
}
