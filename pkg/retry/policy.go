package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy defines backoff behavior for operations against flaky
// collaborators (token backend, invite push, engine bring-up).
// One policy is shared across the codebase instead of ad hoc loops.
type Policy struct {
	MaxAttempts   int           `json:"max_attempts"`
	InitialDelay  time.Duration `json:"initial_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	MaxDelay      time.Duration `json:"max_delay"`
}

// DefaultPolicy returns the policy used by the production wiring.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      10 * time.Second,
	}
}

// Delay returns the wait before attempt n (0-based: the delay after the
// n-th failure), capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	delay := p.InitialDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.BackoffFactor)
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Do runs op up to MaxAttempts times, sleeping Delay between failures.
// It stops early when ctx is done and returns the last error wrapped
// with the operation name.
func (p Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts-1 {
			break
		}

		delay := p.Delay(attempt)
		slog.Warn("operation failed, retrying",
			"op", name,
			"attempt", attempt+1,
			"delay", delay,
			"error", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s: %w", name, lastErr)
}
