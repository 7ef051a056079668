// Package retry shields fallible remote operations from transient failure.
// Every single-action page interaction in this project runs through Do; it is
// deliberately not used at workflow-stage granularity, where the orchestrator
// recovers at a coarser grain with proxy-level retries.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Policy describes a bounded retry schedule. The zero value performs a single
// attempt with no waiting.
type Policy struct {
	// MaxAttempts is the number of retries after the first attempt, so an
	// operation runs at most MaxAttempts+1 times.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Exponential bool
}

// DefaultPolicy matches the pacing of a flaky DOM: a few quick retries with
// exponential backoff capped at ten seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Exponential: true,
	}
}

// Validate reports schedules that cannot be executed.
func (p Policy) Validate() error {
	if p.MaxAttempts < 0 {
		return fmt.Errorf("retry: max attempts must be >= 0, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("retry: delays must be non-negative")
	}
	return nil
}

// Backoff returns the wait before retry number attempt (zero-based).
func (p Policy) Backoff(attempt int) time.Duration {
	if !p.Exponential {
		return p.BaseDelay
	}
	d := p.BaseDelay << uint(attempt)
	// The shift overflows for very large attempt counts; treat that as
	// saturation at MaxDelay.
	if d > p.MaxDelay || d < 0 {
		return p.MaxDelay
	}
	return d
}

// Do runs op until it succeeds or the policy is exhausted, waiting the
// scheduled backoff between attempts. The error of the final attempt is
// returned unwrapped so callers can still classify it with errors.As.
// A nil logger suppresses retry narration.
func Do[T any](ctx context.Context, p Policy, logger *zap.Logger, desc string, op func(context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		val, err := op(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if attempt < p.MaxAttempts {
			wait := p.Backoff(attempt)
			logger.Debug("Retrying operation",
				zap.String("operation", desc),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", p.MaxAttempts),
				zap.Duration("backoff", wait),
				zap.Error(err))
			if err := sleep(ctx, wait); err != nil {
				return zero, lastErr
			}
		}
	}
	return zero, lastErr
}

// Run is the error-only convenience form of Do.
func Run(ctx context.Context, p Policy, logger *zap.Logger, desc string, op func(context.Context) error) error {
	_, err := Do(ctx, p, logger, desc, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
