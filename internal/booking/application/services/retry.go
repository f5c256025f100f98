package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
)

// RetryPolicy bounds how often an operation that lost a write race is rerun.
type RetryPolicy struct {
	// MaxAttempts counts the first try. Values below 1 mean one attempt.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; later waits double.
	BaseDelay time.Duration
	// MaxDelay caps a single wait.
	MaxDelay time.Duration
	// JitterFactor spreads each wait by up to this fraction either way.
	JitterFactor float64
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		BaseDelay:    10 * time.Millisecond,
		MaxDelay:     250 * time.Millisecond,
		JitterFactor: 0.2,
	}
}

// delay returns the wait before attempt+1, where attempt starts at 1.
func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.JitterFactor > 0 {
		spread := float64(d) * p.JitterFactor
		d = time.Duration(float64(d) - spread + rand.Float64()*2*spread)
	}
	if d < 0 {
		return 0
	}
	return d
}

// conflictClassifier reports whether err means another writer got there first.
type conflictClassifier func(error) bool

func defaultConflict(err error) bool {
	return errors.Is(err, domain.ErrConcurrentModification)
}

// retry runs fn until it succeeds, fails with a non-conflict error, or the
// attempts run out. onRetry is called before each wait.
func retry(
	ctx context.Context,
	policy RetryPolicy,
	isConflict conflictClassifier,
	onRetry func(attempt int, err error),
	fn func(ctx context.Context) error,
) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isConflict(err) {
			return err
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		if onRetry != nil {
			onRetry(attempt, err)
		}

		timer := time.NewTimer(policy.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", domain.ErrTransientConflict, attempts, lastErr)
}
