package platform

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var ErrInvalidRetryPolicy = errors.New("invalid retry policy")

// RetryPolicy bounds how often and how slowly a transient failure is retried.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     2 * time.Second,
		Jitter:       true,
	}
}

func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrInvalidRetryPolicy
	}
	if p.InitialDelay < 0 || p.MaxDelay < 0 {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// backOff builds the exponential schedule. Jitter spreads each wait over
// [0.5, 1.5) of its nominal value.
func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = max(p.InitialDelay, 0)
	b.Multiplier = max(p.Multiplier, 1)
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.RandomizationFactor = 0
	if p.Jitter {
		b.RandomizationFactor = 0.5
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Delay returns the wait before attempt N (1-based). The first attempt never waits.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 || p.InitialDelay <= 0 {
		return 0
	}
	b := p.backOff()
	var delay time.Duration
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

// Retry calls fn until it succeeds, returns an error retryable rejects, or the
// policy runs out of attempts. It reports the number of attempts made.
// Cancellation is only observed between attempts; the error then wraps both
// the last attempt's error and ctx.Err().
func Retry(ctx context.Context, policy RetryPolicy, retryable func(error) bool, fn func(attempt int) error) (int, error) {
	maxAttempts := max(policy.MaxAttempts, 1)
	attempts := 0
	var last error
	operation := func() error {
		attempts++
		last = fn(attempts)
		if last != nil && !retryable(last) {
			return backoff.Permanent(last)
		}
		return last
	}

	schedule := backoff.WithContext(backoff.WithMaxRetries(policy.backOff(), uint64(maxAttempts-1)), ctx)
	err := backoff.Retry(operation, schedule)
	if err == nil || last == nil {
		return attempts, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) && !errors.Is(last, ctxErr) {
		return attempts, fmt.Errorf("%w: %w", last, ctxErr)
	}
	return attempts, err
}
