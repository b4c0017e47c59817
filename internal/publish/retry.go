package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/blacktop/postkit/internal/logutil"
)

// DefaultMaxAttempts is the number of publish attempts per platform.
const DefaultMaxAttempts = 3

// Backoff returns how long to wait after the given failed attempt (from 1).
type Backoff func(attempt int) time.Duration

// ExponentialBackoff waits 2^attempt seconds.
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// RetryPolicy configures the retry wrapper.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     Backoff
	Sleep       func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns three attempts with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     ExponentialBackoff,
		Sleep:       sleep,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Backoff == nil {
		p.Backoff = ExponentialBackoff
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	return p
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// policy runs out of attempts. Exhaustion yields a terminal *Error whose
// message reports the attempt count and the last failure.
func Retry[T any](ctx context.Context, policy RetryPolicy, platform Platform, fn func(context.Context) (T, error)) (T, error) {
	policy = policy.normalized()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		wait := policy.Backoff(attempt)
		logutil.Warnf("%s attempt %d/%d failed, retrying in %s: %v", platform, attempt, policy.MaxAttempts, wait, err)
		if err := policy.Sleep(ctx, wait); err != nil {
			return zero, &Error{
				Kind:     KindRetryExhausted,
				Platform: platform,
				Message:  fmt.Sprintf("Retry aborted after %d attempts: %s", attempt, lastErr.Error()),
				Err:      err,
			}
		}
	}

	return zero, &Error{
		Kind:     KindRetryExhausted,
		Platform: platform,
		Message:  fmt.Sprintf("Failed after %d attempts: %s", policy.MaxAttempts, lastErr.Error()),
		Err:      lastErr,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
