package services

import (
	"context"
	"time"

	"github.com/kira2406/Veritas/internal/core"
)

// RetryPolicy bounds retries of transient model-side failures. It is passed
// into the pipeline explicitly rather than hidden inside the clients.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 500 * time.Millisecond, Multiplier: 2}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// withRetry runs op up to p.MaxAttempts times, backing off between attempts.
// Only errors core.Retryable reports as transient are retried; the last
// underlying error is returned once attempts are exhausted.
func withRetry[T any](ctx context.Context, p RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	backoff := p.InitialBackoff

	for attempt := 1; ; attempt++ {
		result, err = op(ctx)
		if err == nil || !core.Retryable(err) || attempt >= p.attempts() {
			return result, err
		}

		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				var zero T
				return zero, ctx.Err()
			case <-timer.C:
			}
			backoff = time.Duration(float64(backoff) * p.Multiplier)
		} else if ctx.Err() != nil {
			var zero T
			return zero, ctx.Err()
		}
	}
}
