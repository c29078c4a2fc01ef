package providers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds retries of non-mutating provider calls. MaxElapsed caps
// the whole loop including the attempts themselves; AttemptTimeout caps each
// attempt, so a timed out call still leaves room for the next one.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxElapsed      time.Duration
	AttemptTimeout  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 300 * time.Millisecond,
		MaxElapsed:      10 * time.Second,
	}
}

// Retry runs op until it succeeds, fails permanently, or the policy is spent.
// Only transient ProviderErrors are retried. Never use it for Transfer,
// PayBill, BuyAirtime or BuyData.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error) error {
	attempt := func() error {
		if policy.AttemptTimeout <= 0 {
			return op(ctx)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		defer cancel()
		return op(attemptCtx)
	}
	if policy.MaxAttempts <= 1 {
		return attempt()
	}
	if policy.MaxElapsed > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, policy.MaxElapsed)
		defer cancel()
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(policy.InitialInterval),
		backoff.WithMaxElapsedTime(policy.MaxElapsed),
	)
	bounded := backoff.WithMaxRetries(b, uint64(policy.MaxAttempts-1))

	return backoff.Retry(func() error {
		err := attempt()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bounded, ctx))
}
