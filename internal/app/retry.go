package app

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/primary"
)

// RetryPolicy bounds ApplyWithRetry.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      uint64
}

// DefaultRetryPolicy retries up to 5 times within 3 seconds.
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 25 * time.Millisecond,
	MaxElapsedTime:  3 * time.Second,
	MaxRetries:      5,
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	// BackOff implementations are stateful; always build a fresh one.
	bo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	if p.MaxElapsedTime > 0 {
		bo.MaxElapsedTime = p.MaxElapsedTime
	}
	var b backoff.BackOff = bo
	if p.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, p.MaxRetries)
	}
	return backoff.WithContext(b, ctx)
}

// ApplyWithRetry applies req and retries CONCURRENT_MODIFICATION and TIMEOUT
// failures with exponential backoff. Each attempt reloads the document inside
// a fresh transaction. A request pinned to an ExpectedVersion is never
// retried on CONCURRENT_MODIFICATION, since the caller asked to act on a
// version that no longer exists.
func ApplyWithRetry(ctx context.Context, svc primary.TransitionService, req primary.ApplyRequest, policy RetryPolicy) (*primary.TransitionResult, error) {
	var result *primary.TransitionResult
	err := backoff.Retry(func() error {
		res, err := svc.Apply(ctx, req)
		if err == nil {
			result = res
			return nil
		}
		if !lifecycle.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		if req.ExpectedVersion != 0 && lifecycle.KindOf(err) == lifecycle.KindConcurrentModification {
			return backoff.Permanent(err)
		}
		return err
	}, policy.backOff(ctx))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RetryingTransitions is a TransitionService whose Apply goes through
// ApplyWithRetry. Create is never retried.
type RetryingTransitions struct {
	primary.TransitionService
	Policy RetryPolicy
}

var _ primary.TransitionService = RetryingTransitions{}

// Apply applies req with retries.
func (r RetryingTransitions) Apply(ctx context.Context, req primary.ApplyRequest) (*primary.TransitionResult, error) {
	return ApplyWithRetry(ctx, r.TransitionService, req, r.Policy)
}
