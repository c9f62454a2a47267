package ai

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryPolicy bounds the exponential backoff applied to model calls
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// RetryingClient retries rate limits, 5xx answers and network failures.
// Credential and other client errors fail immediately.
type RetryingClient struct {
	next   Client
	policy RetryPolicy
	logger *zap.Logger
}

// WithRetry decorates a client with backoff retries
func WithRetry(next Client, policy RetryPolicy, logger *zap.Logger) *RetryingClient {
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = 2 * time.Second
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = 10 * time.Second
	}
	if policy.MaxElapsedTime <= 0 {
		policy.MaxElapsedTime = 30 * time.Second
	}
	return &RetryingClient{next: next, policy: policy, logger: logger}
}

// Complete implements Client
func (r *RetryingClient) Complete(ctx context.Context, req Request) (string, error) {
	var (
		out     string
		attempt int
	)

	op := func() error {
		attempt++
		text, err := r.next.Complete(ctx, req)
		if err != nil {
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			if r.logger != nil {
				r.logger.Warn("⚠️ Model call failed, retrying",
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			}
			return err
		}
		out = text
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.policy.InitialInterval
	bo.MaxInterval = r.policy.MaxInterval
	bo.MaxElapsedTime = r.policy.MaxElapsedTime

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}
	return out, nil
}
