package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how a single remote write operation is retried.
// Transient failures are attempted again with exponential spacing;
// a Permanent error stops the retries immediately.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// DefaultWritePolicy returns the policy used for API write calls: a single
// retry after the initial attempt.
func DefaultWritePolicy() Policy {
	return Policy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxRetries:      1,
	}
}

// Backoff builds a context-bound backoff strategy for one operation.
func (p Policy) Backoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Do runs op under the policy until it succeeds, returns a permanent error,
// or the attempts are exhausted.
func (p Policy) Do(ctx context.Context, op backoff.Operation) error {
	return backoff.Retry(op, p.Backoff(ctx))
}
