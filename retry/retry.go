/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package retry runs operations against flaky backends with backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IsRetryable tells whether the error is transient. A nil IsRetryable treats every error as transient.
type IsRetryable func(error) bool

// RetryableFunc is function that does some work and can be potentially retried.
type RetryableFunc func(ctx context.Context) error

// Notify is called before every retry with the error of the failed attempt and the delay before the next one.
type Notify = backoff.Notify

// Policy defines backoff strategy.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// DoWithRetry executes fn and retries it according to policy p until it succeeds,
// fails with a non-retryable error, the policy gives up or ctx is done.
// The error of the last attempt is returned. Notify may be nil.
func DoWithRetry(ctx context.Context, p Policy, isRetryable IsRetryable, notify Notify, fn RetryableFunc) error {
	bctx := backoff.WithContext(p.NewBackOff(), ctx)
	op := func() error {
		err := fn(bctx.Context())
		if err != nil && isRetryable != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(op, bctx, notify)
}

// ExponentialBackoffPolicy retries up to maxRetries times with delays growing by the default multiplier (1.5).
type ExponentialBackoffPolicy struct {
	initialInterval time.Duration
	maxRetries      int
}

// NewExponentialBackoffPolicy returns an exponential backoff policy.
// A non-positive maxRetries means no limit other than the default elapsed time (15 minutes).
func NewExponentialBackoffPolicy(initialInterval time.Duration, maxRetries int) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{initialInterval, maxRetries}
}

// NewBackOff implements retry.Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialInterval
	return limitRetries(eb, p.maxRetries)
}

// ConstantBackoffPolicy retries up to maxRetries times with the same delay.
type ConstantBackoffPolicy struct {
	interval   time.Duration
	maxRetries int
}

// NewConstantBackoffPolicy returns a constant backoff policy.
func NewConstantBackoffPolicy(interval time.Duration, maxRetries int) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{interval, maxRetries}
}

// NewBackOff implements retry.Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	return limitRetries(backoff.NewConstantBackOff(p.interval), p.maxRetries)
}

func limitRetries(b backoff.BackOff, maxRetries int) backoff.BackOff {
	if maxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(maxRetries))
	}
	b.Reset()
	return b
}
