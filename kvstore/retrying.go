/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package kvstore

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/acronis/go-kvlru/log"
	"github.com/acronis/go-kvlru/retry"
)

// RetryingStore wraps a Store and retries every single call on transient errors according to the retry policy.
// Only one primitive call is retried at a time, multistep cache operations are never replayed.
// Increment and Decrement are not idempotent, so they are retried only when the request
// provably never reached the server (see IsUndeliveredError).
type RetryingStore struct {
	Delegate    Store
	Policy      retry.Policy
	IsRetryable retry.IsRetryable
	Logger      log.FieldLogger
}

var _ Store = (*RetryingStore)(nil)

// RetryingStoreOpts represents options for the RetryingStore.
type RetryingStoreOpts struct {
	// IsRetryable decides whether the error is transient. IsTransientError is used if nil.
	IsRetryable retry.IsRetryable

	// Logger receives a warning on every retry attempt. Disabled logger is used if nil.
	Logger log.FieldLogger
}

// NewRetryingStore creates a new RetryingStore with the given policy.
func NewRetryingStore(delegate Store, policy retry.Policy, opts RetryingStoreOpts) *RetryingStore {
	if opts.IsRetryable == nil {
		opts.IsRetryable = IsTransientError
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &RetryingStore{Delegate: delegate, Policy: policy, IsRetryable: opts.IsRetryable, Logger: opts.Logger}
}

// IsTransientError reports whether the error is likely caused by a temporary network problem.
// ErrNotFound and context errors are never transient.
func IsTransientError(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE)
}

// IsUndeliveredError reports whether the request certainly wasn't delivered to the server,
// so even a non-idempotent call may be repeated. A timeout or a broken connection doesn't qualify:
// the server may have applied the command before its reply was lost.
func IsUndeliveredError(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// Get implements Store.
func (s *RetryingStore) Get(ctx context.Context, key string) (val []byte, err error) {
	err = s.do(ctx, "get", func(ctx context.Context) error {
		var getErr error
		val, getErr = s.Delegate.Get(ctx, key)
		return getErr
	})
	return val, err
}

// Set implements Store.
func (s *RetryingStore) Set(ctx context.Context, key string, value []byte) error {
	return s.do(ctx, "set", func(ctx context.Context) error {
		return s.Delegate.Set(ctx, key, value)
	})
}

// Delete implements Store.
func (s *RetryingStore) Delete(ctx context.Context, key string) error {
	return s.do(ctx, "delete", func(ctx context.Context) error {
		return s.Delegate.Delete(ctx, key)
	})
}

// Increment implements Store.
func (s *RetryingStore) Increment(ctx context.Context, key string, delta uint64) (val uint64, err error) {
	err = s.doOnce(ctx, "increment", func(ctx context.Context) error {
		var incErr error
		val, incErr = s.Delegate.Increment(ctx, key, delta)
		return incErr
	})
	return val, err
}

// Decrement implements Store.
func (s *RetryingStore) Decrement(ctx context.Context, key string, delta uint64) (val uint64, err error) {
	err = s.doOnce(ctx, "decrement", func(ctx context.Context) error {
		var decErr error
		val, decErr = s.Delegate.Decrement(ctx, key, delta)
		return decErr
	})
	return val, err
}

// Flush implements Store.
func (s *RetryingStore) Flush(ctx context.Context) error {
	return s.do(ctx, "flush", s.Delegate.Flush)
}

func (s *RetryingStore) do(ctx context.Context, op string, fn retry.RetryableFunc) error {
	return s.doWithRetryable(ctx, op, s.IsRetryable, fn)
}

// doOnce retries fn only if the previous attempt was never delivered.
func (s *RetryingStore) doOnce(ctx context.Context, op string, fn retry.RetryableFunc) error {
	return s.doWithRetryable(ctx, op, func(err error) bool {
		return IsUndeliveredError(err) && s.IsRetryable(err)
	}, fn)
}

func (s *RetryingStore) doWithRetryable(
	ctx context.Context, op string, isRetryable retry.IsRetryable, fn retry.RetryableFunc,
) error {
	notify := func(err error, delay time.Duration) {
		s.Logger.Warn("store call failed, will retry",
			log.String("op", op), log.Error(err), log.Duration("delay", delay))
	}
	return retry.DoWithRetry(ctx, s.Policy, isRetryable, notify, fn)
}
