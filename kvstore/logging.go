/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/acronis/go-kvlru/log"
)

// LoggingStore wraps a Store and logs every call at debug level (failures at warn level).
type LoggingStore struct {
	Delegate Store
	Logger   log.FieldLogger
}

var _ Store = (*LoggingStore)(nil)

// NewLoggingStore creates a new LoggingStore.
func NewLoggingStore(delegate Store, logger log.FieldLogger) *LoggingStore {
	return &LoggingStore{Delegate: delegate, Logger: logger}
}

// Get implements Store.
func (s *LoggingStore) Get(ctx context.Context, key string) ([]byte, error) {
	startedAt := time.Now()
	val, err := s.Delegate.Get(ctx, key)
	s.logCall("get", key, startedAt, err, log.Int("size", len(val)))
	return val, err
}

// Set implements Store.
func (s *LoggingStore) Set(ctx context.Context, key string, value []byte) error {
	startedAt := time.Now()
	err := s.Delegate.Set(ctx, key, value)
	s.logCall("set", key, startedAt, err, log.Int("size", len(value)))
	return err
}

// Delete implements Store.
func (s *LoggingStore) Delete(ctx context.Context, key string) error {
	startedAt := time.Now()
	err := s.Delegate.Delete(ctx, key)
	s.logCall("delete", key, startedAt, err)
	return err
}

// Increment implements Store.
func (s *LoggingStore) Increment(ctx context.Context, key string, delta uint64) (uint64, error) {
	startedAt := time.Now()
	val, err := s.Delegate.Increment(ctx, key, delta)
	s.logCall("increment", key, startedAt, err, log.Uint64("delta", delta), log.Uint64("result", val))
	return val, err
}

// Decrement implements Store.
func (s *LoggingStore) Decrement(ctx context.Context, key string, delta uint64) (uint64, error) {
	startedAt := time.Now()
	val, err := s.Delegate.Decrement(ctx, key, delta)
	s.logCall("decrement", key, startedAt, err, log.Uint64("delta", delta), log.Uint64("result", val))
	return val, err
}

// Flush implements Store.
func (s *LoggingStore) Flush(ctx context.Context) error {
	startedAt := time.Now()
	err := s.Delegate.Flush(ctx)
	s.logCall("flush", "", startedAt, err)
	return err
}

func (s *LoggingStore) logCall(op, key string, startedAt time.Time, err error, fields ...log.Field) {
	fields = append(fields,
		log.String("op", op),
		log.String("key", key),
		log.DurationIn(time.Since(startedAt), time.Microsecond),
	)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.Logger.Warn("store call failed", append(fields, log.Error(err))...)
		return
	}
	s.Logger.Debug("store call", append(fields, log.Bool("found", err == nil))...)
}
