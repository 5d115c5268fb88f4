/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package memstore provides an in-process implementation of kvstore.Store.
// It is intended for tests and for running the cache without an external backend.
package memstore

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/atomic"

	"github.com/acronis/go-kvlru/kvstore"
)

// Op identifies a store operation. It is used for fault injection and call accounting.
type Op string

// Store operations.
const (
	OpGet       Op = "get"
	OpSet       Op = "set"
	OpDelete    Op = "delete"
	OpIncrement Op = "increment"
	OpDecrement Op = "decrement"
	OpFlush     Op = "flush"
)

// FaultFunc may return a non-nil error to make the operation on the key fail without touching the data.
type FaultFunc func(op Op, key string) error

// Store is a goroutine-safe in-memory kvstore.Store.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte

	faultMu sync.RWMutex
	fault   FaultFunc

	calls map[Op]*atomic.Int64
}

var _ kvstore.CloseableStore = (*Store)(nil)

// New creates a new empty Store.
func New() *Store {
	calls := make(map[Op]*atomic.Int64)
	for _, op := range []Op{OpGet, OpSet, OpDelete, OpIncrement, OpDecrement, OpFlush} {
		calls[op] = atomic.NewInt64(0)
	}
	return &Store{data: make(map[string][]byte), calls: calls}
}

// SetFault installs (or removes, if nil) the fault injection callback.
func (s *Store) SetFault(fn FaultFunc) {
	s.faultMu.Lock()
	s.fault = fn
	s.faultMu.Unlock()
}

// Calls returns the number of calls of the given operation (including failed ones).
func (s *Store) Calls(op Op) int64 {
	return s.calls[op].Load()
}

// Keys returns all stored keys in lexicographical order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.before(ctx, OpGet, key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	if !ok {
		return nil, kvstore.ErrNotFound
	}
	return append([]byte(nil), val...), nil
}

// Set implements kvstore.Store.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.before(ctx, OpSet, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements kvstore.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.before(ctx, OpDelete, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Increment implements kvstore.Store.
func (s *Store) Increment(ctx context.Context, key string, delta uint64) (uint64, error) {
	if err := s.before(ctx, OpIncrement, key); err != nil {
		return 0, err
	}
	return s.applyDelta(key, delta, false)
}

// Decrement implements kvstore.Store.
func (s *Store) Decrement(ctx context.Context, key string, delta uint64) (uint64, error) {
	if err := s.before(ctx, OpDecrement, key); err != nil {
		return 0, err
	}
	return s.applyDelta(key, delta, true)
}

// Flush implements kvstore.Store.
func (s *Store) Flush(ctx context.Context) error {
	if err := s.before(ctx, OpFlush, ""); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]byte)
	return nil
}

// Close implements kvstore.CloseableStore. It does nothing.
func (s *Store) Close() error {
	return nil
}

func (s *Store) applyDelta(key string, delta uint64, negative bool) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[key]
	if !ok {
		return 0, kvstore.ErrNotFound
	}
	cur, err := kvstore.ParseCounter(raw)
	if err != nil {
		return 0, err
	}
	res := kvstore.ApplyDelta(cur, delta, negative)
	s.data[key] = kvstore.FormatCounter(res)
	return res, nil
}

func (s *Store) before(ctx context.Context, op Op, key string) error {
	s.calls[op].Inc()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.faultMu.RLock()
	fault := s.fault
	s.faultMu.RUnlock()
	if fault != nil {
		return fault(op, key)
	}
	return nil
}
