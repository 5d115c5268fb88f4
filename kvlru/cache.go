/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package kvlru

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/acronis/go-kvlru/kvstore"
	"github.com/acronis/go-kvlru/log"
)

// DefaultCapacity is the capacity used when Options.Capacity is not specified.
const DefaultCapacity = 10

// DefaultNamespace is the namespace used when Options.Namespace is not specified.
const DefaultNamespace = "kvlru"

// Store operation names used in StoreError.Op.
const (
	OpGet       = "get"
	OpSet       = "set"
	OpDelete    = "delete"
	OpIncrement = "increment"
	OpDecrement = "decrement"
	OpFlush     = "flush"
	OpEncode    = "encode"
	OpDecode    = "decode"
)

// Cache is an LRU cache with a fixed capacity which keeps values and their usage order in kvstore.Store.
// All operations of one Cache are serialized, so it's safe for concurrent use.
// Operations are not atomic from the store's point of view:
// if a store call fails in the middle of an operation, the list may become inconsistent.
type Cache[K ~string, V any] struct {
	store    kvstore.Store
	capacity int
	ks       keyspace
	codec    Codec[V]
	logger   log.FieldLogger

	mu sync.Mutex

	metricsCollector MetricsCollector
}

// Options represents options for the cache.
type Options[V any] struct {
	// Capacity is the maximum number of entries. DefaultCapacity is used if zero.
	Capacity int

	// Namespace is prepended to all store keys (it must not contain ':').
	// Caches with different namespaces may share one store. DefaultNamespace is used if empty.
	Namespace string

	// Codec converts values to bytes. JSONCodec is used if nil.
	Codec Codec[V]

	// Logger is used for logging evictions and inconsistencies. Disabled logger is used if nil.
	Logger log.FieldLogger

	// MetricsCollector is used to collect statistics about cache usage. Metrics are disabled if nil.
	MetricsCollector MetricsCollector
}

// New creates a new Cache with the provided store, capacity and metrics collector.
func New[K ~string, V any](store kvstore.Store, capacity int, metricsCollector MetricsCollector) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be greater than 0")
	}
	return NewWithOpts[K, V](store, Options[V]{Capacity: capacity, MetricsCollector: metricsCollector})
}

// NewWithOpts creates a new Cache with the provided store and options.
func NewWithOpts[K ~string, V any](store kvstore.Store, opts Options[V]) (*Cache[K, V], error) {
	if store == nil {
		return nil, fmt.Errorf("store must be specified")
	}
	if opts.Capacity < 0 {
		return nil, fmt.Errorf("capacity must be greater than 0")
	}
	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if err := validateNamespace(opts.Namespace); err != nil {
		return nil, err
	}
	if opts.Codec == nil {
		opts.Codec = JSONCodec[V]{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}

	return &Cache[K, V]{
		store:            store,
		capacity:         opts.Capacity,
		ks:               keyspace{namespace: opts.Namespace},
		codec:            opts.Codec,
		logger:           opts.Logger,
		metricsCollector: opts.MetricsCollector,
	}, nil
}

func validateNamespace(ns string) error {
	if ns == "" {
		return fmt.Errorf("namespace cannot be empty")
	}
	if strings.ContainsAny(ns, ": \t\r\n") {
		return fmt.Errorf("namespace %q cannot contain ':' or whitespace", ns)
	}
	return nil
}

// Capacity returns the maximum number of entries in the cache.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Get returns a value from the cache by the provided key and makes it the most recently used one.
// ok is false (and error is nil) if the key is not in the cache.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (value V, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok, err = c.get(ctx, string(key))
	if err != nil {
		return value, false, c.observeErr(err, string(key))
	}
	if ok {
		c.metricsCollector.IncHits()
	} else {
		c.metricsCollector.IncMisses()
	}
	return value, ok, nil
}

// Set adds a value to the cache or updates the existing one, and makes it the most recently used.
// When the cache is full, the least recently used entry is evicted.
func (c *Cache[K, V]) Set(ctx context.Context, key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.set(ctx, string(key), value); err != nil {
		return c.observeErr(err, string(key))
	}
	return nil
}

// Contains reports whether the key is in the cache. It doesn't affect the usage order.
func (c *Cache[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok, err := c.lookup(ctx, string(key))
	if err != nil {
		return false, c.observeErr(err, string(key))
	}
	return ok, nil
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.readCount(ctx)
	if err != nil {
		return 0, c.observeErr(err, "")
	}
	return n, nil
}

// Keys returns all keys in the cache from the most recently used to the least recently used one.
// It walks the whole list and verifies its links, so ErrInconsistentState is returned if the list is broken.
func (c *Cache[K, V]) Keys(ctx context.Context) ([]K, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.keys(ctx)
	if err != nil {
		return nil, c.observeErr(err, "")
	}
	return keys, nil
}

// Clear removes all entries by flushing the store.
// Note that the whole store is flushed, including keys which don't belong to the cache's namespace.
func (c *Cache[K, V]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Flush(ctx); err != nil {
		return c.observeErr(c.storeErr(OpFlush, "", err), "")
	}
	c.metricsCollector.SetAmount(0)
	return nil
}

func (c *Cache[K, V]) get(ctx context.Context, key string) (value V, ok bool, err error) {
	ref, ok, err := c.lookup(ctx, key)
	if err != nil || !ok {
		return value, false, err
	}
	e, err := c.loadEntry(ctx, ref)
	if err != nil {
		return value, false, err
	}
	if e.Key != key {
		return value, false, inconsistentStateErr("entry %s belongs to key %q", ref, e.Key)
	}
	if err = c.codec.Unmarshal(e.Value, &value); err != nil {
		return value, false, c.storeErr(OpDecode, c.ks.entryKey(ref), err)
	}
	if err = c.promote(ctx, e); err != nil {
		return value, false, err
	}
	return value, true, nil
}

func (c *Cache[K, V]) set(ctx context.Context, key string, value V) error {
	data, err := c.codec.Marshal(value)
	if err != nil {
		return c.storeErr(OpEncode, key, err)
	}

	ref, ok, err := c.lookup(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		return c.update(ctx, ref, key, data)
	}
	return c.insert(ctx, key, data)
}

// update overwrites the value of the existing entry and moves it to the head.
func (c *Cache[K, V]) update(ctx context.Context, ref Ref, key string, data []byte) error {
	e, err := c.loadEntry(ctx, ref)
	if err != nil {
		return err
	}
	if e.Key != key {
		return inconsistentStateErr("entry %s belongs to key %q", ref, e.Key)
	}
	e.Value = data
	head, err := c.readRef(ctx, c.ks.headKey())
	if err != nil {
		return err
	}
	if head == e.ref {
		return c.saveEntry(ctx, e)
	}
	return c.moveToHead(ctx, e, head)
}

func (c *Cache[K, V]) insert(ctx context.Context, key string, data []byte) error {
	e := &entry{ref: RefOf(key), Key: key, Value: data}
	if err := c.setValue(ctx, c.ks.indexKey(key), []byte(e.ref)); err != nil {
		return err
	}

	head, err := c.readRef(ctx, c.ks.headKey())
	if err != nil {
		return err
	}

	var count uint64
	if head == "" {
		if err = c.saveEntry(ctx, e); err != nil {
			return err
		}
		if err = c.setValue(ctx, c.ks.headKey(), []byte(e.ref)); err != nil {
			return err
		}
		if err = c.setValue(ctx, c.ks.tailKey(), []byte(e.ref)); err != nil {
			return err
		}
		count = 1
		if err = c.setValue(ctx, c.ks.countKey(), kvstore.FormatCounter(count)); err != nil {
			return err
		}
	} else {
		if err = c.attach(ctx, e, head); err != nil {
			return err
		}
		if count, err = c.store.Increment(ctx, c.ks.countKey(), 1); err != nil {
			if errors.Is(err, kvstore.ErrNotFound) {
				return inconsistentStateErr("count is missing while head is %s", head)
			}
			return c.storeErr(OpIncrement, c.ks.countKey(), err)
		}
	}

	if count > uint64(c.capacity) {
		if count, err = c.evict(ctx); err != nil {
			return err
		}
	}
	c.metricsCollector.SetAmount(int(count))
	return nil
}

// promote makes the entry the most recently used one. It's a no-op for the current head.
func (c *Cache[K, V]) promote(ctx context.Context, e *entry) error {
	head, err := c.readRef(ctx, c.ks.headKey())
	if err != nil {
		return err
	}
	if head == e.ref {
		return nil
	}
	return c.moveToHead(ctx, e, head)
}

// moveToHead detaches the entry (which is not the head) and attaches it in front of the head.
// The tail slot is moved here since detach doesn't touch bookkeeping slots.
func (c *Cache[K, V]) moveToHead(ctx context.Context, e *entry, head Ref) error {
	if e.Prev == "" {
		return inconsistentStateErr("entry %s is not the head (%s) but has no previous entry", e.ref, head)
	}
	tail, err := c.readRef(ctx, c.ks.tailKey())
	if err != nil {
		return err
	}
	if tail == e.ref {
		if err = c.setValue(ctx, c.ks.tailKey(), []byte(e.Prev)); err != nil {
			return err
		}
	}
	if err = c.detach(ctx, e); err != nil {
		return err
	}
	return c.attach(ctx, e, head)
}

// attach links the entry in front of the entry referenced by head, saves both entries,
// and moves the head slot to the entry.
func (c *Cache[K, V]) attach(ctx context.Context, e *entry, head Ref) error {
	e.Prev = ""
	e.Next = head
	if head != "" {
		headEntry, err := c.loadEntry(ctx, head)
		if err != nil {
			return err
		}
		headEntry.Prev = e.ref
		if err = c.saveEntry(ctx, headEntry); err != nil {
			return err
		}
	}
	if err := c.saveEntry(ctx, e); err != nil {
		return err
	}
	return c.setValue(ctx, c.ks.headKey(), []byte(e.ref))
}

// detach links the entry's neighbors to each other and saves them.
// It doesn't update head and tail slots, callers must do it when the entry is the head or the tail.
func (c *Cache[K, V]) detach(ctx context.Context, e *entry) error {
	if e.Prev != "" {
		prev, err := c.loadEntry(ctx, e.Prev)
		if err != nil {
			return err
		}
		prev.Next = e.Next
		if err = c.saveEntry(ctx, prev); err != nil {
			return err
		}
	}
	if e.Next != "" {
		next, err := c.loadEntry(ctx, e.Next)
		if err != nil {
			return err
		}
		next.Prev = e.Prev
		if err = c.saveEntry(ctx, next); err != nil {
			return err
		}
	}
	e.Prev, e.Next = "", ""
	return nil
}

// evict removes the least recently used entry and returns the new number of entries.
func (c *Cache[K, V]) evict(ctx context.Context) (uint64, error) {
	tail, err := c.readRef(ctx, c.ks.tailKey())
	if err != nil {
		return 0, err
	}
	if tail == "" {
		return 0, inconsistentStateErr("tail is missing while count exceeds capacity")
	}
	e, err := c.loadEntry(ctx, tail)
	if err != nil {
		return 0, err
	}

	if e.Prev == "" {
		// The tail is also the head, the list becomes empty.
		if err = c.deleteKey(ctx, c.ks.headKey()); err != nil {
			return 0, err
		}
		if err = c.deleteKey(ctx, c.ks.tailKey()); err != nil {
			return 0, err
		}
	} else {
		if err = c.setValue(ctx, c.ks.tailKey(), []byte(e.Prev)); err != nil {
			return 0, err
		}
		if err = c.detach(ctx, e); err != nil {
			return 0, err
		}
	}

	count, err := c.store.Decrement(ctx, c.ks.countKey(), 1)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return 0, inconsistentStateErr("count is missing while evicting %s", tail)
		}
		return 0, c.storeErr(OpDecrement, c.ks.countKey(), err)
	}
	if err = c.deleteKey(ctx, c.ks.entryKey(tail)); err != nil {
		return 0, err
	}
	if err = c.deleteKey(ctx, c.ks.indexKey(e.Key)); err != nil {
		return 0, err
	}

	c.metricsCollector.AddEvictions(1)
	c.logger.Debug("cache entry evicted", log.String("key", e.Key), log.Uint64("entries", count))
	return count, nil
}

func (c *Cache[K, V]) keys(ctx context.Context) ([]K, error) {
	count, err := c.readCount(ctx)
	if err != nil {
		return nil, err
	}
	head, err := c.readRef(ctx, c.ks.headKey())
	if err != nil {
		return nil, err
	}
	tail, err := c.readRef(ctx, c.ks.tailKey())
	if err != nil {
		return nil, err
	}
	if (head == "") != (tail == "") || (head == "") != (count == 0) {
		return nil, inconsistentStateErr("head %q, tail %q and count %d disagree", head, tail, count)
	}

	keys := make([]K, 0, count)
	var prev Ref
	for ref := head; ref != ""; {
		if len(keys) == count {
			return nil, inconsistentStateErr("list starting at %s is longer than count %d", head, count)
		}
		e, err := c.loadEntry(ctx, ref)
		if err != nil {
			return nil, err
		}
		if e.Prev != prev {
			return nil, inconsistentStateErr("entry %s points back to %q instead of %q", ref, e.Prev, prev)
		}
		keys = append(keys, K(e.Key))
		prev, ref = ref, e.Next
	}
	if len(keys) != count {
		return nil, inconsistentStateErr("list has %d entries while count is %d", len(keys), count)
	}
	if prev != tail {
		return nil, inconsistentStateErr("list ends at %q while tail is %q", prev, tail)
	}
	return keys, nil
}

// lookup resolves the key to the reference of its entry using the index.
func (c *Cache[K, V]) lookup(ctx context.Context, key string) (Ref, bool, error) {
	return c.readRefOK(ctx, c.ks.indexKey(key))
}

func (c *Cache[K, V]) readRef(ctx context.Context, storeKey string) (Ref, error) {
	ref, _, err := c.readRefOK(ctx, storeKey)
	return ref, err
}

func (c *Cache[K, V]) readRefOK(ctx context.Context, storeKey string) (Ref, bool, error) {
	data, err := c.store.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return "", false, nil
		}
		return "", false, c.storeErr(OpGet, storeKey, err)
	}
	return Ref(data), len(data) != 0, nil
}

func (c *Cache[K, V]) readCount(ctx context.Context) (int, error) {
	data, err := c.store.Get(ctx, c.ks.countKey())
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return 0, nil
		}
		return 0, c.storeErr(OpGet, c.ks.countKey(), err)
	}
	n, err := kvstore.ParseCounter(data)
	if err != nil {
		return 0, c.storeErr(OpDecode, c.ks.countKey(), err)
	}
	return int(n), nil
}

func (c *Cache[K, V]) loadEntry(ctx context.Context, ref Ref) (*entry, error) {
	storeKey := c.ks.entryKey(ref)
	data, err := c.store.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, inconsistentStateErr("entry %s is missing", ref)
		}
		return nil, c.storeErr(OpGet, storeKey, err)
	}
	e := &entry{ref: ref}
	if err = json.Unmarshal(data, e); err != nil {
		return nil, c.storeErr(OpDecode, storeKey, err)
	}
	return e, nil
}

func (c *Cache[K, V]) saveEntry(ctx context.Context, e *entry) error {
	storeKey := c.ks.entryKey(e.ref)
	data, err := json.Marshal(e)
	if err != nil {
		return c.storeErr(OpEncode, storeKey, err)
	}
	return c.setValue(ctx, storeKey, data)
}

func (c *Cache[K, V]) setValue(ctx context.Context, storeKey string, data []byte) error {
	if err := c.store.Set(ctx, storeKey, data); err != nil {
		return c.storeErr(OpSet, storeKey, err)
	}
	return nil
}

func (c *Cache[K, V]) deleteKey(ctx context.Context, storeKey string) error {
	if err := c.store.Delete(ctx, storeKey); err != nil {
		return c.storeErr(OpDelete, storeKey, err)
	}
	return nil
}

func (c *Cache[K, V]) storeErr(op, storeKey string, err error) error {
	c.metricsCollector.IncStoreErrors()
	return &StoreError{Op: op, Key: storeKey, Err: err}
}

func (c *Cache[K, V]) observeErr(err error, key string) error {
	if errors.Is(err, ErrInconsistentState) {
		c.metricsCollector.IncInconsistencies()
		c.logger.Warn("cache is in inconsistent state", log.String("key", key), log.Error(err))
	}
	return err
}
