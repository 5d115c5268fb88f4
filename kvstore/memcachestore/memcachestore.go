/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package memcachestore implements kvstore.Store on top of one or more memcached servers.
package memcachestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/acronis/go-kvlru/kvstore"
)

// maxKeyLength is the maximum key length accepted by the memcached text protocol.
const maxKeyLength = 250

const hashedKeyPrefix = "sha256:"

// Options represents options for the memcached client.
type Options struct {
	// Timeout is the socket read/write timeout. Client's default (500ms) is used if zero.
	Timeout time.Duration

	// MaxIdleConns is the maximum number of idle connections kept per server. Client's default is used if zero.
	MaxIdleConns int
}

// Store is a kvstore.Store backed by memcached.
// Memcached may evict items on its own when it runs out of memory,
// which the cache reports as an inconsistent state.
type Store struct {
	client *memcache.Client
}

var _ kvstore.CloseableStore = (*Store)(nil)

// New creates a new Store for the given servers (host:port or unix socket paths).
func New(servers []string, opts Options) (*Store, error) {
	if len(servers) == 0 {
		return nil, errors.New("at least one memcached server must be specified")
	}
	ss := new(memcache.ServerList)
	if err := ss.SetServers(servers...); err != nil {
		return nil, err
	}
	client := memcache.NewFromSelector(ss)
	if opts.Timeout > 0 {
		client.Timeout = opts.Timeout
	}
	if opts.MaxIdleConns > 0 {
		client.MaxIdleConns = opts.MaxIdleConns
	}
	return &Store{client: client}, nil
}

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item, err := s.client.Get(storeKey(key))
	if err != nil {
		return nil, translateErr(err)
	}
	return item.Value, nil
}

// Set implements kvstore.Store.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translateErr(s.client.Set(&memcache.Item{Key: storeKey(key), Value: value}))
}

// Delete implements kvstore.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Delete(storeKey(key)); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	return nil
}

// Increment implements kvstore.Store.
func (s *Store) Increment(ctx context.Context, key string, delta uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	val, err := s.client.Increment(storeKey(key), delta)
	return val, translateErr(err)
}

// Decrement implements kvstore.Store. Memcached itself never decrements below zero.
func (s *Store) Decrement(ctx context.Context, key string, delta uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	val, err := s.client.Decrement(storeKey(key), delta)
	return val, translateErr(err)
}

// Flush implements kvstore.Store. It invalidates all items on all servers.
func (s *Store) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.client.FlushAll()
}

// Close closes idle connections.
func (s *Store) Close() error {
	return s.client.Close()
}

func translateErr(err error) error {
	if errors.Is(err, memcache.ErrCacheMiss) {
		return kvstore.ErrNotFound
	}
	return err
}

// storeKey maps keys that memcached cannot accept (too long, containing spaces or control characters)
// to a fixed length digest.
func storeKey(key string) string {
	if isLegalKey(key) {
		return key
	}
	sum := sha256.Sum256([]byte(key))
	return hashedKeyPrefix + hex.EncodeToString(sum[:])
}

func isLegalKey(key string) bool {
	if key == "" || len(key) > maxKeyLength || strings.HasPrefix(key, hashedKeyPrefix) {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] <= ' ' || key[i] == 0x7f {
			return false
		}
	}
	return true
}
