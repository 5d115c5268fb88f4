/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package redisstore implements kvstore.Store on top of a Redis (or Redis-compatible) server.
package redisstore

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/acronis/go-kvlru/kvstore"
)

// Counters are updated by a script so that the absent key is reported (INCRBY would create it)
// and decrements saturate at zero in one round trip.
var adjustCounterScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v == false then
	return -1
end
local n = tonumber(v)
if n == nil then
	return redis.error_reply('value is not an integer')
end
n = n + tonumber(ARGV[1])
if n < 0 then
	n = 0
end
redis.call('SET', KEYS[1], string.format('%d', n))
return n
`)

// Store is a kvstore.Store backed by Redis.
type Store struct {
	client redis.UniversalClient
}

var _ kvstore.CloseableStore = (*Store)(nil)

// New creates a new Store that uses the given client. The client is closed by Store.Close.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Open creates a client with the given options, checks the connection and returns a new Store.
func Open(ctx context.Context, opts *redis.UniversalOptions) (*Store, error) {
	client := redis.NewUniversalClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return New(client), nil
}

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kvstore.ErrNotFound
	}
	return val, err
}

// Set implements kvstore.Store.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// Delete implements kvstore.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Increment implements kvstore.Store.
func (s *Store) Increment(ctx context.Context, key string, delta uint64) (uint64, error) {
	return s.adjust(ctx, key, strconv.FormatUint(delta, 10))
}

// Decrement implements kvstore.Store.
func (s *Store) Decrement(ctx context.Context, key string, delta uint64) (uint64, error) {
	return s.adjust(ctx, key, "-"+strconv.FormatUint(delta, 10))
}

// Flush implements kvstore.Store. It removes all keys of the currently selected database.
func (s *Store) Flush(ctx context.Context) error {
	return s.client.FlushDB(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) adjust(ctx context.Context, key string, signedDelta string) (uint64, error) {
	res, err := adjustCounterScript.Run(ctx, s.client, []string{key}, signedDelta).Int64()
	if err != nil {
		return 0, err
	}
	if res < 0 {
		return 0, kvstore.ErrNotFound
	}
	return uint64(res), nil
}
