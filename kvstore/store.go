/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ErrNotFound is returned by Store.Get (and by Store.Increment/Store.Decrement on some backends)
// when the requested key does not exist.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a minimal key-value store contract used as the sole persistence mechanism of the cache.
// Values are opaque byte slices that the store never interprets,
// except for counters which are stored as decimal ASCII integers.
//
// Implementations are not required to provide atomicity across several calls.
type Store interface {
	// Get returns the value stored under the key or ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value under the key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Increment adds delta to the counter stored under the key and returns the new value.
	// The key must exist and hold a decimal integer, otherwise ErrNotFound or a parsing error is returned.
	Increment(ctx context.Context, key string, delta uint64) (uint64, error)

	// Decrement subtracts delta from the counter stored under the key and returns the new value.
	// The result never goes below zero.
	Decrement(ctx context.Context, key string, delta uint64) (uint64, error)

	// Flush removes all entries from the store.
	Flush(ctx context.Context) error
}

// CloseableStore is a Store that holds resources (connections, files) which must be released.
type CloseableStore interface {
	Store
	Close() error
}

// FormatCounter encodes a counter value the way all backends store it.
func FormatCounter(v uint64) []byte {
	return strconv.AppendUint(nil, v, 10)
}

// ParseCounter decodes a counter value previously encoded with FormatCounter.
func ParseCounter(data []byte) (uint64, error) {
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("kvstore: invalid counter value %q: %w", data, err)
	}
	return v, nil
}

// ApplyDelta adds (or subtracts, if negative is true) delta to cur with saturation at 0 and at max uint64.
// Backends without native counters use it inside their read-modify-write transactions.
func ApplyDelta(cur, delta uint64, negative bool) uint64 {
	if negative {
		if delta > cur {
			return 0
		}
		return cur - delta
	}
	if cur+delta < cur {
		return ^uint64(0)
	}
	return cur + delta
}
