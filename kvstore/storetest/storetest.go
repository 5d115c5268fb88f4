/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package storetest provides a conformance test suite for kvstore.Store implementations.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-kvlru/kvstore"
)

// StoreFactory creates a new empty store for a single subtest.
type StoreFactory func(t *testing.T) kvstore.Store

// RunConformanceTests runs the common kvstore.Store behavior checks against stores produced by newStore.
func RunConformanceTests(t *testing.T, newStore StoreFactory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, store kvstore.Store)
	}{
		{name: "get absent key", fn: testGetAbsent},
		{name: "set and get", fn: testSetGet},
		{name: "overwrite", fn: testOverwrite},
		{name: "delete", fn: testDelete},
		{name: "increment and decrement", fn: testIncrementDecrement},
		{name: "decrement floors at zero", fn: testDecrementFloor},
		{name: "increment absent key", fn: testIncrementAbsent},
		{name: "flush", fn: testFlush},
		{name: "binary values", fn: testBinaryValues},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func testGetAbsent(t *testing.T, store kvstore.Store) {
	_, err := store.Get(context.Background(), "absent")
	require.ErrorIs(t, err, kvstore.ErrNotFound)
}

func testSetGet(t *testing.T, store kvstore.Store) {
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "ns:idx:key1", []byte("ref1")))
	require.NoError(t, store.Set(ctx, "ns:ent:ref1", []byte(`{"k":"key1"}`)))

	val, err := store.Get(ctx, "ns:idx:key1")
	require.NoError(t, err)
	require.Equal(t, []byte("ref1"), val)

	val, err = store.Get(ctx, "ns:ent:ref1")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"k":"key1"}`), val)
}

func testOverwrite(t *testing.T, store kvstore.Store) {
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("v1")))
	require.NoError(t, store.Set(ctx, "k", []byte("v2")))
	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), val)
}

func testDelete(t *testing.T, store kvstore.Store) {
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))
	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, kvstore.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "never-existed"))
}

func testIncrementDecrement(t *testing.T, store kvstore.Store) {
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "count", kvstore.FormatCounter(1)))

	val, err := store.Increment(ctx, "count", 1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), val)

	val, err = store.Increment(ctx, "count", 10)
	require.NoError(t, err)
	require.Equal(t, uint64(12), val)

	val, err = store.Decrement(ctx, "count", 5)
	require.NoError(t, err)
	require.Equal(t, uint64(7), val)

	raw, err := store.Get(ctx, "count")
	require.NoError(t, err)
	parsed, err := kvstore.ParseCounter(raw)
	require.NoError(t, err)
	require.Equal(t, uint64(7), parsed)
}

func testDecrementFloor(t *testing.T, store kvstore.Store) {
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "count", kvstore.FormatCounter(2)))
	val, err := store.Decrement(ctx, "count", 5)
	require.NoError(t, err)
	require.Equal(t, uint64(0), val)
}

func testIncrementAbsent(t *testing.T, store kvstore.Store) {
	_, err := store.Increment(context.Background(), "absent-count", 1)
	require.ErrorIs(t, err, kvstore.ErrNotFound)
}

func testFlush(t *testing.T, store kvstore.Store) {
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, k, []byte(k)))
	}
	require.NoError(t, store.Flush(ctx))
	for _, k := range []string{"a", "b", "c"} {
		_, err := store.Get(ctx, k)
		require.ErrorIs(t, err, kvstore.ErrNotFound)
	}
	// The store must stay usable after flush.
	require.NoError(t, store.Set(ctx, "a", []byte("again")))
	val, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("again"), val)
}

func testBinaryValues(t *testing.T, store kvstore.Store) {
	ctx := context.Background()
	val := []byte{0x00, 0xff, '\r', '\n', 0x7f, 'x'}
	require.NoError(t, store.Set(ctx, "bin", val))
	got, err := store.Get(ctx, "bin")
	require.NoError(t, err)
	require.Equal(t, val, got)
}
