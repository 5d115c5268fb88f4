/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-kvlru/kvstore"
	"github.com/acronis/go-kvlru/kvstore/storetest"
)

func TestStore_Conformance(t *testing.T) {
	storetest.RunConformanceTests(t, func(t *testing.T) kvstore.Store {
		s, err := Open(WithSqliteInMemory())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStore_FilePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kvlru.sqlite")

	s, err := Open(WithSqlite(path))
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "kvlru:meta:head", []byte("abc")))
	require.NoError(t, s.Close())

	s, err = Open(WithSqlite(path))
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	val, err := s.Get(ctx, "kvlru:meta:head")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), val)
}
