/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package boltstore implements kvstore.Store on top of a local bbolt database file.
package boltstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/acronis/go-kvlru/kvstore"
)

// DefaultBucket is the name of the bucket in which all entries are kept.
const DefaultBucket = "kvlru"

// DefaultOpenTimeout is the default timeout for obtaining the file lock when opening the database.
const DefaultOpenTimeout = time.Second * 60

// Options represents options for opening the bbolt database.
type Options struct {
	// Bucket is the name of the bucket. DefaultBucket is used if empty.
	Bucket string

	// OpenTimeout is the amount of time to wait to obtain the file lock. DefaultOpenTimeout is used if zero.
	OpenTimeout time.Duration

	// NoSync disables fsync after each commit. It speeds up writes but may lose data on crash.
	NoSync bool
}

// Store is a kvstore.Store backed by bbolt.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

var _ kvstore.CloseableStore = (*Store)(nil)

// Open opens (creating if needed) the bbolt database at the given path.
func Open(path string, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		opts.Bucket = DefaultBucket
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = DefaultOpenTimeout
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: opts.OpenTimeout, NoSync: opts.NoSync})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %q: %w", path, err)
	}
	s := &Store{db: db, bucket: []byte(opts.Bucket)}
	if err = db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(s.bucket)
		return createErr
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket %q: %w", opts.Bucket, err)
	}
	return s, nil
}

// Path returns the path of the database file.
func (s *Store) Path() string {
	return s.db.Path()
}

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var val []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return kvstore.ErrNotFound
		}
		// Returned slices are only valid for the life of the transaction.
		val = append([]byte(nil), v...)
		return nil
	})
	return val, err
}

// Set implements kvstore.Store.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), value)
	})
}

// Delete implements kvstore.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

// Increment implements kvstore.Store.
func (s *Store) Increment(ctx context.Context, key string, delta uint64) (uint64, error) {
	return s.applyDelta(ctx, key, delta, false)
}

// Decrement implements kvstore.Store.
func (s *Store) Decrement(ctx context.Context, key string, delta uint64) (uint64, error) {
	return s.applyDelta(ctx, key, delta, true)
}

// Flush implements kvstore.Store. It drops and recreates the bucket.
func (s *Store) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) applyDelta(ctx context.Context, key string, delta uint64, negative bool) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var res uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		raw := b.Get([]byte(key))
		if raw == nil {
			return kvstore.ErrNotFound
		}
		cur, err := kvstore.ParseCounter(raw)
		if err != nil {
			return err
		}
		res = kvstore.ApplyDelta(cur, delta, negative)
		return b.Put([]byte(key), kvstore.FormatCounter(res))
	})
	return res, err
}
