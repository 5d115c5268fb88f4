/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package sqlstore implements kvstore.Store as a single key-value table managed by gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/acronis/go-kvlru/kvstore"
)

type sqlEntry struct {
	Key   string `gorm:"primaryKey"`
	Value []byte

	UpdatedAt time.Time
}

// TableName implements gorm's tabler interface.
func (sqlEntry) TableName() string {
	return "kv_entries"
}

// Store is a kvstore.Store backed by a SQL database.
type Store struct {
	db *gorm.DB
}

var _ kvstore.CloseableStore = (*Store)(nil)

// WithSqlite returns a dialector for the sqlite database file at the given path.
func WithSqlite(file string) gorm.Dialector {
	return sqlite.Open(file + "?_pragma=journal_mode(WAL)")
}

// WithSqliteInMemory returns a dialector for a private in-memory sqlite database.
func WithSqliteInMemory() gorm.Dialector {
	return sqlite.Open(":memory:")
}

// Open opens the database with the given dialector and migrates the entries table.
func Open(d gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(d, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sql database: %w", err)
	}
	// A single connection keeps in-memory sqlite databases alive and serializes writes.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err = db.AutoMigrate(&sqlEntry{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sql database: %w", err)
	}
	return &Store{db: db}, nil
}

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var e sqlEntry
	err := s.db.WithContext(ctx).Where(byKey(key)).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, kvstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if e.Value == nil {
		return []byte{}, nil
	}
	return e.Value, nil
}

// Set implements kvstore.Store.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.upsert(s.db.WithContext(ctx), key, value)
}

// Delete implements kvstore.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where(byKey(key)).Delete(&sqlEntry{}).Error
}

// Increment implements kvstore.Store.
func (s *Store) Increment(ctx context.Context, key string, delta uint64) (uint64, error) {
	return s.applyDelta(ctx, key, delta, false)
}

// Decrement implements kvstore.Store.
func (s *Store) Decrement(ctx context.Context, key string, delta uint64) (uint64, error) {
	return s.applyDelta(ctx, key, delta, true)
}

// Flush implements kvstore.Store.
func (s *Store) Flush(ctx context.Context) error {
	return s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&sqlEntry{}).Error
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func byKey(key string) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

func (s *Store) upsert(db *gorm.DB, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&sqlEntry{Key: key, Value: value}).Error
}

func (s *Store) applyDelta(ctx context.Context, key string, delta uint64, negative bool) (uint64, error) {
	var res uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e sqlEntry
		if err := tx.Where(byKey(key)).Take(&e).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return kvstore.ErrNotFound
			}
			return err
		}
		cur, err := kvstore.ParseCounter(e.Value)
		if err != nil {
			return err
		}
		res = kvstore.ApplyDelta(cur, delta, negative)
		return s.upsert(tx, key, kvstore.FormatCounter(res))
	})
	return res, err
}
