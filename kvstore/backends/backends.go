/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package backends builds a kvstore.Store from the configuration.
package backends

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acronis/go-kvlru/kvstore"
	"github.com/acronis/go-kvlru/kvstore/boltstore"
	"github.com/acronis/go-kvlru/kvstore/memcachestore"
	"github.com/acronis/go-kvlru/kvstore/memstore"
	"github.com/acronis/go-kvlru/kvstore/redisstore"
	"github.com/acronis/go-kvlru/kvstore/sqlstore"
	"github.com/acronis/go-kvlru/log"
	"github.com/acronis/go-kvlru/retry"
)

// Open creates the store described by cfg.
// Retrying and call logging decorators are applied when enabled in the configuration.
// Closing the returned store releases the underlying backend.
func Open(ctx context.Context, cfg *Config, logger log.FieldLogger) (kvstore.CloseableStore, error) {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	logger.Info("key-value store opened", log.String("backend", string(cfg.Backend)))

	var store kvstore.Store = backend
	if cfg.Retry.Enabled {
		policy := retry.NewExponentialBackoffPolicy(time.Duration(cfg.Retry.InitialInterval), cfg.Retry.MaxAttempts)
		store = kvstore.NewRetryingStore(store, policy, kvstore.RetryingStoreOpts{Logger: logger})
	}
	if cfg.LogCalls {
		store = kvstore.NewLoggingStore(store, logger)
	}
	return &decoratedStore{Store: store, closer: backend}, nil
}

func openBackend(ctx context.Context, cfg *Config) (kvstore.CloseableStore, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return memstore.New(), nil
	case BackendMemcached:
		return memcachestore.New(cfg.Memcached.Servers, memcachestore.Options{
			Timeout:      time.Duration(cfg.Memcached.Timeout),
			MaxIdleConns: cfg.Memcached.MaxIdleConns,
		})
	case BackendRedis:
		return redisstore.Open(ctx, &redis.UniversalOptions{
			Addrs:    cfg.Redis.Addrs,
			DB:       cfg.Redis.DB,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
		})
	case BackendBolt:
		return boltstore.Open(cfg.Bolt.Path, boltstore.Options{
			Bucket:      cfg.Bolt.Bucket,
			OpenTimeout: time.Duration(cfg.Bolt.OpenTimeout),
		})
	case BackendSqlite:
		if cfg.Sqlite.Path == "" || cfg.Sqlite.Path == sqliteInMemoryPathIdentifier {
			return sqlstore.Open(sqlstore.WithSqliteInMemory())
		}
		return sqlstore.Open(sqlstore.WithSqlite(cfg.Sqlite.Path))
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

type closer interface {
	Close() error
}

// decoratedStore keeps the backend's Close available behind the decorators.
type decoratedStore struct {
	kvstore.Store
	closer closer
}

func (s *decoratedStore) Close() error {
	return s.closer.Close()
}
