/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package backends

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-kvlru/config"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name:        "default values",
			cfgData:     ``,
			expectedCfg: func() *Config { return NewDefaultConfig() },
		},
		{
			name: "redis",
			cfgData: `
store:
  backend: Redis
  redis:
    addrs: ["10.0.0.1:6379", "10.0.0.2:6379"]
    db: 2
    password: secret
  retry:
    enabled: true
    maxAttempts: 5
    initialInterval: 10ms
  logCalls: true
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Backend = BackendRedis
				cfg.Redis = RedisConfig{Addrs: []string{"10.0.0.1:6379", "10.0.0.2:6379"}, DB: 2, Password: "secret"}
				cfg.Retry = RetryConfig{Enabled: true, MaxAttempts: 5, InitialInterval: config.TimeDuration(10 * time.Millisecond)}
				cfg.LogCalls = true
				return cfg
			},
		},
		{
			name: "memcached",
			cfgData: `
store:
  backend: memcached
  memcached:
    servers: ["127.0.0.1:11211"]
    timeout: 1s
    maxIdleConns: 8
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Backend = BackendMemcached
				cfg.Memcached = MemcachedConfig{
					Servers: []string{"127.0.0.1:11211"}, Timeout: config.TimeDuration(time.Second), MaxIdleConns: 8,
				}
				return cfg
			},
		},
		{
			name: "bolt",
			cfgData: `
store:
  backend: bolt
  bolt:
    path: /var/lib/kvlru/cache.db
    bucket: lru
    openTimeout: 5s
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Backend = BackendBolt
				cfg.Bolt = BoltConfig{Path: "/var/lib/kvlru/cache.db", Bucket: "lru", OpenTimeout: config.TimeDuration(5 * time.Second)}
				return cfg
			},
		},
		{
			name: "sqlite",
			cfgData: `
store:
  backend: sqlite
  sqlite:
    path: /tmp/cache.sqlite
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Backend = BackendSqlite
				cfg.Sqlite = SqliteConfig{Path: "/tmp/cache.sqlite"}
				return cfg
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			actualCfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, actualCfg)
			require.NoError(t, err)
			require.Equal(t, tt.expectedCfg(), actualCfg)
		})
	}
}

func TestConfigValidationErrors(t *testing.T) {
	tests := []struct {
		name           string
		cfgData        string
		expectedErrMsg string
	}{
		{
			name: "unknown backend",
			cfgData: `
store:
  backend: etcd
`,
			expectedErrMsg: `store.backend: unknown value "etcd", should be one of [memory memcached redis bolt sqlite]`,
		},
		{
			name: "bolt without path",
			cfgData: `
store:
  backend: bolt
`,
			expectedErrMsg: `store.bolt.path: cannot be empty when "bolt" backend is used`,
		},
		{
			name: "memcached without servers",
			cfgData: `
store:
  backend: memcached
  memcached:
    servers: []
`,
			expectedErrMsg: `store.memcached.servers: cannot be empty when "memcached" backend is used`,
		},
		{
			name: "negative redis db",
			cfgData: `
store:
  redis:
    db: -1
`,
			expectedErrMsg: `store.redis.db: should be >= 0`,
		},
		{
			name: "retry without interval",
			cfgData: `
store:
  retry:
    enabled: true
    initialInterval: 0s
`,
			expectedErrMsg: `store.retry.initialInterval: should be > 0 when retries are enabled`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			require.EqualError(t, err, tt.expectedErrMsg)
		})
	}
}

func TestConfig_IsVolatile(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{name: "memory", cfg: Config{Backend: BackendMemory}, want: true},
		{name: "unset backend", cfg: Config{}, want: true},
		{name: "in-memory sqlite", cfg: Config{Backend: BackendSqlite, Sqlite: SqliteConfig{Path: ":memory:"}}, want: true},
		{name: "sqlite file", cfg: Config{Backend: BackendSqlite, Sqlite: SqliteConfig{Path: "cache.sqlite"}}},
		{name: "bolt", cfg: Config{Backend: BackendBolt, Bolt: BoltConfig{Path: "cache.db"}}},
		{name: "redis", cfg: Config{Backend: BackendRedis}},
		{name: "memcached", cfg: Config{Backend: BackendMemcached}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.cfg.IsVolatile())
		})
	}
}
