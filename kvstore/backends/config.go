/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package backends

import (
	"fmt"
	"strings"
	"time"

	"github.com/acronis/go-kvlru/config"
)

const cfgDefaultKeyPrefix = "store"

const (
	cfgKeyBackend                = "backend"
	cfgKeyMemcachedServers       = "memcached.servers"
	cfgKeyMemcachedTimeout       = "memcached.timeout"
	cfgKeyMemcachedMaxIdleConns  = "memcached.maxIdleConns"
	cfgKeyRedisAddrs             = "redis.addrs"
	cfgKeyRedisDB                = "redis.db"
	cfgKeyRedisUsername          = "redis.username"
	cfgKeyRedisPassword          = "redis.password"
	cfgKeyBoltPath               = "bolt.path"
	cfgKeyBoltBucket             = "bolt.bucket"
	cfgKeyBoltOpenTimeout        = "bolt.openTimeout"
	cfgKeySqlitePath             = "sqlite.path"
	cfgKeyRetryEnabled           = "retry.enabled"
	cfgKeyRetryMaxAttempts       = "retry.maxAttempts"
	cfgKeyRetryInitialInterval   = "retry.initialInterval"
	cfgKeyLogCalls               = "logCalls"
	defaultMemcachedServer       = "127.0.0.1:11211"
	defaultRedisAddr             = "127.0.0.1:6379"
	defaultRetryMaxAttempts      = 3
	defaultRetryInitialInterval  = time.Millisecond * 50
	defaultMemcachedTimeout      = time.Millisecond * 500
	defaultBoltOpenTimeout       = time.Second * 60
	sqliteInMemoryPathIdentifier = ":memory:"
)

// Backend defines possible values for store backends.
type Backend string

// Store backends.
const (
	BackendMemory    Backend = "memory"
	BackendMemcached Backend = "memcached"
	BackendRedis     Backend = "redis"
	BackendBolt      Backend = "bolt"
	BackendSqlite    Backend = "sqlite"
)

var availableBackends = []string{
	string(BackendMemory), string(BackendMemcached), string(BackendRedis), string(BackendBolt), string(BackendSqlite),
}

// Config represents a set of configuration parameters for the backing key-value store.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	Backend   Backend         `mapstructure:"backend" yaml:"backend" json:"backend"`
	Memcached MemcachedConfig `mapstructure:"memcached" yaml:"memcached" json:"memcached"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis" json:"redis"`
	Bolt      BoltConfig      `mapstructure:"bolt" yaml:"bolt" json:"bolt"`
	Sqlite    SqliteConfig    `mapstructure:"sqlite" yaml:"sqlite" json:"sqlite"`
	Retry     RetryConfig     `mapstructure:"retry" yaml:"retry" json:"retry"`

	// LogCalls enables debug logging of every store call.
	LogCalls bool `mapstructure:"logCalls" yaml:"logCalls" json:"logCalls"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// MemcachedConfig is a configuration for the memcached backend.
type MemcachedConfig struct {
	Servers      []string            `mapstructure:"servers" yaml:"servers" json:"servers"`
	Timeout      config.TimeDuration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	MaxIdleConns int                 `mapstructure:"maxIdleConns" yaml:"maxIdleConns" json:"maxIdleConns"`
}

// RedisConfig is a configuration for the Redis backend.
type RedisConfig struct {
	Addrs    []string `mapstructure:"addrs" yaml:"addrs" json:"addrs"`
	DB       int      `mapstructure:"db" yaml:"db" json:"db"`
	Username string   `mapstructure:"username" yaml:"username" json:"username"`
	Password string   `mapstructure:"password" yaml:"password" json:"password"`
}

// BoltConfig is a configuration for the bbolt backend.
type BoltConfig struct {
	Path        string              `mapstructure:"path" yaml:"path" json:"path"`
	Bucket      string              `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	OpenTimeout config.TimeDuration `mapstructure:"openTimeout" yaml:"openTimeout" json:"openTimeout"`
}

// SqliteConfig is a configuration for the sqlite backend.
type SqliteConfig struct {
	// Path is the database file path, ":memory:" means a private in-memory database.
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// RetryConfig is a configuration for retrying failed store calls.
type RetryConfig struct {
	Enabled         bool                `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MaxAttempts     int                 `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`
	InitialInterval config.TimeDuration `mapstructure:"initialInterval" yaml:"initialInterval" json:"initialInterval"`
}

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values (in-memory backend).
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Backend = BackendMemory
	cfg.Memcached = MemcachedConfig{
		Servers: []string{defaultMemcachedServer},
		Timeout: config.TimeDuration(defaultMemcachedTimeout),
	}
	cfg.Redis = RedisConfig{Addrs: []string{defaultRedisAddr}}
	cfg.Bolt = BoltConfig{OpenTimeout: config.TimeDuration(defaultBoltOpenTimeout)}
	cfg.Sqlite = SqliteConfig{Path: sqliteInMemoryPathIdentifier}
	cfg.Retry = RetryConfig{
		MaxAttempts:     defaultRetryMaxAttempts,
		InitialInterval: config.TimeDuration(defaultRetryInitialInterval),
	}
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// IsVolatile reports whether the configured store lives only in the current process,
// so its data is lost when the process exits.
func (c *Config) IsVolatile() bool {
	switch c.Backend {
	case BackendMemory, "":
		return true
	case BackendSqlite:
		return c.Sqlite.Path == "" || c.Sqlite.Path == sqliteInMemoryPathIdentifier
	}
	return false
}

// SetProviderDefaults sets default configuration values for the store in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyBackend, string(BackendMemory))
	dp.SetDefault(cfgKeyMemcachedServers, []string{defaultMemcachedServer})
	dp.SetDefault(cfgKeyMemcachedTimeout, defaultMemcachedTimeout)
	dp.SetDefault(cfgKeyRedisAddrs, []string{defaultRedisAddr})
	dp.SetDefault(cfgKeyBoltOpenTimeout, defaultBoltOpenTimeout)
	dp.SetDefault(cfgKeySqlitePath, sqliteInMemoryPathIdentifier)
	dp.SetDefault(cfgKeyRetryMaxAttempts, defaultRetryMaxAttempts)
	dp.SetDefault(cfgKeyRetryInitialInterval, defaultRetryInitialInterval)
}

// Set sets store configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	backendStr, err := dp.GetStringFromSet(cfgKeyBackend, availableBackends, true)
	if err != nil {
		return err
	}
	c.Backend = Backend(strings.ToLower(backendStr))

	if err = c.setMemcachedConfig(dp); err != nil {
		return err
	}
	if err = c.setRedisConfig(dp); err != nil {
		return err
	}
	if err = c.setBoltConfig(dp); err != nil {
		return err
	}
	if c.Sqlite.Path, err = dp.GetString(cfgKeySqlitePath); err != nil {
		return err
	}
	if c.Backend == BackendSqlite && c.Sqlite.Path == "" {
		return dp.WrapKeyErr(cfgKeySqlitePath, fmt.Errorf("cannot be empty when %q backend is used", BackendSqlite))
	}
	if err = c.setRetryConfig(dp); err != nil {
		return err
	}
	if c.LogCalls, err = dp.GetBool(cfgKeyLogCalls); err != nil {
		return err
	}
	return nil
}

func (c *Config) setMemcachedConfig(dp config.DataProvider) error {
	var err error
	if c.Memcached.Servers, err = dp.GetStringSlice(cfgKeyMemcachedServers); err != nil {
		return err
	}
	if c.Backend == BackendMemcached && len(c.Memcached.Servers) == 0 {
		return dp.WrapKeyErr(cfgKeyMemcachedServers,
			fmt.Errorf("cannot be empty when %q backend is used", BackendMemcached))
	}
	var timeout time.Duration
	if timeout, err = dp.GetDuration(cfgKeyMemcachedTimeout); err != nil {
		return err
	}
	if timeout < 0 {
		return dp.WrapKeyErr(cfgKeyMemcachedTimeout, fmt.Errorf("should be >= 0"))
	}
	c.Memcached.Timeout = config.TimeDuration(timeout)
	if c.Memcached.MaxIdleConns, err = dp.GetInt(cfgKeyMemcachedMaxIdleConns); err != nil {
		return err
	}
	if c.Memcached.MaxIdleConns < 0 {
		return dp.WrapKeyErr(cfgKeyMemcachedMaxIdleConns, fmt.Errorf("should be >= 0"))
	}
	return nil
}

func (c *Config) setRedisConfig(dp config.DataProvider) error {
	var err error
	if c.Redis.Addrs, err = dp.GetStringSlice(cfgKeyRedisAddrs); err != nil {
		return err
	}
	if c.Backend == BackendRedis && len(c.Redis.Addrs) == 0 {
		return dp.WrapKeyErr(cfgKeyRedisAddrs, fmt.Errorf("cannot be empty when %q backend is used", BackendRedis))
	}
	if c.Redis.DB, err = dp.GetInt(cfgKeyRedisDB); err != nil {
		return err
	}
	if c.Redis.DB < 0 {
		return dp.WrapKeyErr(cfgKeyRedisDB, fmt.Errorf("should be >= 0"))
	}
	if c.Redis.Username, err = dp.GetString(cfgKeyRedisUsername); err != nil {
		return err
	}
	if c.Redis.Password, err = dp.GetString(cfgKeyRedisPassword); err != nil {
		return err
	}
	return nil
}

func (c *Config) setBoltConfig(dp config.DataProvider) error {
	var err error
	if c.Bolt.Path, err = dp.GetString(cfgKeyBoltPath); err != nil {
		return err
	}
	if c.Backend == BackendBolt && c.Bolt.Path == "" {
		return dp.WrapKeyErr(cfgKeyBoltPath, fmt.Errorf("cannot be empty when %q backend is used", BackendBolt))
	}
	if c.Bolt.Bucket, err = dp.GetString(cfgKeyBoltBucket); err != nil {
		return err
	}
	var openTimeout time.Duration
	if openTimeout, err = dp.GetDuration(cfgKeyBoltOpenTimeout); err != nil {
		return err
	}
	if openTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyBoltOpenTimeout, fmt.Errorf("should be >= 0"))
	}
	c.Bolt.OpenTimeout = config.TimeDuration(openTimeout)
	return nil
}

func (c *Config) setRetryConfig(dp config.DataProvider) error {
	var err error
	if c.Retry.Enabled, err = dp.GetBool(cfgKeyRetryEnabled); err != nil {
		return err
	}
	if c.Retry.MaxAttempts, err = dp.GetInt(cfgKeyRetryMaxAttempts); err != nil {
		return err
	}
	if c.Retry.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyRetryMaxAttempts, fmt.Errorf("should be >= 0"))
	}
	var interval time.Duration
	if interval, err = dp.GetDuration(cfgKeyRetryInitialInterval); err != nil {
		return err
	}
	if c.Retry.Enabled && interval <= 0 {
		return dp.WrapKeyErr(cfgKeyRetryInitialInterval, fmt.Errorf("should be > 0 when retries are enabled"))
	}
	c.Retry.InitialInterval = config.TimeDuration(interval)
	return nil
}
