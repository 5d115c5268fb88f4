/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package kvlru

import (
	"fmt"

	"github.com/acronis/go-kvlru/config"
)

const cfgDefaultKeyPrefix = "cache"

const (
	cfgKeyCapacity  = "capacity"
	cfgKeyNamespace = "namespace"
)

// Config represents a set of configuration parameters for the cache.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// Capacity is the maximum number of entries in the cache.
	Capacity int `mapstructure:"capacity" yaml:"capacity" json:"capacity"`

	// Namespace is prepended to all keys the cache writes to the store.
	Namespace string `mapstructure:"namespace" yaml:"namespace" json:"namespace"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

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

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Capacity = DefaultCapacity
	cfg.Namespace = DefaultNamespace
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

// SetProviderDefaults sets default configuration values for the cache in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyCapacity, DefaultCapacity)
	dp.SetDefault(cfgKeyNamespace, DefaultNamespace)
}

// Set sets cache configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Capacity, err = dp.GetInt(cfgKeyCapacity); err != nil {
		return err
	}
	if c.Capacity <= 0 {
		return dp.WrapKeyErr(cfgKeyCapacity, fmt.Errorf("must be positive"))
	}
	if c.Namespace, err = dp.GetString(cfgKeyNamespace); err != nil {
		return err
	}
	if err = validateNamespace(c.Namespace); err != nil {
		return dp.WrapKeyErr(cfgKeyNamespace, err)
	}
	return nil
}
