/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/acronis/go-kvlru/config"
	"github.com/acronis/go-kvlru/kvlru"
	"github.com/acronis/go-kvlru/kvstore"
	"github.com/acronis/go-kvlru/kvstore/backends"
	"github.com/acronis/go-kvlru/log"
)

const envVarsPrefix = "KVLRU"

// Every command runs in a separate process, so the store has to outlive it.
const (
	defaultBoltPath   = "kvlru.db"
	defaultSqlitePath = "kvlru.sqlite"
)

type appConfig struct {
	Log   *log.Config
	Cache *kvlru.Config
	Store *backends.Config
}

var _ config.Config = (*appConfig)(nil)

func (c *appConfig) SetProviderDefaults(dp config.DataProvider) {
	config.CallSetProviderDefaultsForFields(c, dp)
	dp.SetDefault("store.backend", string(backends.BackendBolt))
	dp.SetDefault("store.bolt.path", defaultBoltPath)
	dp.SetDefault("store.sqlite.path", defaultSqlitePath)
}

func (c *appConfig) Set(dp config.DataProvider) error {
	return config.CallSetForFields(c, dp)
}

func loadConfig(path string) (*appConfig, error) {
	cfg := &appConfig{
		Log:   log.NewConfig(),
		Cache: kvlru.NewConfig(),
		Store: backends.NewConfig(),
	}
	loader := config.NewDefaultLoader(envVarsPrefix)
	var err error
	if path == "" {
		err = loader.Load(cfg)
	} else {
		err = loader.LoadFromFile(path, dataTypeOf(path), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Store.IsVolatile() {
		return nil, fmt.Errorf("load configuration: store: %q backend doesn't keep data between kvlru runs, "+
			"use a file-based or a networked one", cfg.Store.Backend)
	}
	// Command results are printed to stdout.
	if cfg.Log.Output == log.OutputStdout {
		cfg.Log.Output = log.OutputStderr
	}
	return cfg, nil
}

func dataTypeOf(path string) config.DataType {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return config.DataTypeJSON
	}
	return config.DataTypeYAML
}

// app is passed to every command's Run method.
type app struct {
	ctx      context.Context
	out      io.Writer
	logger   log.FieldLogger
	closeLog log.CloseFunc
	store    kvstore.CloseableStore
	cache    *kvlru.Cache[string, []byte]
}

func newApp(configPath string, out io.Writer) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, closeLog := log.NewLogger(cfg.Log)
	ctx := context.Background()

	store, err := backends.Open(ctx, cfg.Store, logger)
	if err != nil {
		closeLog()
		return nil, err
	}

	cache, err := kvlru.NewWithOpts[string, []byte](store, kvlru.Options[[]byte]{
		Capacity:  cfg.Cache.Capacity,
		Namespace: cfg.Cache.Namespace,
		Codec:     kvlru.BytesCodec{},
		Logger:    logger,
	})
	if err != nil {
		_ = store.Close()
		closeLog()
		return nil, err
	}

	return &app{ctx: ctx, out: out, logger: logger, closeLog: closeLog, store: store, cache: cache}, nil
}

func (a *app) Close() error {
	err := a.store.Close()
	if err != nil {
		a.logger.Error("failed to close key-value store", log.Error(err))
	}
	a.closeLog()
	return err
}
