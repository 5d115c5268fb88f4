/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func decodeJSONLines(t *testing.T, data []byte) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &entry), "line %q", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := NewDefaultConfig()
	logger, closeLog := newLogger(cfg, &buf)

	storeErr := errors.New("connection refused")
	logger.Debug("store call", String("op", "get"))
	logger.Info("key-value store opened", String("backend", "redis"))
	logger.With(String("key", "user:1")).Warn("cache is in inconsistent state", Error(storeErr))
	logger.Errorf("failed to close %s store", "redis")
	closeLog()

	entries := decodeJSONLines(t, buf.Bytes())
	require.Len(t, entries, 3)

	require.Equal(t, "info", entries[0]["level"])
	require.Equal(t, "key-value store opened", entries[0]["msg"])
	require.Equal(t, "redis", entries[0]["backend"])
	require.Equal(t, os.Getpid(), int(entries[0]["pid"].(float64)))
	require.Contains(t, entries[0], "time")

	require.Equal(t, "warn", entries[1]["level"])
	require.Equal(t, "user:1", entries[1]["key"])
	require.Equal(t, storeErr.Error(), entries[1]["error"])

	require.Equal(t, "error", entries[2]["level"])
	require.Equal(t, "failed to close redis store", entries[2]["msg"])
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		level    Level
		wantMsgs []string
	}{
		{level: LevelDebug, wantMsgs: []string{"debug", "info", "warn", "error"}},
		{level: LevelInfo, wantMsgs: []string{"info", "warn", "error"}},
		{level: LevelWarn, wantMsgs: []string{"warn", "error"}},
		{level: LevelError, wantMsgs: []string{"error"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.level), func(t *testing.T) {
			var buf bytes.Buffer
			cfg := NewDefaultConfig()
			cfg.Level = tt.level
			logger, closeLog := newLogger(cfg, &buf)
			logger.Debugf("%s", "debug")
			logger.Infof("%s", "info")
			logger.Warnf("%s", "warn")
			logger.Errorf("%s", "error")
			closeLog()

			var gotMsgs []string
			for _, entry := range decodeJSONLines(t, buf.Bytes()) {
				gotMsgs = append(gotMsgs, entry["msg"].(string))
			}
			require.Equal(t, tt.wantMsgs, gotMsgs)
		})
	}
}

func TestLogger_WithLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := NewDefaultConfig()
	cfg.Level = LevelDebug
	logger, closeLog := newLogger(cfg, &buf)
	logger = logger.WithLevel(LevelWarn)
	logger.Info("cache entry evicted")
	logger.Warn("store call failed, will retry")

	called := false
	logger.AtLevel(LevelDebug, func(LogFunc) { called = true })
	closeLog()

	require.False(t, called)
	entries := decodeJSONLines(t, buf.Bytes())
	require.Len(t, entries, 1)
	require.Equal(t, "store call failed, will retry", entries[0]["msg"])
}

func TestLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	cfg := NewDefaultConfig()
	cfg.Format = FormatText
	cfg.NoColor = true
	logger, closeLog := newLogger(cfg, &buf)
	logger.Info("cache entry evicted", String("key", "user:1"))
	closeLog()

	out := buf.String()
	require.Contains(t, out, "cache entry evicted")
	require.Contains(t, out, "user:1")
}

func TestLogger_File(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Output = OutputFile
	cfg.File.Path = filepath.Join(dir, "kvlru-{{pid}}.log")

	logger, closeLog := NewLogger(cfg)
	logger.Info("key-value store opened", String("backend", "bolt"))
	closeLog()

	data, err := os.ReadFile(filepath.Join(dir, "kvlru-"+strconv.Itoa(os.Getpid())+".log"))
	require.NoError(t, err)
	entries := decodeJSONLines(t, data)
	require.Len(t, entries, 1)
	require.Equal(t, "bolt", entries[0]["backend"])
}

func TestResolvePlaceholders(t *testing.T) {
	got := resolvePlaceholders("/var/log/kvlru-{{starttime}}-{{pid}}.log")
	require.NotContains(t, got, "{{")
	require.True(t, strings.HasSuffix(got, "-"+strconv.Itoa(os.Getpid())+".log"))
	require.Equal(t, "plain.log", resolvePlaceholders("plain.log"))
}

func TestDurationIn(t *testing.T) {
	field := DurationIn(time.Millisecond*1500, time.Millisecond)
	require.Equal(t, "duration", field.Key)
	require.EqualValues(t, 1500, field.Int)
}
