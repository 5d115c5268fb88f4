/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-kvlru/log"
)

func TestRecorder(t *testing.T) {
	logRecorder := NewRecorder()
	logRecorder.Warn("store call failed", log.String("op", "get"), log.Int("attempt", 2))
	logRecorder.With(log.String("backend", "redis")).Info("key-value store opened")
	logRecorder.WithLevel(log.LevelWarn).Debug("store call")

	require.Len(t, logRecorder.Entries(), 2)

	_, found := logRecorder.FindEntry("store call")
	require.False(t, found)

	logEntry, found := logRecorder.FindEntry("store call failed")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, logEntry.Level)

	attemptField, found := logEntry.FindField("attempt")
	require.True(t, found)
	require.Equal(t, 2, int(attemptField.Int))
	opField, found := logEntry.FindField("op")
	require.True(t, found)
	require.Equal(t, "get", string(opField.Bytes))
	_, found = logEntry.FindField("key")
	require.False(t, found)

	openedEntry, found := logRecorder.FindEntry("key-value store opened")
	require.True(t, found)
	backendField, found := openedEntry.FindField("backend")
	require.True(t, found)
	require.Equal(t, "redis", string(backendField.Bytes))

	warnings := logRecorder.FindAllEntriesByFilter(func(entry RecordedEntry) bool {
		return entry.Level == log.LevelWarn
	})
	require.Len(t, warnings, 1)

	logRecorder.Reset()
	require.Empty(t, logRecorder.Entries())
}
