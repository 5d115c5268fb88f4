/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest_test

import (
	"fmt"

	"github.com/acronis/go-kvlru/log"
	"github.com/acronis/go-kvlru/log/logtest"
)

func Example() {
	evict := func(key string, logger log.FieldLogger) {
		logger.Debug("cache entry evicted", log.String("key", key), log.Int("count", 10))
	}

	logRecorder := logtest.NewRecorder()
	evict("user:1", logRecorder)

	if logEntry, found := logRecorder.FindEntry("cache entry evicted"); found {
		fmt.Printf("[%s] %s\n", logEntry.Level, logEntry.Text)
		if keyField, ok := logEntry.FindField("key"); ok {
			fmt.Printf("key: %s\n", keyField.Bytes)
		}
		if countField, ok := logEntry.FindField("count"); ok {
			fmt.Printf("count: %d\n", countField.Int)
		}
	}

	// Output:
	// [debug] cache entry evicted
	// key: user:1
	// count: 10
}
