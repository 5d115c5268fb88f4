/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log_test

import (
	"bytes"
	stdlog "log"
	"time"

	"github.com/acronis/go-kvlru/config"
	"github.com/acronis/go-kvlru/log"
)

func Example() {
	cfgData := bytes.NewBufferString(`
log:
  level: debug
  output: stderr
  format: text
`)
	cfg := log.NewConfig()
	if err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(cfgData, config.DataTypeYAML, cfg); err != nil {
		stdlog.Fatal(err)
	}

	logger, closeLog := log.NewLogger(cfg)
	defer closeLog()

	logger.With(log.String("backend", "redis")).Debug("store call",
		log.String("op", "get"), log.String("key", "kvlru:meta:head"), log.DurationIn(time.Millisecond*3, time.Microsecond))
}
