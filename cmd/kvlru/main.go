/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Command kvlru works with an LRU cache kept in a key-value store (memcached, Redis, bbolt or sqlite).
package main

import (
	"os"

	"github.com/alecthomas/kong"
)

type cli struct {
	Config string `short:"c" help:"Configuration file (YAML or JSON). Values can be overridden by KVLRU_* environment variables." type:"path"`

	Get   GetCmd   `cmd:"" help:"Print the value of the key and mark it as recently used."`
	Set   SetCmd   `cmd:"" help:"Set the value of the key, evicting the least recently used key if the cache is full."`
	Has   HasCmd   `cmd:"" help:"Check whether the key is cached without changing the usage order."`
	Keys  KeysCmd  `cmd:"" help:"List cached keys from the most to the least recently used."`
	Len   LenCmd   `cmd:"" help:"Print the number of cached keys."`
	Clear ClearCmd `cmd:"" help:"Remove all keys (flushes the whole store)."`
}

func main() {
	var args cli
	ctx := kong.Parse(&args,
		kong.Name("kvlru"),
		kong.Description("LRU cache over a key-value store."),
		kong.ShortUsageOnError(),
	)

	app, err := newApp(args.Config, os.Stdout)
	ctx.FatalIfErrorf(err)

	err = ctx.Run(app)
	closeErr := app.Close()
	ctx.FatalIfErrorf(err)
	ctx.FatalIfErrorf(closeErr)
}
