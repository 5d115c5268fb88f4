/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"errors"
	"fmt"
)

var errKeyNotFound = errors.New("key not found")

type GetCmd struct {
	Key string `arg:"" help:"Key to get."`
}

func (c *GetCmd) Run(a *app) error {
	val, found, err := a.cache.Get(a.ctx, c.Key)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%q: %w", c.Key, errKeyNotFound)
	}
	_, err = fmt.Fprintln(a.out, string(val))
	return err
}

type SetCmd struct {
	Key   string `arg:"" help:"Key to set."`
	Value string `arg:"" help:"Value to set."`
}

func (c *SetCmd) Run(a *app) error {
	return a.cache.Set(a.ctx, c.Key, []byte(c.Value))
}

type HasCmd struct {
	Key string `arg:"" help:"Key to check."`
}

func (c *HasCmd) Run(a *app) error {
	ok, err := a.cache.Contains(a.ctx, c.Key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, ok)
	return err
}

type KeysCmd struct{}

func (c *KeysCmd) Run(a *app) error {
	keys, err := a.cache.Keys(a.ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if _, err = fmt.Fprintln(a.out, k); err != nil {
			return err
		}
	}
	return nil
}

type LenCmd struct{}

func (c *LenCmd) Run(a *app) error {
	n, err := a.cache.Len(a.ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "%d/%d\n", n, a.cache.Capacity())
	return err
}

type ClearCmd struct{}

func (c *ClearCmd) Run(a *app) error {
	return a.cache.Clear(a.ctx)
}
