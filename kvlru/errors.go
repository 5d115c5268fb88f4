/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package kvlru

import (
	"errors"
	"fmt"
)

// ErrInconsistentState is returned when the data in the store contradicts itself
// (e.g. the index points to a missing entry or the list is broken).
// It usually means the store was modified (or partially flushed/evicted) by someone else,
// or a previous operation failed in the middle.
var ErrInconsistentState = errors.New("kvlru: inconsistent state")

// StoreError is returned when a call to the backing store fails
// or data read from the store cannot be decoded.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("kvlru: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func inconsistentStateErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInconsistentState, fmt.Sprintf(format, args...))
}
