/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package kvlru

import (
	"crypto/sha256"
	"encoding/hex"
)

// Ref is a reference to the entry in the store. Empty Ref means "no entry".
type Ref string

// RefOf returns the reference of the entry for the given cache key (hex-encoded SHA-256 digest).
func RefOf(key string) Ref {
	sum := sha256.Sum256([]byte(key))
	return Ref(hex.EncodeToString(sum[:]))
}
