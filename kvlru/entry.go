/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package kvlru

// entry is a node of the usage list as it's persisted in the store.
// Next points to the less recently used neighbor, Prev to the more recently used one.
type entry struct {
	ref Ref

	Key   string `json:"key"`
	Value []byte `json:"value"`
	Next  Ref    `json:"next,omitempty"`
	Prev  Ref    `json:"prev,omitempty"`
}
