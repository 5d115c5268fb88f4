/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package kvlru provides a fixed-capacity LRU cache which keeps both the cached values
// and the usage order in an external key-value store (see kvstore.Store).
//
// The usage order is a doubly-linked list. Its nodes (entries) do not point to each other directly,
// they are addressed by references derived from the cache keys, and every traversal step is a store call.
// Three keyspaces are used inside the store, all under the configured namespace:
//
//	<namespace>:idx:<key>   - reference of the key's entry
//	<namespace>:ent:<ref>   - encoded entry (key, value, next and previous references)
//	<namespace>:meta:head   - reference of the most recently used entry
//	<namespace>:meta:tail   - reference of the least recently used entry
//	<namespace>:meta:count  - number of entries (decimal)
//
// The cache serializes its own operations, but it doesn't coordinate with other processes
// (or other Cache instances) working on the same store and namespace.
package kvlru
