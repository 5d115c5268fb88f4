/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package kvstore defines the key-value store contract used by the kvlru cache
// together with decorators for logging and retrying store calls.
// Concrete backends live in the subpackages (memstore, memcachestore, redisstore, boltstore, sqlstore),
// and the backends package opens one of them from configuration.
package kvstore
