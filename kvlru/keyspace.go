/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package kvlru

const (
	indexSegment = "idx"
	entrySegment = "ent"
	metaSegment  = "meta"
)

// keyspace builds store keys. Segment tags keep index rows, entries and bookkeeping slots apart,
// so neither a cache key nor a reference can clash with a reserved slot name.
type keyspace struct {
	namespace string
}

func (ks keyspace) indexKey(key string) string {
	return ks.namespace + ":" + indexSegment + ":" + key
}

func (ks keyspace) entryKey(ref Ref) string {
	return ks.namespace + ":" + entrySegment + ":" + string(ref)
}

func (ks keyspace) headKey() string {
	return ks.namespace + ":" + metaSegment + ":head"
}

func (ks keyspace) tailKey() string {
	return ks.namespace + ":" + metaSegment + ":tail"
}

func (ks keyspace) countKey() string {
	return ks.namespace + ":" + metaSegment + ":count"
}
