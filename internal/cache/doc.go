// Package cache implements the read-through user repository that sits in front
// of an authoritative source. Lookups hit a sharded in-memory map first; a miss
// falls back to the source, stores the result and hands back a copy of the
// stored value, so every caller observes the same store-resident user.
// Each shard is guarded by its own RWMutex, reads never block each other, and
// values are copied out under the lock instead of being aliased.
// Negative answers and source failures are never cached, and entries are never
// evicted: once a key is present it stays present for the repository lifetime.
package cache
