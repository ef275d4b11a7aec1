// Package cache implements the segment-scoped bitset filter cache.
//
// # Layout
//
//	FilterCache
//	 └── 64 shards: map[SegmentID]*bucket   (one bucket per live segment)
//	      └── bucket: map[filter.Key]*slot  (one slot per filter)
//	           └── slot: pending → ready(BitSet) | failed
//
// The first lookup for a segment creates its bucket and registers a close
// listener on the segment. When the segment reaches end-of-life the listener
// removes the whole bucket in one step. There is no time or size based
// eviction.
//
// # Loading
//
// The first caller that misses on a (segment, filter) pair installs a pending
// slot and computes the bitset outside of any lock. Concurrent callers for
// the same pair block on the slot and receive the same bitset or the same
// error. A failed slot is removed so the next lookup retries. Different pairs
// never wait on each other.
//
// # Eviction Races
//
// A computation that completes after its bucket was evicted is discarded and
// its waiters get ErrSegmentClosed. A lookup that creates a bucket for a
// segment that already reached end-of-life gets ErrSegmentClosed and leaves
// nothing behind.
//
// # Accounting
//
// Entries and bytes count ready slots only. Pending slots contribute nothing
// until their bitset is installed, and eviction subtracts exactly what the
// bucket added. An optional resource.Controller tracks bytes across caches;
// when it refuses a reservation the bitset is returned but not retained.
package cache
