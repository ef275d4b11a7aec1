// Package bitsetcache caches the bitsets of filters evaluated on immutable
// segments.
//
// A bitset is computed at most once per (segment, filter) pair and kept for
// as long as the segment is alive. There is no size or age based eviction:
// the cache listens for the end-of-life of every segment it has seen and
// drops that segment's bitsets when it happens.
//
// # Quick Start
//
//	w := index.NewWriter()
//	_ = w.AddDocument(index.Document{"type": "parent"})
//	_ = w.Commit()
//
//	r, _ := index.OpenReader(w)
//	defer r.Close()
//
//	c := bitsetcache.New()
//	defer c.Close()
//
//	parents := c.Producer(filter.Term("type", "parent"))
//	for _, seg := range r.Segments() {
//	    bs, err := parents.BitSet(ctx, seg)
//	    ...
//	}
//
// # Concurrency
//
// Concurrent lookups for the same pair share a single computation; lookups
// for different segments or filters never wait on each other. A failed
// computation is returned to every waiting caller and is not cached.
//
// # Lifecycle
//
// Callers must hold a reference on the segment while looking it up. A lookup
// on a segment that already reached end-of-life fails with ErrSegmentClosed
// and leaves nothing behind. A bitset whose computation finishes after its
// segment died is discarded.
//
// # Warming
//
// Filters registered with WithWarmFilters are precomputed by Warm, usually
// right after a reader was reopened:
//
//	c := bitsetcache.New(bitsetcache.WithWarmFilters(filter.Term("type", "parent")))
//	_ = c.Warm(ctx, bitsetcache.AsSegments(r.Segments())...)
//
// # Memory
//
// Every retained bitset is accounted with a resource.Controller. With a
// memory limit, bitsets that do not fit are returned to the caller without
// being cached.
package bitsetcache
