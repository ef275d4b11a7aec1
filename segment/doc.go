// Package segment defines the lifecycle boundary between an immutable segment
// and the caches that derive data from it.
//
// A Segment exposes a stable identity and a way to be told, exactly once,
// that it reached end-of-life. Caches hold only the identity; they never keep
// a segment alive. The owning subsystem decides when a segment dies and calls
// back into every registered listener.
//
// RefCounted is the reference implementation: a segment starts with one
// reference, readers and writers take additional references, and the last
// DecRef closes it and fires its listeners.
//
//	seg := segment.NewRefCounted(id, rows)
//	remove, err := seg.AddCloseListener(func(id model.SegmentID) {
//	    cache.Evict(id)
//	})
//	...
//	seg.DecRef() // refs reach zero: listeners fire once
package segment
