package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/bitsetcache/bitset"
	"github.com/hupe1980/bitsetcache/filter"
	"github.com/hupe1980/bitsetcache/model"
)

var (
	// ErrClosed is returned when the cache is closed.
	ErrClosed = errors.New("filter cache closed")

	// ErrSegmentClosed is returned for lookups on a segment that reached end-of-life.
	ErrSegmentClosed = errors.New("segment closed")

	// ErrInvalidArgument is returned for nil segments, empty keys or nil compute functions.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPanic wraps a panic raised by a compute function.
	ErrPanic = errors.New("compute panicked")

	// errEvicted marks a lookup whose bucket was evicted before it finished.
	errEvicted = errors.New("segment bucket evicted")
)

// LoadError reports a failed bitset computation for one (segment, filter) pair.
type LoadError struct {
	Segment model.SegmentID
	Filter  filter.Key
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s for %s: %v", e.Filter, e.Segment, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ComputeFunc produces the bitset for one (segment, filter) pair.
type ComputeFunc func(ctx context.Context) (*bitset.BitSet, error)

// Entry describes one cached bitset.
type Entry struct {
	Segment model.SegmentID
	Filter  filter.Key
	Bytes   int64
}

// RemovalReason tells why an entry left the cache.
type RemovalReason uint8

const (
	// RemovalSegmentClosed means the segment reached end-of-life.
	RemovalSegmentClosed RemovalReason = iota
	// RemovalEvicted means the segment was evicted explicitly.
	RemovalEvicted
	// RemovalCleared means the whole cache was cleared or closed.
	RemovalCleared
)

func (r RemovalReason) String() string {
	switch r {
	case RemovalSegmentClosed:
		return "segment_closed"
	case RemovalEvicted:
		return "evicted"
	case RemovalCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Listener observes entries entering and leaving the cache.
// OnCache and OnRemoval run while the owning bucket is locked and must not
// call back into the cache. OnEvict runs once per removed bucket after its
// entries were released.
type Listener interface {
	OnCache(e Entry)
	OnRemoval(e Entry, reason RemovalReason)
	OnEvict(id model.SegmentID, reason RemovalReason)
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	// Segments is the number of segment buckets.
	Segments int64
	// Entries is the number of cached bitsets.
	Entries int64
	// Bytes is the retained size of all cached bitsets.
	Bytes int64

	Hits       int64
	Misses     int64
	Loads      int64
	LoadErrors int64
	// Evictions counts removed segment buckets.
	Evictions int64
	// Rejected counts bitsets returned but not retained due to memory limits.
	Rejected int64
}

// HitRate returns the cache hit rate (0.0-1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
