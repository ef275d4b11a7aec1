package bitsetcache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hupe1980/bitsetcache/bitset"
	"github.com/hupe1980/bitsetcache/filter"
	"github.com/hupe1980/bitsetcache/internal/cache"
	"github.com/hupe1980/bitsetcache/model"
	"github.com/hupe1980/bitsetcache/resource"
	"github.com/hupe1980/bitsetcache/segment"
)

// Segment is an immutable segment whose filters can be evaluated.
type Segment interface {
	segment.Segment
	filter.Reader
}

// AsSegments converts a slice of concrete segments, such as the segments of
// an index.Reader, for Warm.
func AsSegments[S Segment](segs []S) []Segment {
	out := make([]Segment, len(segs))
	for i, seg := range segs {
		out[i] = seg
	}
	return out
}

// ComputeFunc produces the bitset of one filter for one segment.
// It must be deterministic for a given (segment, filter) pair.
type ComputeFunc func(ctx context.Context) (*bitset.BitSet, error)

// Cache holds one bitset per (segment, filter) pair for as long as the
// segment is alive. Entries are evicted when the segment reaches end-of-life,
// never by size or age.
//
// A Cache is safe for concurrent use.
type Cache struct {
	cfg         Config
	logger      *Logger
	metrics     MetricsObserver
	rc          *resource.Controller
	warmFilters []filter.Filter

	inner  *cache.FilterCache
	closed atomic.Bool
}

// New creates a Cache.
func New(optFns ...Option) *Cache {
	o := applyOptions(optFns)
	logger := o.logger.WithName(o.cfg.Name)

	return &Cache{
		cfg:         o.cfg,
		logger:      logger,
		metrics:     o.metrics,
		rc:          o.rc,
		warmFilters: o.warmFilters,
		inner: cache.New(
			cache.WithLogger(logger.Logger),
			cache.WithResourceController(o.rc),
			cache.WithListener(observerListener{m: o.metrics}),
		),
	}
}

// Name returns the configured cache name.
func (c *Cache) Name() string {
	return c.cfg.Name
}

// Config returns the effective configuration.
func (c *Cache) Config() Config {
	return c.cfg
}

// GetBitSet returns the bitset of f for seg, evaluating f on the first lookup.
// Concurrent lookups for the same pair share one evaluation.
//
// The caller must hold a reference on seg for the duration of the call.
// A lookup on a segment that already reached end-of-life fails with
// ErrSegmentClosed.
func (c *Cache) GetBitSet(ctx context.Context, seg Segment, f filter.Filter) (*bitset.BitSet, error) {
	if seg == nil {
		return nil, ErrNilSegment
	}
	if f == nil {
		return nil, ErrNilFilter
	}
	return c.resolve(ctx, seg, f.Key(), func(ctx context.Context) (*bitset.BitSet, error) {
		return f.Evaluate(ctx, seg)
	})
}

// Resolve returns the artifact cached under (seg, key), calling compute on
// the first lookup. It is the general form of GetBitSet for callers that
// evaluate filters themselves.
func (c *Cache) Resolve(ctx context.Context, seg segment.Segment, key filter.Key, compute ComputeFunc) (*bitset.BitSet, error) {
	if seg == nil {
		return nil, ErrNilSegment
	}
	if key == "" || compute == nil {
		return nil, ErrNilFilter
	}
	return c.resolve(ctx, seg, key, compute)
}

func (c *Cache) resolve(ctx context.Context, seg segment.Segment, key filter.Key, compute ComputeFunc) (*bitset.BitSet, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	computed := false
	bs, err := c.inner.Resolve(ctx, seg, key, func(ctx context.Context) (*bitset.BitSet, error) {
		computed = true
		c.metrics.OnMiss(key)
		start := time.Now()
		bs, err := compute(ctx)
		c.metrics.OnLoad(key, time.Since(start), err)
		return bs, err
	})
	if !computed && err == nil {
		c.metrics.OnHit(key)
	}
	return bs, translateError(err)
}

// Stats returns a snapshot of the cache statistics.
func (c *Cache) Stats() Stats {
	st := c.inner.Stats()
	usage := c.rc.Usage()
	return Stats{
		Segments:        st.Segments,
		Entries:         st.Entries,
		Bytes:           st.Bytes,
		Hits:            st.Hits,
		Misses:          st.Misses,
		Loads:           st.Loads,
		LoadErrors:      st.LoadErrors,
		Evictions:       st.Evictions,
		Rejected:        st.Rejected,
		MemoryPeakBytes: usage.MemoryPeakBytes,
		MemoryLimit:     usage.MemoryLimit,
	}
}

// SegmentStats returns the number and size of the bitsets cached for one
// segment. ok is false if nothing is cached for it.
func (c *Cache) SegmentStats(id model.SegmentID) (entries, bytes int64, ok bool) {
	return c.inner.SegmentStats(id)
}

// Stats is a point-in-time snapshot of cache statistics.
type Stats struct {
	// Segments is the number of segments with cached bitsets.
	Segments int64
	// Entries is the number of cached bitsets.
	Entries int64
	// Bytes is the retained size of all cached bitsets.
	Bytes int64

	Hits       int64
	Misses     int64
	Loads      int64
	LoadErrors int64
	Evictions  int64
	// Rejected counts bitsets returned but not cached due to the memory limit.
	Rejected int64

	// MemoryPeakBytes and MemoryLimit come from the resource controller and
	// cover every cache sharing it.
	MemoryPeakBytes int64
	MemoryLimit     int64
}

// HitRate returns the cache hit rate (0.0-1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
