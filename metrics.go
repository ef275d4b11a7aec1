package bitsetcache

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/bitsetcache/filter"
	"github.com/hupe1980/bitsetcache/internal/cache"
	"github.com/hupe1980/bitsetcache/model"
)

// MetricsObserver receives cache events.
// Implement this interface to integrate with monitoring systems like Prometheus
// (see the observability package).
//
// OnCache and OnRemoval may run while internal locks are held; they must be
// fast and must not call back into the Cache.
type MetricsObserver interface {
	// OnHit is called when a lookup is served by a cached or in-flight bitset.
	OnHit(f filter.Key)

	// OnMiss is called when a lookup has to compute the bitset.
	OnMiss(f filter.Key)

	// OnLoad is called after each computation. err is nil if successful.
	OnLoad(f filter.Key, duration time.Duration, err error)

	// OnCache is called when a computed bitset is retained.
	OnCache(seg model.SegmentID, f filter.Key, bytes int64)

	// OnRemoval is called for every retained bitset that leaves the cache.
	OnRemoval(seg model.SegmentID, f filter.Key, bytes int64, reason string)

	// OnEvict is called once per segment whose bitsets were dropped.
	OnEvict(seg model.SegmentID, reason string)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnHit(filter.Key)                                     {}
func (NoopMetricsObserver) OnMiss(filter.Key)                                    {}
func (NoopMetricsObserver) OnLoad(filter.Key, time.Duration, error)              {}
func (NoopMetricsObserver) OnCache(model.SegmentID, filter.Key, int64)           {}
func (NoopMetricsObserver) OnRemoval(model.SegmentID, filter.Key, int64, string) {}
func (NoopMetricsObserver) OnEvict(model.SegmentID, string)                      {}

// BasicMetricsObserver provides simple in-memory metrics collection.
// Useful for debugging and for owners that keep node-wide memory stats.
type BasicMetricsObserver struct {
	Hits          atomic.Int64
	Misses        atomic.Int64
	Loads         atomic.Int64
	LoadErrors    atomic.Int64
	LoadNanos     atomic.Int64
	CachedEntries atomic.Int64
	CachedBytes   atomic.Int64
	Evictions     atomic.Int64
}

// OnHit implements MetricsObserver.
func (b *BasicMetricsObserver) OnHit(filter.Key) {
	b.Hits.Add(1)
}

// OnMiss implements MetricsObserver.
func (b *BasicMetricsObserver) OnMiss(filter.Key) {
	b.Misses.Add(1)
}

// OnLoad implements MetricsObserver.
func (b *BasicMetricsObserver) OnLoad(_ filter.Key, duration time.Duration, err error) {
	b.Loads.Add(1)
	b.LoadNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// OnCache implements MetricsObserver.
func (b *BasicMetricsObserver) OnCache(_ model.SegmentID, _ filter.Key, bytes int64) {
	b.CachedEntries.Add(1)
	b.CachedBytes.Add(bytes)
}

// OnRemoval implements MetricsObserver.
func (b *BasicMetricsObserver) OnRemoval(_ model.SegmentID, _ filter.Key, bytes int64, _ string) {
	b.CachedEntries.Add(-1)
	b.CachedBytes.Add(-bytes)
}

// OnEvict implements MetricsObserver.
func (b *BasicMetricsObserver) OnEvict(model.SegmentID, string) {
	b.Evictions.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsObserver) GetStats() BasicMetricsStats {
	loads := b.Loads.Load()
	var avg int64
	if loads > 0 {
		avg = b.LoadNanos.Load() / loads
	}
	return BasicMetricsStats{
		Hits:          b.Hits.Load(),
		Misses:        b.Misses.Load(),
		Loads:         loads,
		LoadErrors:    b.LoadErrors.Load(),
		LoadAvgNanos:  avg,
		CachedEntries: b.CachedEntries.Load(),
		CachedBytes:   b.CachedBytes.Load(),
		Evictions:     b.Evictions.Load(),
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsObserver state.
type BasicMetricsStats struct {
	Hits          int64
	Misses        int64
	Loads         int64
	LoadErrors    int64
	LoadAvgNanos  int64
	CachedEntries int64
	CachedBytes   int64
	Evictions     int64
}

// observerListener forwards internal cache events to a MetricsObserver.
type observerListener struct {
	m MetricsObserver
}

func (l observerListener) OnCache(e cache.Entry) {
	l.m.OnCache(e.Segment, e.Filter, e.Bytes)
}

func (l observerListener) OnRemoval(e cache.Entry, reason cache.RemovalReason) {
	l.m.OnRemoval(e.Segment, e.Filter, e.Bytes, reason.String())
}

func (l observerListener) OnEvict(id model.SegmentID, reason cache.RemovalReason) {
	l.m.OnEvict(id, reason.String())
}
