package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hupe1980/bitsetcache/bitset"
	"github.com/hupe1980/bitsetcache/filter"
	"github.com/hupe1980/bitsetcache/model"
	"github.com/hupe1980/bitsetcache/resource"
	"github.com/hupe1980/bitsetcache/segment"
)

// Option configures a FilterCache.
type Option func(*FilterCache)

// WithLogger sets the logger for the cache.
func WithLogger(l *slog.Logger) Option {
	return func(c *FilterCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithResourceController sets the controller used for byte accounting.
func WithResourceController(rc *resource.Controller) Option {
	return func(c *FilterCache) {
		c.rc = rc
	}
}

// WithListener sets the listener notified about cached and removed entries.
func WithListener(l Listener) Option {
	return func(c *FilterCache) {
		c.listener = l
	}
}

// FilterCache caches one bitset per (segment, filter) pair for as long as
// the segment is alive.
type FilterCache struct {
	shards   *shards
	logger   *slog.Logger
	rc       *resource.Controller
	listener Listener
	closed   atomic.Bool

	segments atomic.Int64
	entries  atomic.Int64
	bytes    atomic.Int64

	hits       atomic.Int64
	misses     atomic.Int64
	loads      atomic.Int64
	loadErrors atomic.Int64
	evictions  atomic.Int64
	rejected   atomic.Int64
}

// New creates an empty FilterCache.
func New(opts ...Option) *FilterCache {
	c := &FilterCache{
		shards: newShards(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the bitset for (seg, key), computing it with compute on
// the first lookup. Concurrent lookups for the same pair share a single
// computation.
func (c *FilterCache) Resolve(ctx context.Context, seg segment.Segment, key filter.Key, compute ComputeFunc) (*bitset.BitSet, error) {
	if seg == nil || key == "" || compute == nil {
		return nil, ErrInvalidArgument
	}

	for {
		if c.closed.Load() {
			return nil, ErrClosed
		}

		var bs *bitset.BitSet
		b, err := c.bucketFor(seg)
		if err == nil {
			bs, err = c.resolveIn(ctx, b, key, compute)
		}
		if errors.Is(err, errEvicted) {
			// The bucket went away mid-lookup. Start over: a dead segment
			// refuses the new registration, a live one gets a fresh bucket.
			continue
		}
		return bs, err
	}
}

func (c *FilterCache) resolveIn(ctx context.Context, b *bucket, key filter.Key, compute ComputeFunc) (*bitset.BitSet, error) {
	for {
		s, created := b.slotFor(key)
		if s == nil {
			return nil, errEvicted
		}

		if created {
			c.misses.Add(1)
			return c.load(ctx, b, key, s, compute)
		}

		c.hits.Add(1)
		select {
		case <-s.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		switch {
		case s.err == nil:
			return s.value, nil
		case errors.Is(s.err, errEvicted):
			return nil, errEvicted
		case isContextError(s.err) && ctx.Err() == nil:
			// The producer's own cancellation is not a failure of this
			// caller: the slot was dropped, so retry with our live context.
			continue
		default:
			return nil, s.err
		}
	}
}

// bucketFor returns the registered bucket of seg, creating it on first sight.
func (c *FilterCache) bucketFor(seg segment.Segment) (*bucket, error) {
	id := seg.ID()
	b, created := c.shards.of(id).getOrCreate(id)
	if created {
		c.segments.Add(1)
		c.register(seg, b)
	}

	<-b.registered
	if b.regErr != nil {
		return nil, b.regErr
	}
	return b, nil
}

// register attaches the eviction hook to seg. Exactly one goroutine calls it
// per bucket; everybody else waits on b.registered.
func (c *FilterCache) register(seg segment.Segment, b *bucket) {
	defer close(b.registered)

	if c.closed.Load() {
		b.regErr = ErrClosed
		c.removeBucket(b, RemovalCleared)
		return
	}

	remove, err := seg.AddCloseListener(func(model.SegmentID) {
		c.removeBucket(b, RemovalSegmentClosed)
	})
	if err != nil {
		if errors.Is(err, segment.ErrClosed) {
			b.regErr = segmentClosedError(b.id)
		} else {
			b.regErr = fmt.Errorf("register close listener for %s: %w", b.id, err)
		}
		c.removeBucket(b, RemovalSegmentClosed)
		c.logger.Warn("Lookup on closed segment", "segmentID", uint64(b.id), "error", err)
		return
	}

	b.mu.Lock()
	if b.evicted {
		// Evicted between creation and registration.
		b.mu.Unlock()
		remove()
		b.regErr = errEvicted
		return
	}
	b.unregister = remove
	b.mu.Unlock()

	c.logger.Debug("Segment registered", "segmentID", uint64(b.id))
}

func (c *FilterCache) load(ctx context.Context, b *bucket, key filter.Key, s *slot, compute ComputeFunc) (*bitset.BitSet, error) {
	start := time.Now()
	bs, err := c.compute(ctx, b, key, s, compute)
	c.loads.Add(1)

	if err != nil {
		lerr := &LoadError{Segment: b.id, Filter: key, Err: err}
		c.fail(b, key, s, lerr)
		if !isContextError(err) {
			c.loadErrors.Add(1)
			c.logger.Error("Filter load failed",
				"segmentID", uint64(b.id),
				"filter", string(key),
				"error", err,
			)
		}
		return nil, lerr
	}
	if bs == nil {
		bs = bitset.Empty()
	}

	if err := c.install(b, key, s, bs); err != nil {
		return nil, err
	}

	c.logger.Debug("Filter loaded",
		"segmentID", uint64(b.id),
		"filter", string(key),
		"cardinality", bs.Cardinality(),
		"bytes", bs.SizeInBytes(),
		"duration", time.Since(start),
	)
	return bs, nil
}

// compute runs fn. A panic fails the slot before it propagates, so waiters
// never block on an abandoned slot.
func (c *FilterCache) compute(ctx context.Context, b *bucket, key filter.Key, s *slot, fn ComputeFunc) (bs *bitset.BitSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.loads.Add(1)
			c.loadErrors.Add(1)
			c.fail(b, key, s, &LoadError{Segment: b.id, Filter: key, Err: fmt.Errorf("%w: %v", ErrPanic, r)})
			panic(r)
		}
	}()
	return fn(ctx)
}

// install publishes a computed bitset unless the bucket was evicted meanwhile.
func (c *FilterCache) install(b *bucket, key filter.Key, s *slot, bs *bitset.BitSet) error {
	size := bs.SizeInBytes()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.evicted {
		s.fail(errEvicted)
		return errEvicted
	}

	if err := c.rc.AcquireMemory(size); err != nil {
		// Not retained: waiters get the bitset, the next lookup recomputes.
		b.dropLocked(key, s)
		c.rejected.Add(1)
		s.complete(bs, 0)
		return nil
	}

	b.entries++
	b.bytes += size
	c.entries.Add(1)
	c.bytes.Add(size)
	s.complete(bs, size)

	if c.listener != nil {
		c.listener.OnCache(Entry{Segment: b.id, Filter: key, Bytes: size})
	}
	return nil
}

func (c *FilterCache) fail(b *bucket, key filter.Key, s *slot, err error) {
	b.mu.Lock()
	b.dropLocked(key, s)
	b.mu.Unlock()
	s.fail(err)
}

// Evict removes the bucket of a segment with all its entries.
// Evicting an unknown or already evicted segment is a no-op.
func (c *FilterCache) Evict(id model.SegmentID) {
	if b := c.shards.of(id).get(id); b != nil {
		c.removeBucket(b, RemovalEvicted)
	}
}

// removeBucket unlinks b from its shard and releases its entries.
func (c *FilterCache) removeBucket(b *bucket, reason RemovalReason) {
	if c.shards.of(b.id).remove(b) {
		c.segments.Add(-1)
	}
	c.evictBucket(b, reason)
}

// evictBucket releases the entries of a bucket that is no longer reachable
// from the shards. It is idempotent.
func (c *FilterCache) evictBucket(b *bucket, reason RemovalReason) {
	b.mu.Lock()
	if b.evicted {
		b.mu.Unlock()
		return
	}
	b.evicted = true

	for key, s := range b.slots {
		if !s.ready() {
			// Pending producers observe b.evicted and discard their result.
			continue
		}
		c.rc.ReleaseMemory(s.bytes)
		if c.listener != nil {
			c.listener.OnRemoval(Entry{Segment: b.id, Filter: key, Bytes: s.bytes}, reason)
		}
	}
	entries, bytes := b.entries, b.bytes
	c.entries.Add(-entries)
	c.bytes.Add(-bytes)
	b.slots = nil
	b.entries, b.bytes = 0, 0
	unregister := b.unregister
	b.unregister = nil
	b.mu.Unlock()

	c.evictions.Add(1)

	if unregister != nil && reason != RemovalSegmentClosed {
		unregister()
	}
	if c.listener != nil {
		c.listener.OnEvict(b.id, reason)
	}

	c.logger.Debug("Segment evicted",
		"segmentID", uint64(b.id),
		"reason", reason.String(),
		"entries", entries,
		"bytes", bytes,
	)
}

// Clear evicts every bucket regardless of segment liveness and unregisters
// the close listeners. It returns the number of evicted buckets.
func (c *FilterCache) Clear() int {
	n := 0
	for _, sh := range c.shards.s {
		drained := sh.drain()
		c.segments.Add(-int64(len(drained)))
		for _, b := range drained {
			c.evictBucket(b, RemovalCleared)
		}
		n += len(drained)
	}
	return n
}

// Close clears the cache and rejects further lookups. It is idempotent.
func (c *FilterCache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.Clear()
	return nil
}

// Closed reports whether Close was called.
func (c *FilterCache) Closed() bool {
	return c.closed.Load()
}

// Stats returns a snapshot of the cache counters.
func (c *FilterCache) Stats() Stats {
	return Stats{
		Segments:   c.segments.Load(),
		Entries:    c.entries.Load(),
		Bytes:      c.bytes.Load(),
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Loads:      c.loads.Load(),
		LoadErrors: c.loadErrors.Load(),
		Evictions:  c.evictions.Load(),
		Rejected:   c.rejected.Load(),
	}
}

// SegmentStats returns the ready entries and bytes cached for one segment.
func (c *FilterCache) SegmentStats(id model.SegmentID) (entries, bytes int64, ok bool) {
	b := c.shards.of(id).get(id)
	if b == nil {
		return 0, 0, false
	}
	entries, bytes = b.stats()
	return entries, bytes, true
}

// Len returns the number of segment buckets by walking the shards.
func (c *FilterCache) Len() int {
	n := 0
	for _, sh := range c.shards.s {
		n += sh.len()
	}
	return n
}

func segmentClosedError(id model.SegmentID) error {
	return fmt.Errorf("%w: %s", ErrSegmentClosed, id)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
