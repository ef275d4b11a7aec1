package bitsetcache

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/bitsetcache/bitset"
	"github.com/hupe1980/bitsetcache/filter"
	"github.com/hupe1980/bitsetcache/index"
	"github.com/hupe1980/bitsetcache/internal/cache"
	"github.com/hupe1980/bitsetcache/model"
	"github.com/hupe1980/bitsetcache/resource"
	"github.com/hupe1980/bitsetcache/segment"
	"github.com/hupe1980/bitsetcache/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parents = filter.Term("type", "parent")

func familyDocs() []index.Document {
	return []index.Document{
		{"type": "parent", "color": "red"},
		{"type": "child", "color": "red"},
		{"type": "child", "color": "blue"},
		{"type": "parent", "color": "blue"},
	}
}

func TestGetBitSet(t *testing.T) {
	_, r := testutil.Segments(t, familyDocs())
	seg := r.Segments()[0]

	c := New()
	defer c.Close()

	bs, err := c.GetBitSet(t.Context(), seg, parents)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 3}, bs.ToArray())

	again, err := c.GetBitSet(t.Context(), seg, parents)
	require.NoError(t, err)
	assert.Same(t, bs, again)

	st := c.Stats()
	assert.Equal(t, int64(1), st.Segments)
	assert.Equal(t, int64(1), st.Entries)
	assert.Equal(t, bs.SizeInBytes(), st.Bytes)
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.InDelta(t, 0.5, st.HitRate(), 1e-9)
}

func TestGetBitSet_CompoundFilters(t *testing.T) {
	_, r := testutil.Segments(t, familyDocs())
	seg := r.Segments()[0]
	c := New()
	defer c.Close()

	tests := []struct {
		name string
		f    filter.Filter
		want []uint32
	}{
		{"and", filter.And(parents, filter.Term("color", "blue")), []uint32{3}},
		{"or", filter.Or(parents, filter.Term("color", "blue")), []uint32{0, 2, 3}},
		{"not", filter.Not(parents), []uint32{1, 2}},
		{"all", filter.MatchAll(), []uint32{0, 1, 2, 3}},
		{"missing term", filter.Term("type", "orphan"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs, err := c.GetBitSet(t.Context(), seg, tt.f)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, bs.ToArray())
		})
	}
	assert.Equal(t, int64(len(tests)), c.Stats().Entries)
}

func TestGetBitSet_EquivalentFiltersShareEntry(t *testing.T) {
	_, r := testutil.Segments(t, familyDocs())
	seg := r.Segments()[0]
	c := New()
	defer c.Close()

	blue := filter.Term("color", "blue")
	a, err := c.GetBitSet(t.Context(), seg, filter.And(parents, blue))
	require.NoError(t, err)
	b, err := c.GetBitSet(t.Context(), seg, filter.And(blue, parents))
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, int64(1), c.Stats().Loads)
}

func TestGetBitSet_InvalidArguments(t *testing.T) {
	_, r := testutil.Segments(t, familyDocs())
	c := New()
	defer c.Close()

	_, err := c.GetBitSet(t.Context(), nil, parents)
	require.ErrorIs(t, err, ErrNilSegment)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = c.GetBitSet(t.Context(), r.Segments()[0], nil)
	require.ErrorIs(t, err, ErrNilFilter)

	_, err = c.Resolve(t.Context(), r.Segments()[0], "", testutil.NewCounter(nil).Compute)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetBitSet_LoadError(t *testing.T) {
	_, r := testutil.Segments(t, familyDocs())
	seg := r.Segments()[0]
	c := New()
	defer c.Close()

	boom := errors.New("postings unavailable")
	broken, err := filter.Func("broken()", func(context.Context, filter.Reader) (*bitset.BitSet, error) {
		return nil, boom
	})
	require.NoError(t, err)

	_, err = c.GetBitSet(t.Context(), seg, broken)
	require.ErrorIs(t, err, boom)

	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, seg.ID(), lerr.Segment)
	assert.Equal(t, filter.Key("broken()"), lerr.Filter)
	assert.Contains(t, lerr.Error(), "postings unavailable")

	st := c.Stats()
	assert.Zero(t, st.Entries)
	assert.Equal(t, int64(1), st.LoadErrors)
}

func TestGetBitSet_SegmentClosed(t *testing.T) {
	w, r := testutil.Segments(t, familyDocs())
	seg := r.Segments()[0]
	c := New()
	defer c.Close()

	_, err := c.GetBitSet(t.Context(), seg, parents)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, w.Close())
	require.True(t, seg.IsClosed())

	_, err = c.GetBitSet(t.Context(), seg, parents)
	require.ErrorIs(t, err, ErrSegmentClosed)
	assert.Zero(t, c.Stats().Segments)
}

func TestResolve_CustomArtifact(t *testing.T) {
	seg := segment.NewRefCounted(42, 100)
	c := New()
	defer c.Close()

	counter := testutil.NewCounter(bitset.New(1, 2, 3))
	for range 3 {
		bs, err := c.Resolve(t.Context(), seg, "custom", counter.Compute)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), bs.Cardinality())
	}
	assert.Equal(t, int64(1), counter.Calls())

	entries, bytes, ok := c.SegmentStats(42)
	require.True(t, ok)
	assert.Equal(t, int64(1), entries)
	assert.Positive(t, bytes)

	seg.DecRef()
	_, _, ok = c.SegmentStats(42)
	assert.False(t, ok)
}

func TestProducer(t *testing.T) {
	_, r := testutil.Segments(t, familyDocs(), familyDocs()[:2])
	c := New()
	defer c.Close()

	p := c.Producer(parents)
	assert.Equal(t, parents.Key(), p.Filter().Key())

	var total uint64
	for _, seg := range r.Segments() {
		bs, err := p.BitSet(t.Context(), seg)
		require.NoError(t, err)
		total += bs.Cardinality()
	}
	assert.Equal(t, uint64(3), total)
	assert.Equal(t, int64(2), c.Stats().Segments)
}

func TestCache_Close(t *testing.T) {
	_, r := testutil.Segments(t, familyDocs())
	seg := r.Segments()[0]
	c := New()

	_, err := c.GetBitSet(t.Context(), seg, parents)
	require.NoError(t, err)
	require.Equal(t, 1, seg.ListenerCount())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Zero(t, seg.ListenerCount())
	assert.Zero(t, c.Stats().Entries)

	_, err = c.GetBitSet(t.Context(), seg, parents)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, c.Warm(t.Context(), seg), ErrClosed)
}

func TestCache_Clear(t *testing.T) {
	_, r := testutil.Segments(t, familyDocs(), familyDocs())
	c := New()
	defer c.Close()

	for _, seg := range r.Segments() {
		_, err := c.GetBitSet(t.Context(), seg, parents)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.Clear("test"))
	assert.Zero(t, c.Stats().Entries)
	for _, seg := range r.Segments() {
		assert.Zero(t, seg.ListenerCount())
	}

	_, err := c.GetBitSet(t.Context(), r.Segments()[0], parents)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Stats().Entries)
}

func TestCache_MemoryLimit(t *testing.T) {
	_, r := testutil.Segments(t, familyDocs())
	seg := r.Segments()[0]
	c := New(WithMemoryLimit(1))
	defer c.Close()

	bs, err := c.GetBitSet(t.Context(), seg, parents)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 3}, bs.ToArray())

	st := c.Stats()
	assert.Zero(t, st.Entries)
	assert.Equal(t, int64(1), st.Rejected)
	assert.Equal(t, int64(1), st.MemoryLimit)
}

func TestCache_SharedResourceController(t *testing.T) {
	_, r := testutil.Segments(t, familyDocs())
	seg := r.Segments()[0]
	rc := resource.NewController(resource.Config{})

	a := New(WithName("a"), WithResourceController(rc))
	b := New(WithName("b"), WithResourceController(rc))
	defer a.Close()
	defer b.Close()

	x, err := a.GetBitSet(t.Context(), seg, parents)
	require.NoError(t, err)
	y, err := b.GetBitSet(t.Context(), seg, filter.MatchAll())
	require.NoError(t, err)
	require.Equal(t, 2, seg.ListenerCount())

	assert.Equal(t, x.SizeInBytes()+y.SizeInBytes(), rc.MemoryUsage())
	require.NoError(t, a.Close())
	assert.Equal(t, y.SizeInBytes(), rc.MemoryUsage())
	assert.Equal(t, 1, seg.ListenerCount())
}

func TestMetricsObserver(t *testing.T) {
	_, r := testutil.Segments(t, familyDocs())
	seg := r.Segments()[0]
	m := &BasicMetricsObserver{}
	c := New(WithMetricsObserver(m))
	defer c.Close()

	for range 3 {
		_, err := c.GetBitSet(t.Context(), seg, parents)
		require.NoError(t, err)
	}
	broken, err := filter.Func("broken()", func(context.Context, filter.Reader) (*bitset.BitSet, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)
	_, err = c.GetBitSet(t.Context(), seg, broken)
	require.Error(t, err)

	st := m.GetStats()
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(2), st.Misses)
	assert.Equal(t, int64(2), st.Loads)
	assert.Equal(t, int64(1), st.LoadErrors)
	assert.Equal(t, int64(1), st.CachedEntries)
	assert.Equal(t, c.Stats().Bytes, st.CachedBytes)

	c.Clear("test")
	st = m.GetStats()
	assert.Zero(t, st.CachedEntries)
	assert.Zero(t, st.CachedBytes)
	assert.Equal(t, int64(1), st.Evictions)
}

func TestOptions_Defaults(t *testing.T) {
	c := New(WithConfig(Config{}), WithLogger(nil), WithMetricsObserver(nil), nil)
	defer c.Close()

	cfg := c.Config()
	assert.Equal(t, DefaultName, c.Name())
	assert.Positive(t, cfg.WarmConcurrency)
	assert.False(t, cfg.LoadEagerly)

	d := New()
	defer d.Close()
	assert.True(t, d.Config().LoadEagerly)
}

func TestTranslateError(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		in     error
		target error
	}{
		{"closed", cache.ErrClosed, ErrClosed},
		{"segment closed", fmt.Errorf("%w: seg_1", cache.ErrSegmentClosed), ErrSegmentClosed},
		{"invalid", cache.ErrInvalidArgument, ErrInvalidArgument},
		{"load", &cache.LoadError{Segment: 1, Filter: "f", Err: boom}, boom},
		{"panic", &cache.LoadError{Segment: 1, Filter: "f", Err: fmt.Errorf("%w: x", cache.ErrPanic)}, ErrComputePanic},
		{"context", context.Canceled, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateError(tt.in), tt.target)
		})
	}

	assert.NoError(t, translateError(nil))

	var lerr *LoadError
	require.ErrorAs(t, translateError(&cache.LoadError{Segment: 7, Filter: "f", Err: boom}), &lerr)
	assert.Equal(t, model.SegmentID(7), lerr.Segment)
}
