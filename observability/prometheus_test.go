package observability

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hupe1980/bitsetcache"
	"github.com/hupe1980/bitsetcache/bitset"
	"github.com/hupe1980/bitsetcache/filter"
	"github.com/hupe1980/bitsetcache/index"
	"github.com/hupe1980/bitsetcache/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewPrometheusObserver(reg, "nested")
	require.NoError(t, err)

	_, r := testutil.Segments(t,
		[]index.Document{{"type": "parent"}, {"type": "child"}},
		[]index.Document{{"type": "parent"}},
	)

	c := bitsetcache.New(bitsetcache.WithName("nested"), bitsetcache.WithMetricsObserver(obs))
	defer c.Close()

	parents := filter.Term("type", "parent")
	for range 2 {
		for _, seg := range r.Segments() {
			_, err := c.GetBitSet(t.Context(), seg, parents)
			require.NoError(t, err)
		}
	}
	broken, err := filter.Func("broken()", func(context.Context, filter.Reader) (*bitset.BitSet, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)
	_, err = c.GetBitSet(t.Context(), r.Segments()[0], broken)
	require.Error(t, err)

	assert.InDelta(t, 2, promtest.ToFloat64(obs.hits), 0)
	assert.InDelta(t, 3, promtest.ToFloat64(obs.misses), 0)
	assert.InDelta(t, 2, promtest.ToFloat64(obs.loads.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(obs.loads.WithLabelValues("error")), 0)
	assert.InDelta(t, 2, promtest.ToFloat64(obs.entries), 0)
	assert.InDelta(t, float64(c.Stats().Bytes), promtest.ToFloat64(obs.bytes), 0)

	c.Clear("test")
	assert.InDelta(t, 0, promtest.ToFloat64(obs.entries), 0)
	assert.InDelta(t, 0, promtest.ToFloat64(obs.bytes), 0)
	assert.InDelta(t, 2, promtest.ToFloat64(obs.removals.WithLabelValues("cleared")), 0)
	assert.InDelta(t, 2, promtest.ToFloat64(obs.evictions.WithLabelValues("cleared")), 0)

	expected := `
# HELP bitsetcache_filter_cache_hits_total Total number of lookups served by a cached or in-flight bitset
# TYPE bitsetcache_filter_cache_hits_total counter
bitsetcache_filter_cache_hits_total{cache="nested"} 2
`
	require.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(expected), "bitsetcache_filter_cache_hits_total"))
}

func TestPrometheusObserver_SegmentClosed(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewPrometheusObserver(reg, "default")
	require.NoError(t, err)

	w, r := testutil.Segments(t, []index.Document{{"type": "parent"}})
	c := bitsetcache.New(bitsetcache.WithMetricsObserver(obs))
	defer c.Close()

	_, err = c.GetBitSet(t.Context(), r.Segments()[0], filter.MatchAll())
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, w.Close())

	assert.InDelta(t, 1, promtest.ToFloat64(obs.evictions.WithLabelValues("segment_closed")), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(obs.removals.WithLabelValues("segment_closed")), 0)
	assert.InDelta(t, 0, promtest.ToFloat64(obs.entries), 0)
}

func TestNewPrometheusObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusObserver(reg, "dup")
	require.NoError(t, err)

	_, err = NewPrometheusObserver(reg, "dup")
	var are prometheus.AlreadyRegisteredError
	require.ErrorAs(t, err, &are)
}
