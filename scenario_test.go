package bitsetcache

import (
	"testing"

	"github.com/hupe1980/bitsetcache/filter"
	"github.com/hupe1980/bitsetcache/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardinality(t *testing.T, c *Cache, r *index.Reader, f filter.Filter) uint64 {
	t.Helper()
	var total uint64
	for _, seg := range r.Segments() {
		bs, err := c.GetBitSet(t.Context(), seg, f)
		require.NoError(t, err)
		total += bs.Cardinality()
	}
	return total
}

// Three single-document segments are merged into one and then closed. The
// cache follows the segment lifecycle without any explicit invalidation.
func TestLifecycle_MergeAndClose(t *testing.T) {
	m := &BasicMetricsObserver{}
	c := New(WithMetricsObserver(m))
	defer c.Close()

	w := index.NewWriter()
	for range 3 {
		require.NoError(t, w.AddDocument(index.Document{"field": "value"}))
		require.NoError(t, w.Commit())
	}

	r, err := index.OpenReader(w)
	require.NoError(t, err)
	require.Len(t, r.Segments(), 3)

	f := filter.Term("field", "value")
	assert.Equal(t, uint64(3), cardinality(t, c, r, f))
	assert.Equal(t, uint64(3), cardinality(t, c, r, f))

	st := c.Stats()
	assert.Equal(t, int64(3), st.Segments)
	assert.Equal(t, int64(3), st.Entries)
	assert.Equal(t, int64(3), st.Hits)
	assert.Equal(t, int64(3), st.Misses)

	require.NoError(t, w.ForceMerge(1))
	// The old reader still holds the merged-away segments.
	assert.Equal(t, int64(3), c.Stats().Entries)

	reopened, err := index.OpenReader(w)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Len(t, reopened.Segments(), 1)

	assert.Equal(t, uint64(3), cardinality(t, c, reopened, f))
	st = c.Stats()
	assert.Equal(t, int64(1), st.Segments)
	assert.Equal(t, int64(1), st.Entries)
	assert.Equal(t, int64(3), st.Evictions)

	require.NoError(t, reopened.Close())
	require.NoError(t, w.Close())

	st = c.Stats()
	assert.Zero(t, st.Segments)
	assert.Zero(t, st.Entries)
	assert.Zero(t, st.Bytes)

	ms := m.GetStats()
	assert.Equal(t, int64(4), ms.Loads)
	assert.Zero(t, ms.CachedEntries)
	assert.Zero(t, ms.CachedBytes)
	assert.Equal(t, int64(4), ms.Evictions)
}
