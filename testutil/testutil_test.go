package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/bitsetcache/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocuments_Deterministic(t *testing.T) {
	fields := map[string][]string{
		"type":  {"parent", "child"},
		"color": {"red", "green", "blue"},
	}

	a := NewRNG(4711).Documents(50, fields)
	b := NewRNG(4711).Documents(50, fields)

	require.Len(t, a, 50)
	assert.Equal(t, a, b)
	for _, doc := range a {
		assert.Contains(t, fields["type"], doc["type"])
		assert.Contains(t, fields["color"], doc["color"])
	}
}

func TestRNG_Reset(t *testing.T) {
	rng := NewRNG(42)
	first := rng.Intn(1000)
	rng.Reset()
	assert.Equal(t, first, rng.Intn(1000))
	assert.Equal(t, int64(42), rng.Seed())
}

func TestZipfDocuments_Skewed(t *testing.T) {
	values := []string{"a", "b", "c", "d", "e"}
	docs := NewRNG(1).ZipfDocuments(2000, "v", values, 1.5)

	counts := make(map[string]int)
	for _, doc := range docs {
		counts[doc["v"]]++
	}
	assert.Greater(t, counts["a"], counts["e"])
}

func TestExpectedRows(t *testing.T) {
	docs := NewRNG(7).Documents(100, map[string][]string{"type": {"parent", "child"}})
	rows := ExpectedRows(docs, "type", "parent")
	for _, row := range rows {
		assert.Equal(t, "parent", docs[row]["type"])
	}
	assert.Len(t, ExpectedRows(docs, "type", "child"), 100-len(rows))
}

func TestSegments(t *testing.T) {
	rng := NewRNG(3)
	fields := map[string][]string{"type": {"parent", "child"}}
	first := rng.Documents(10, fields)
	second := rng.Documents(5, fields)
	w, r := Segments(t, first, second)

	segs := r.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, uint32(10), segs[0].RowCount())
	assert.Equal(t, uint32(5), segs[1].RowCount())
	assert.Len(t, w.Segments(), 2)
	assert.ElementsMatch(t, ExpectedRows(first, "type", "parent"), segs[0].Postings("type", "parent").ToArray())
}

func TestCounter(t *testing.T) {
	c := NewCounter(bitset.New(1))
	bs, err := c.Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, bs.ToArray())
	assert.Equal(t, int64(1), c.Calls())

	boom := errors.New("boom")
	f := NewFailingCounter(boom)
	_, err = f.Compute(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestGate(t *testing.T) {
	g := NewGate(bitset.New(2))
	done := make(chan error, 1)
	go func() {
		_, err := g.Compute(context.Background())
		done <- err
	}()
	g.WaitStarted(t)
	g.Release()
	g.Release()
	require.NoError(t, <-done)
	assert.Equal(t, int64(1), g.Calls())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocked := NewGate(nil)
	_, err := blocked.Compute(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
