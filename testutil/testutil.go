package testutil

import (
	"context"
	"math"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/bitsetcache/bitset"
	"github.com/hupe1980/bitsetcache/index"
)

// DefaultTimeout bounds the waits of the helpers in this package.
const DefaultTimeout = 5 * time.Second

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Documents generates n documents. Every field gets one of its values,
// picked uniformly. Fields are visited in sorted order so the output only
// depends on the seed.
func (r *RNG) Documents(n int, fields map[string][]string) []index.Document {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	r.mu.Lock()
	defer r.mu.Unlock()

	docs := make([]index.Document, n)
	for i := range docs {
		doc := make(index.Document, len(names))
		for _, name := range names {
			values := fields[name]
			if len(values) == 0 {
				continue
			}
			doc[name] = values[r.rand.Intn(len(values))]
		}
		docs[i] = doc
	}
	return docs
}

// ZipfDocuments generates n documents with a single field whose values are
// Zipf-distributed over values. s is the skew (1.0 standard, 1.5 heavy-tail).
func (r *RNG) ZipfDocuments(n int, field string, values []string, s float64) []index.Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs := make([]index.Document, n)
	for i := range docs {
		docs[i] = index.Document{field: values[r.zipfLocked(len(values), s)]}
	}
	return docs
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// ExpectedRows returns the rows of docs whose field equals value.
func ExpectedRows(docs []index.Document, field, value string) []uint32 {
	var rows []uint32
	for i, doc := range docs {
		if v, ok := doc[field]; ok && v == value {
			rows = append(rows, uint32(i))
		}
	}
	return rows
}

// Segments creates a writer with one committed segment per batch and a
// reader over them. Both are closed when the test ends; closing them earlier
// is fine.
func Segments(tb testing.TB, batches ...[]index.Document) (*index.Writer, *index.Reader) {
	tb.Helper()

	w := index.NewWriter()
	for _, batch := range batches {
		for _, doc := range batch {
			if err := w.AddDocument(doc); err != nil {
				tb.Fatalf("add document: %v", err)
			}
		}
		if err := w.Commit(); err != nil {
			tb.Fatalf("commit: %v", err)
		}
	}

	r, err := index.OpenReader(w)
	if err != nil {
		tb.Fatalf("open reader: %v", err)
	}
	tb.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	return w, r
}

// Counter is a compute function that counts its calls.
type Counter struct {
	calls atomic.Int64
	value *bitset.BitSet
	err   error
}

// NewCounter returns a Counter that produces value.
func NewCounter(value *bitset.BitSet) *Counter {
	return &Counter{value: value}
}

// NewFailingCounter returns a Counter that fails with err.
func NewFailingCounter(err error) *Counter {
	return &Counter{err: err}
}

// Compute counts the call and returns the configured result.
func (c *Counter) Compute(context.Context) (*bitset.BitSet, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.value, nil
}

// Calls returns the number of Compute calls.
func (c *Counter) Calls() int64 {
	return c.calls.Load()
}

// Gate is a compute function that blocks until released.
type Gate struct {
	calls   atomic.Int64
	started chan struct{}
	release chan struct{}
	once    sync.Once
	value   *bitset.BitSet
	err     error
}

// NewGate returns a Gate that produces value once released.
func NewGate(value *bitset.BitSet) *Gate {
	return &Gate{
		started: make(chan struct{}, 1024),
		release: make(chan struct{}),
		value:   value,
	}
}

// NewFailingGate returns a Gate that fails with err once released.
func NewFailingGate(err error) *Gate {
	g := NewGate(nil)
	g.err = err
	return g
}

// Compute signals its start and blocks until Release or ctx is done.
func (g *Gate) Compute(ctx context.Context) (*bitset.BitSet, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	select {
	case <-g.release:
		return g.value, g.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitStarted waits until one more Compute call started.
func (g *Gate) WaitStarted(tb testing.TB) {
	tb.Helper()
	select {
	case <-g.started:
	case <-time.After(DefaultTimeout):
		tb.Fatal("compute did not start")
	}
}

// Release unblocks all current and future Compute calls.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// Calls returns the number of Compute calls.
func (g *Gate) Calls() int64 {
	return g.calls.Load()
}
