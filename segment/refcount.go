package segment

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/bitsetcache/model"
)

// RefCounted implements the Segment lifecycle with a reference count.
// It is safe for concurrent use.
type RefCounted struct {
	id       model.SegmentID
	rowCount uint32
	refs     atomic.Int64
	onClose  atomic.Value // stores func()

	mu           sync.Mutex
	closed       bool
	listeners    map[uint64]CloseListener
	nextListener uint64
}

// NewRefCounted creates a live segment handle holding one reference.
func NewRefCounted(id model.SegmentID, rowCount uint32) *RefCounted {
	r := &RefCounted{
		id:        id,
		rowCount:  rowCount,
		listeners: make(map[uint64]CloseListener),
	}
	r.refs.Store(1) // Initial ref
	var f func()
	r.onClose.Store(f)
	return r
}

// ID implements Segment.
func (r *RefCounted) ID() model.SegmentID { return r.id }

// RowCount implements Segment.
func (r *RefCounted) RowCount() uint32 { return r.rowCount }

// Refs returns the current reference count.
func (r *RefCounted) Refs() int64 { return r.refs.Load() }

// IncRef takes an additional reference.
func (r *RefCounted) IncRef() {
	r.refs.Add(1)
}

// TryIncRef attempts to increment the reference count.
// Returns false if the segment is already closed (refs == 0).
func (r *RefCounted) TryIncRef() bool {
	for {
		refs := r.refs.Load()
		if refs <= 0 {
			return false
		}
		if r.refs.CompareAndSwap(refs, refs+1) {
			return true
		}
	}
}

// DecRef releases a reference. Releasing the last reference closes the
// segment and notifies all registered listeners.
func (r *RefCounted) DecRef() {
	n := r.refs.Add(-1)
	if n < 0 {
		panic("segment: negative reference count")
	}
	if n == 0 {
		r.close()
	}
}

// SetOnClose sets a callback executed when the segment closes, before the
// close listeners run. The owner uses it to release segment data.
func (r *RefCounted) SetOnClose(f func()) {
	r.onClose.Store(f)
}

// IsClosed reports whether the segment reached end-of-life.
func (r *RefCounted) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// AddCloseListener implements Segment.
func (r *RefCounted) AddCloseListener(fn CloseListener) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	id := r.nextListener
	r.nextListener++
	r.listeners[id] = fn

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}, nil
}

// ListenerCount returns the number of registered close listeners.
func (r *RefCounted) ListenerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

func (r *RefCounted) close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	// Registrations are refused from here on, so a listener added
	// concurrently with close either fires below or gets ErrClosed.
	r.closed = true
	type pending struct {
		order uint64
		fn    CloseListener
	}
	fired := make([]pending, 0, len(r.listeners))
	for order, fn := range r.listeners {
		fired = append(fired, pending{order: order, fn: fn})
	}
	r.listeners = nil
	r.mu.Unlock()

	slices.SortFunc(fired, func(a, b pending) int {
		return cmp.Compare(a.order, b.order)
	})

	if f := r.onClose.Load().(func()); f != nil {
		f()
	}
	for _, p := range fired {
		p.fn(r.id)
	}
}
