package index

import (
	"sync/atomic"
)

// Reader is a point-in-time view of a writer's segments.
// It holds one reference on each segment until Close.
type Reader struct {
	segments []*Segment
	closed   atomic.Bool
}

// OpenReader opens a reader over the writer's current segments.
func OpenReader(w *Writer) (*Reader, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}

	segs := make([]*Segment, 0, len(w.segments))
	for _, seg := range w.segments {
		// The writer holds a reference, so this cannot fail while w.mu is held.
		if !seg.TryIncRef() {
			continue
		}
		segs = append(segs, seg)
	}
	return &Reader{segments: segs}, nil
}

// Segments returns the reader's segments.
func (r *Reader) Segments() []*Segment {
	out := make([]*Segment, len(r.segments))
	copy(out, r.segments)
	return out
}

// NumDocs returns the total number of documents visible to the reader.
func (r *Reader) NumDocs() int {
	n := 0
	for _, seg := range r.segments {
		n += int(seg.RowCount())
	}
	return n
}

// Close releases the reader's segment references. It is idempotent.
func (r *Reader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, seg := range r.segments {
		seg.DecRef()
	}
	return nil
}
