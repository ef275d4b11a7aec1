package index

import (
	"errors"
	"io"
	"log/slog"
	"maps"
	"sync"

	"github.com/hupe1980/bitsetcache/model"
)

var (
	// ErrClosed is returned when an operation is attempted on a closed writer or reader.
	ErrClosed = errors.New("index closed")

	// ErrInvalidArgument is returned when an argument is invalid.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger for the writer.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// Writer buffers documents and seals them into immutable segments.
// The writer holds one reference on every segment it currently exposes.
type Writer struct {
	mu       sync.Mutex
	buffer   []Document
	segments []*Segment
	nextID   model.SegmentID
	closed   bool
	logger   *slog.Logger
}

// NewWriter creates an empty writer.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		nextID: 1,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddDocument buffers a document until the next Commit.
func (w *Writer) AddDocument(doc Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	w.buffer = append(w.buffer, maps.Clone(doc))
	return nil
}

// Commit seals buffered documents into a new segment.
// It is a no-op if nothing is buffered.
func (w *Writer) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if len(w.buffer) == 0 {
		return nil
	}

	seg := newSegment(w.allocID(), w.buffer)
	w.buffer = nil
	w.segments = append(w.segments, seg)

	w.logger.Debug("Commit completed", "segmentID", uint64(seg.ID()), "rowCount", seg.RowCount())
	return nil
}

// ForceMerge merges committed segments until at most maxSegments remain.
// Merged segments get fresh IDs; the writer releases its references on the
// merged-away segments, which close once no reader references them.
func (w *Writer) ForceMerge(maxSegments int) error {
	if maxSegments < 1 {
		return ErrInvalidArgument
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if len(w.segments) <= maxSegments {
		w.mu.Unlock()
		return nil
	}

	keep := maxSegments - 1
	victims := w.segments[keep:]

	var docs []Document
	ids := make([]uint64, 0, len(victims))
	for _, seg := range victims {
		docs = append(docs, seg.docs...)
		ids = append(ids, uint64(seg.ID()))
	}

	merged := newSegment(w.allocID(), docs)
	next := make([]*Segment, 0, maxSegments)
	next = append(next, w.segments[:keep]...)
	next = append(next, merged)
	w.segments = next
	w.mu.Unlock()

	w.logger.Info("Merge completed",
		"mergedSegments", ids,
		"segmentID", uint64(merged.ID()),
		"rowCount", merged.RowCount(),
	)

	// Release outside the lock: the last reference fires close listeners.
	for _, seg := range victims {
		seg.DecRef()
	}
	return nil
}

// Segments returns the segments currently exposed by the writer.
// The returned segments are not referenced on behalf of the caller; use
// OpenReader for a stable view.
func (w *Writer) Segments() []*Segment {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]*Segment, len(w.segments))
	copy(out, w.segments)
	return out
}

// Close drops buffered documents and releases the writer's references.
// Segments still referenced by open readers stay alive until those close.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	segs := w.segments
	w.segments = nil
	w.buffer = nil
	w.mu.Unlock()

	for _, seg := range segs {
		seg.DecRef()
	}
	w.logger.Debug("Writer closed", "segments", len(segs))
	return nil
}

// allocID must be called with w.mu held.
func (w *Writer) allocID() model.SegmentID {
	id := w.nextID
	w.nextID++
	return id
}
