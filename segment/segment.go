package segment

import (
	"errors"

	"github.com/hupe1980/bitsetcache/model"
)

// ErrClosed is returned when a listener is registered on a segment that
// already reached end-of-life.
var ErrClosed = errors.New("segment closed")

// CloseListener is notified when a segment reaches end-of-life.
type CloseListener func(id model.SegmentID)

// Segment is the identity and lifecycle view of an immutable segment.
type Segment interface {
	// ID returns the identity of this segment generation.
	ID() model.SegmentID

	// RowCount returns the number of rows in the segment.
	RowCount() uint32

	// AddCloseListener registers fn to be called exactly once when the
	// segment reaches end-of-life. The returned function unregisters fn; it
	// is safe to call at any time, including after the segment closed.
	// Returns ErrClosed if the segment is already closed or closing.
	AddCloseListener(fn CloseListener) (remove func(), err error)
}
