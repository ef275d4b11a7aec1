package model

import (
	"fmt"
)

// SegmentID is the unique identifier for a segment generation within an index.
type SegmentID uint64

// String returns a string representation of the SegmentID.
func (id SegmentID) String() string {
	return fmt.Sprintf("seg_%d", uint64(id))
}

// RowID is a dense, segment-local identifier for a record.
// It is transient and changes when segments are merged.
type RowID uint32
