// Package model defines the identity types shared by the cache, the segment
// lifecycle and the reference index.
//
//   - SegmentID: identity of one immutable segment generation (uint64)
//   - RowID: segment-local record position (uint32)
//
// A SegmentID is never reused. Merging segments produces a segment with a
// fresh SegmentID, so cached data keyed by an old ID can never be served for
// the merged segment.
package model
