// Package bitset provides the immutable, roaring-compressed set of row
// positions that the filter cache stores per (segment, filter) pair.
//
// A BitSet never changes after construction. All set algebra returns a new
// BitSet, so a cached value can be shared with any number of concurrent
// readers without copying:
//
//	b := bitset.NewBuilder()
//	b.Add(1)
//	b.AddRange(10, 20)
//	bs := b.Build()
//
//	bs.Contains(12)    // true
//	bs.Cardinality()   // 11
//	bs.SizeInBytes()   // retained size, used for cache accounting
//
// A nil *BitSet behaves like an empty set.
package bitset
