package bitset

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// BitSet is an immutable set of segment-local row positions.
// It wraps a run-optimized roaring bitmap that is never mutated after
// construction.
type BitSet struct {
	rb *roaring.Bitmap
}

// New creates a BitSet holding the given row positions.
func New(ids ...uint32) *BitSet {
	return FromBitmap(roaring.BitmapOf(ids...))
}

// Empty returns a BitSet without any rows.
func Empty() *BitSet {
	return &BitSet{rb: roaring.New()}
}

// FromBitmap wraps rb. The BitSet takes ownership of rb; the caller must not
// modify it afterwards.
func FromBitmap(rb *roaring.Bitmap) *BitSet {
	if rb == nil {
		return Empty()
	}
	rb.RunOptimize()
	return &BitSet{rb: rb}
}

// Contains reports whether row id is in the set.
func (b *BitSet) Contains(id uint32) bool {
	if b == nil {
		return false
	}
	return b.rb.Contains(id)
}

// Cardinality returns the number of rows in the set.
func (b *BitSet) Cardinality() uint64 {
	if b == nil {
		return 0
	}
	return b.rb.GetCardinality()
}

// IsEmpty returns true if the set has no rows.
func (b *BitSet) IsEmpty() bool {
	return b == nil || b.rb.IsEmpty()
}

// ForEach calls fn for each row in ascending order.
// Iteration stops early if fn returns false.
func (b *BitSet) ForEach(fn func(id uint32) bool) {
	if b == nil {
		return
	}
	it := b.rb.Iterator()
	for it.HasNext() {
		if !fn(it.Next()) {
			return
		}
	}
}

// All returns an iterator over the rows in ascending order.
func (b *BitSet) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		b.ForEach(yield)
	}
}

// ToArray returns the rows as a sorted slice.
func (b *BitSet) ToArray() []uint32 {
	if b == nil {
		return nil
	}
	return b.rb.ToArray()
}

// Equals reports whether both sets hold exactly the same rows.
func (b *BitSet) Equals(other *BitSet) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return b.IsEmpty() && other.IsEmpty()
	}
	return b.rb.Equals(other.rb)
}

// And returns the intersection of b and other.
func (b *BitSet) And(other *BitSet) *BitSet {
	if b.IsEmpty() || other.IsEmpty() {
		return Empty()
	}
	return FromBitmap(roaring.And(b.rb, other.rb))
}

// Or returns the union of b and other.
func (b *BitSet) Or(other *BitSet) *BitSet {
	switch {
	case b.IsEmpty() && other.IsEmpty():
		return Empty()
	case b.IsEmpty():
		return FromBitmap(other.rb.Clone())
	case other.IsEmpty():
		return FromBitmap(b.rb.Clone())
	}
	return FromBitmap(roaring.Or(b.rb, other.rb))
}

// AndNot returns the rows of b that are not in other.
func (b *BitSet) AndNot(other *BitSet) *BitSet {
	if b.IsEmpty() {
		return Empty()
	}
	if other.IsEmpty() {
		return FromBitmap(b.rb.Clone())
	}
	return FromBitmap(roaring.AndNot(b.rb, other.rb))
}

// ToBitmap returns a mutable copy of the underlying roaring bitmap.
func (b *BitSet) ToBitmap() *roaring.Bitmap {
	if b == nil {
		return roaring.New()
	}
	return b.rb.Clone()
}

// SizeInBytes returns the retained size of the set in bytes.
func (b *BitSet) SizeInBytes() int64 {
	if b == nil {
		return 0
	}
	return int64(b.rb.GetSizeInBytes())
}
