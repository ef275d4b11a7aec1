package bitset

import "github.com/RoaringBitmap/roaring/v2"

// Builder accumulates row positions and seals them into a BitSet.
// A Builder must not be used after Build.
type Builder struct {
	rb *roaring.Bitmap
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{rb: roaring.New()}
}

// Add adds a single row.
func (b *Builder) Add(id uint32) {
	b.rb.Add(id)
}

// AddMany adds all given rows.
func (b *Builder) AddMany(ids []uint32) {
	b.rb.AddMany(ids)
}

// AddRange adds all rows in [start, end).
func (b *Builder) AddRange(start, end uint64) {
	b.rb.AddRange(start, end)
}

// Len returns the number of rows added so far.
func (b *Builder) Len() uint64 {
	return b.rb.GetCardinality()
}

// Build seals the accumulated rows into an immutable BitSet.
func (b *Builder) Build() *BitSet {
	rb := b.rb
	b.rb = nil
	return FromBitmap(rb)
}
