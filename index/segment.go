package index

import (
	"maps"
	"slices"

	"github.com/hupe1980/bitsetcache/bitset"
	"github.com/hupe1980/bitsetcache/model"
	"github.com/hupe1980/bitsetcache/segment"
)

// Document is a set of indexed keyword fields.
type Document map[string]string

// Segment is an immutable, reference-counted set of documents with
// per-field postings.
type Segment struct {
	*segment.RefCounted

	docs     []Document
	postings map[string]map[string]*bitset.BitSet
}

func newSegment(id model.SegmentID, docs []Document) *Segment {
	builders := make(map[string]map[string]*bitset.Builder)
	for row, doc := range docs {
		for field, value := range doc {
			terms, ok := builders[field]
			if !ok {
				terms = make(map[string]*bitset.Builder)
				builders[field] = terms
			}
			b, ok := terms[value]
			if !ok {
				b = bitset.NewBuilder()
				terms[value] = b
			}
			b.Add(uint32(row))
		}
	}

	postings := make(map[string]map[string]*bitset.BitSet, len(builders))
	for field, terms := range builders {
		sealed := make(map[string]*bitset.BitSet, len(terms))
		for value, b := range terms {
			sealed[value] = b.Build()
		}
		postings[field] = sealed
	}

	return &Segment{
		RefCounted: segment.NewRefCounted(id, uint32(len(docs))),
		docs:       docs,
		postings:   postings,
	}
}

// Postings returns the rows whose field holds term, or nil if none.
func (s *Segment) Postings(field, term string) *bitset.BitSet {
	return s.postings[field][term]
}

// Document returns the stored document at row.
func (s *Segment) Document(row model.RowID) (Document, bool) {
	if int(row) >= len(s.docs) {
		return nil, false
	}
	return maps.Clone(s.docs[row]), true
}

// Fields returns the indexed field names in sorted order.
func (s *Segment) Fields() []string {
	return slices.Sorted(maps.Keys(s.postings))
}
