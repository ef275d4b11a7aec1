package bitsetcache

import (
	"context"

	"github.com/hupe1980/bitsetcache/bitset"
	"github.com/hupe1980/bitsetcache/filter"
)

// Producer returns the cached bitsets of one filter across segments.
// Keep a Producer for a filter that is evaluated on every segment of a
// reader, such as a parent filter of nested documents.
type Producer struct {
	c *Cache
	f filter.Filter
}

// Producer returns a Producer for f.
func (c *Cache) Producer(f filter.Filter) *Producer {
	return &Producer{c: c, f: f}
}

// Filter returns the filter of the producer.
func (p *Producer) Filter() filter.Filter {
	return p.f
}

// BitSet returns the bitset of the producer's filter for seg.
func (p *Producer) BitSet(ctx context.Context, seg Segment) (*bitset.BitSet, error) {
	return p.c.GetBitSet(ctx, seg, p.f)
}
