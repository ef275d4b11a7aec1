package filter

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/hupe1980/bitsetcache/bitset"
)

// ErrEmptyKey is returned when a custom filter has no key.
var ErrEmptyKey = errors.New("filter key must not be empty")

// Key is the canonical, comparable identity of a filter definition.
type Key string

// Reader gives filters access to a segment's postings.
type Reader interface {
	// RowCount returns the number of rows in the segment.
	RowCount() uint32
	// Postings returns the rows whose field holds term. Returns nil if none.
	Postings(field, term string) *bitset.BitSet
}

// Filter selects a subset of rows within a segment.
type Filter interface {
	// Key returns the canonical identity of the filter.
	Key() Key
	// Evaluate computes the rows of r matching the filter.
	Evaluate(ctx context.Context, r Reader) (*bitset.BitSet, error)
}

type termFilter struct {
	field, value string
}

// Term matches rows whose field equals value.
func Term(field, value string) Filter {
	return termFilter{field: field, value: value}
}

func (f termFilter) Key() Key {
	return Key("term(" + strconv.Quote(f.field) + ":" + strconv.Quote(f.value) + ")")
}

func (f termFilter) Evaluate(ctx context.Context, r Reader) (*bitset.BitSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p := r.Postings(f.field, f.value); p != nil {
		return p, nil
	}
	return bitset.Empty(), nil
}

type matchAll struct{}

// MatchAll matches every row of the segment.
func MatchAll() Filter { return matchAll{} }

func (matchAll) Key() Key { return "all()" }

func (matchAll) Evaluate(ctx context.Context, r Reader) (*bitset.BitSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := bitset.NewBuilder()
	b.AddRange(0, uint64(r.RowCount()))
	return b.Build(), nil
}

type boolOp uint8

const (
	opAnd boolOp = iota
	opOr
)

type boolFilter struct {
	op      boolOp
	clauses []Filter
	key     Key
}

// And matches rows matching every clause. And() matches all rows.
func And(clauses ...Filter) Filter {
	return newBool(opAnd, clauses)
}

// Or matches rows matching at least one clause. Or() matches no rows.
func Or(clauses ...Filter) Filter {
	return newBool(opOr, clauses)
}

func newBool(op boolOp, clauses []Filter) Filter {
	// Flatten nested clauses of the same kind and drop duplicates so the key
	// is independent of clause order and grouping.
	flat := make([]Filter, 0, len(clauses))
	for _, c := range clauses {
		if b, ok := c.(*boolFilter); ok && b.op == op {
			flat = append(flat, b.clauses...)
			continue
		}
		flat = append(flat, c)
	}
	slices.SortFunc(flat, func(a, b Filter) int {
		return strings.Compare(string(a.Key()), string(b.Key()))
	})
	flat = slices.CompactFunc(flat, func(a, b Filter) bool {
		return a.Key() == b.Key()
	})

	if len(flat) == 1 {
		return flat[0]
	}

	keys := make([]string, len(flat))
	for i, c := range flat {
		keys[i] = string(c.Key())
	}
	name := "and"
	if op == opOr {
		name = "or"
	}
	return &boolFilter{
		op:      op,
		clauses: flat,
		key:     Key(name + "(" + strings.Join(keys, ",") + ")"),
	}
}

func (f *boolFilter) Key() Key { return f.key }

func (f *boolFilter) Evaluate(ctx context.Context, r Reader) (*bitset.BitSet, error) {
	if len(f.clauses) == 0 {
		if f.op == opAnd {
			return MatchAll().Evaluate(ctx, r)
		}
		return bitset.Empty(), nil
	}

	var acc *bitset.BitSet
	for i, c := range f.clauses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bs, err := c.Evaluate(ctx, r)
		if err != nil {
			return nil, err
		}
		switch {
		case i == 0:
			acc = bs
		case f.op == opAnd:
			acc = acc.And(bs)
		default:
			acc = acc.Or(bs)
		}
		if f.op == opAnd && acc.IsEmpty() {
			return bitset.Empty(), nil
		}
	}
	return acc, nil
}

type notFilter struct {
	inner Filter
}

// Not matches rows that do not match f.
func Not(f Filter) Filter {
	if n, ok := f.(notFilter); ok {
		return n.inner
	}
	return notFilter{inner: f}
}

func (f notFilter) Key() Key { return "not(" + f.inner.Key() + ")" }

func (f notFilter) Evaluate(ctx context.Context, r Reader) (*bitset.BitSet, error) {
	all, err := MatchAll().Evaluate(ctx, r)
	if err != nil {
		return nil, err
	}
	inner, err := f.inner.Evaluate(ctx, r)
	if err != nil {
		return nil, err
	}
	return all.AndNot(inner), nil
}

// EvaluateFunc computes the rows of a segment for a custom filter.
type EvaluateFunc func(ctx context.Context, r Reader) (*bitset.BitSet, error)

type funcFilter struct {
	key Key
	fn  EvaluateFunc
}

// Func builds a Filter from a key and an evaluation function.
// Callers are responsible for the key being canonical.
func Func(key Key, fn EvaluateFunc) (Filter, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	return funcFilter{key: key, fn: fn}, nil
}

func (f funcFilter) Key() Key { return f.key }

func (f funcFilter) Evaluate(ctx context.Context, r Reader) (*bitset.BitSet, error) {
	return f.fn(ctx, r)
}
