package cache

import (
	"github.com/hupe1980/bitsetcache/bitset"
)

// slot is a single-assignment cell for one filter's bitset.
// value, bytes and err are written once by the producer before done is closed
// and are read-only afterwards.
type slot struct {
	done  chan struct{}
	value *bitset.BitSet
	bytes int64
	err   error
}

func newSlot() *slot {
	return &slot{done: make(chan struct{})}
}

func (s *slot) ready() bool {
	select {
	case <-s.done:
		return s.err == nil
	default:
		return false
	}
}

func (s *slot) complete(value *bitset.BitSet, bytes int64) {
	s.value = value
	s.bytes = bytes
	close(s.done)
}

func (s *slot) fail(err error) {
	s.err = err
	close(s.done)
}
