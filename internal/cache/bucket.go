package cache

import (
	"sync"

	"github.com/hupe1980/bitsetcache/filter"
	"github.com/hupe1980/bitsetcache/model"
)

// bucket holds the slots of one segment.
type bucket struct {
	id model.SegmentID

	// registered is closed once the close listener registration finished.
	// regErr is written before and read-only afterwards.
	registered chan struct{}
	regErr     error

	mu         sync.Mutex
	slots      map[filter.Key]*slot
	evicted    bool
	entries    int64 // ready slots
	bytes      int64 // sum of ready slot sizes
	unregister func()
}

func newBucket(id model.SegmentID) *bucket {
	return &bucket{
		id:         id,
		registered: make(chan struct{}),
		slots:      make(map[filter.Key]*slot),
	}
}

// slotFor returns the slot for key, creating a pending one on miss.
// created is true if the caller became the producer. Returns nil if the
// bucket was evicted.
func (b *bucket) slotFor(key filter.Key) (s *slot, created bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.evicted {
		return nil, false
	}
	if s, ok := b.slots[key]; ok {
		return s, false
	}
	s = newSlot()
	b.slots[key] = s
	return s, true
}

// dropLocked removes s if it is still the slot for key. Must hold b.mu.
func (b *bucket) dropLocked(key filter.Key, s *slot) {
	if cur, ok := b.slots[key]; ok && cur == s {
		delete(b.slots, key)
	}
}

// stats returns the bucket's ready entries and bytes.
func (b *bucket) stats() (entries, bytes int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries, b.bytes
}
