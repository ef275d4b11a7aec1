package cache

import (
	"hash/maphash"
	"sync"

	"github.com/hupe1980/bitsetcache/model"
)

const numShards = 64

// shard owns a subset of the segment buckets.
type shard struct {
	mu      sync.RWMutex
	buckets map[model.SegmentID]*bucket
}

type shards struct {
	s    [numShards]*shard
	seed maphash.Seed
}

func newShards() *shards {
	ss := &shards{seed: maphash.MakeSeed()}
	for i := range numShards {
		ss.s[i] = &shard{buckets: make(map[model.SegmentID]*bucket)}
	}
	return ss
}

// of returns the shard for a segment.
func (ss *shards) of(id model.SegmentID) *shard {
	return ss.s[maphash.Comparable(ss.seed, id)%numShards]
}

// get returns the bucket for id, if any.
func (sh *shard) get(id model.SegmentID) *bucket {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.buckets[id]
}

// getOrCreate returns the bucket for id, creating it on miss.
// created is true for exactly one caller per bucket.
func (sh *shard) getOrCreate(id model.SegmentID) (b *bucket, created bool) {
	if b := sh.get(id); b != nil {
		return b, false
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if b, ok := sh.buckets[id]; ok {
		return b, false
	}
	b = newBucket(id)
	sh.buckets[id] = b
	return b, true
}

// remove deletes b if it is still the bucket for its segment.
func (sh *shard) remove(b *bucket) bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if cur, ok := sh.buckets[b.id]; ok && cur == b {
		delete(sh.buckets, b.id)
		return true
	}
	return false
}

// drain removes and returns all buckets.
func (sh *shard) drain() []*bucket {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	out := make([]*bucket, 0, len(sh.buckets))
	for _, b := range sh.buckets {
		out = append(out, b)
	}
	sh.buckets = make(map[model.SegmentID]*bucket)
	return out
}

func (sh *shard) len() int {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.buckets)
}
