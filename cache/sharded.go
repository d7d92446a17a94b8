// Package cache provides the sharded concurrent map used by the shader-map
// registry and the compile backends.
//
// Unlike a size-bounded LRU, entries here are never evicted by the map
// itself: shader-map lifetime is reference-count driven and compiled blob
// entries are content-addressed, so the owner decides when to Delete.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// ShardCount is the number of shards. Must be a power of 2 so shard
	// selection can use a bitwise AND instead of a modulo.
	ShardCount = 16

	shardMask = ShardCount - 1
)

// Hasher computes a hash for a key, used for shard selection.
type Hasher[K any] func(K) uint64

// StringHasher computes the FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// BytesHasher folds the first 8 bytes of a fixed-size digest into a uint64.
// Digest keys are already uniformly distributed, so no further mixing is
// needed for shard selection.
func BytesHasher[K ~[16]byte](k K) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(k[i]) << (8 * i)
	}
	return v
}

// Uint64Hasher returns the key itself (identity hash).
func Uint64Hasher(u uint64) uint64 { return u }

// Stats contains map statistics for monitoring.
type Stats struct {
	// Len is the number of entries across all shards.
	Len int
	// Hits is the number of lookups that found an entry.
	Hits uint64
	// Misses is the number of lookups that found nothing.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0 when no lookups happened.
	HitRate float64
}

// ShardedMap is a thread-safe map sharded across ShardCount locks to reduce
// contention when many producer-context operations run concurrently.
//
// The zero value is not usable; construct with NewSharded.
type ShardedMap[K comparable, V any] struct {
	shards [ShardCount]*shard[K, V]
	hasher Hasher[K]

	hits   atomic.Uint64
	misses atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewSharded creates a sharded map. The hasher selects the shard for a key;
// use StringHasher, BytesHasher or Uint64Hasher for common key types.
func NewSharded[K comparable, V any](hasher Hasher[K]) *ShardedMap[K, V] {
	m := &ShardedMap[K, V]{hasher: hasher}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{entries: make(map[K]V)}
	}
	return m
}

func (m *ShardedMap[K, V]) getShard(key K) *shard[K, V] {
	return m.shards[m.hasher(key)&shardMask]
}

// Get retrieves a value by key. Returns (zero, false) when absent.
func (m *ShardedMap[K, V]) Get(key K) (V, bool) {
	s := m.getShard(key)
	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()

	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return v, ok
}

// Set stores a value, replacing any existing entry for the key.
// The value is stored as-is, not copied.
func (m *ShardedMap[K, V]) Set(key K, value V) {
	s := m.getShard(key)
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
}

// GetOrCreate returns the existing value for key, or stores and returns the
// result of create. The second result reports whether the value was already
// present. The create function runs with the shard lock held so at most one
// create executes per key; keep it fast.
func (m *ShardedMap[K, V]) GetOrCreate(key K, create func() V) (V, bool) {
	s := m.getShard(key)

	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		m.hits.Add(1)
		return v, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check after acquiring the write lock.
	if v, ok := s.entries[key]; ok {
		m.hits.Add(1)
		return v, true
	}
	m.misses.Add(1)
	v = create()
	s.entries[key] = v
	return v, false
}

// Delete removes an entry. Returns true if the entry existed.
func (m *ShardedMap[K, V]) Delete(key K) bool {
	s := m.getShard(key)
	s.mu.Lock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()
	return ok
}

// Range calls fn for every entry. The shard lock is held during each call,
// so fn must not call back into the map. Iteration order is unspecified.
// Returning false from fn stops the iteration.
func (m *ShardedMap[K, V]) Range(fn func(K, V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.entries {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Clear removes all entries.
func (m *ShardedMap[K, V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.entries = make(map[K]V)
		s.mu.Unlock()
	}
}

// Len returns the total number of entries across all shards.
func (m *ShardedMap[K, V]) Len() int {
	total := 0
	for _, s := range m.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

// Stats returns current statistics. Mostly lock-free (atomic counters).
func (m *ShardedMap[K, V]) Stats() Stats {
	hits := m.hits.Load()
	misses := m.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Len: m.Len(), Hits: hits, Misses: misses, HitRate: rate}
}
