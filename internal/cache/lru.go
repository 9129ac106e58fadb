// Package cache provides in-memory caching for embeddings
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
)

// LRU is a thread-safe least-recently-used cache
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*list.Element
	order    *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU creates an LRU holding at most capacity entries.
// A capacity below one is treated as one.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

// Get retrieves a value and marks it most recently used
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}

	c.hits.Add(1)
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Put adds or updates a value, evicting the least recently used entry when full
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*entry[K, V]).value = value
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			delete(c.items, oldest.Value.(*entry[K, V]).key)
			c.order.Remove(oldest)
		}
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
}

// Len returns the current number of entries
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit and miss counters
func (c *LRU[K, V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Stats summarizes cache effectiveness
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
	HitRate float64 // percent
}

// EmbeddingCache caches embeddings keyed by model and text.
// Stored and returned vectors are copies, so callers may mutate them freely.
type EmbeddingCache struct {
	lru *LRU[string, []float32]
}

// NewEmbeddingCache creates an embedding cache with the given capacity
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		lru: NewLRU[string, []float32](capacity),
	}
}

// Get retrieves the embedding of text under model
func (c *EmbeddingCache) Get(model, text string) ([]float32, bool) {
	embedding, ok := c.lru.Get(Key(model, text))
	if !ok {
		return nil, false
	}
	return clone(embedding), true
}

// Put stores the embedding of text under model
func (c *EmbeddingCache) Put(model, text string, embedding []float32) {
	c.lru.Put(Key(model, text), clone(embedding))
}

// Stats returns cache statistics
func (c *EmbeddingCache) Stats() Stats {
	hits, misses := c.lru.Stats()
	return Stats{
		Entries: c.lru.Len(),
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
	}
}

// Key derives the cache key for text embedded by model. Keys are a 128-bit
// SHA-256 prefix, so the raw text is never held as a map key.
func Key(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
