// Package embedcache memoizes query embeddings for a bounded time.
package embedcache

import (
	"context"
	"sync"
	"time"

	"docuchat-ai/internal/llm"
	"docuchat-ai/internal/metrics"
)

const (
	// DefaultTTL is how long an embedding stays valid.
	DefaultTTL = 5 * time.Minute
	// DefaultCapacity bounds the number of cached queries.
	DefaultCapacity = 100
)

type entry struct {
	vec      []float32
	storedAt time.Time
	seq      uint64
}

// Cache wraps an Embedder. Entries expire after ttl; once capacity is
// exceeded the entry inserted earliest is evicted, regardless of reads.
type Cache struct {
	next     llm.Embedder
	ttl      time.Duration
	capacity int
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	seq     uint64
}

// New creates a Cache in front of next. Non-positive ttl or capacity fall back to the defaults.
func New(next llm.Embedder, ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		next:     next,
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		entries:  make(map[string]entry),
	}
}

// Embed returns the cached vector for text or computes and stores it.
// Concurrent misses for the same text may each call the underlying embedder.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.Get(text); ok {
		metrics.RecordCacheLookup(true)
		return vec, nil
	}
	metrics.RecordCacheLookup(false)

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.Set(text, vec)
	return vec, nil
}

// Get returns a live entry for text.
func (c *Cache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[text]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, text)
		return nil, false
	}
	return e.vec, true
}

// Set stores vec for text, evicting the oldest insertion when over capacity.
func (c *Cache) Set(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries[text] = entry{vec: vec, storedAt: c.now(), seq: c.seq}
	if len(c.entries) > c.capacity {
		c.evictOldestLocked()
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldestLocked() {
	var (
		oldestKey string
		oldestSeq uint64
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.seq < oldestSeq {
			oldestKey, oldestSeq, found = k, e.seq, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
