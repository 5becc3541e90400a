// Package cache memoizes classification results keyed by transaction
// fingerprint. The cache is bounded: least-recently-used entries are evicted
// once capacity is reached, and entries expire after a TTL.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/ledgermill/classiflow/internal/model"
)

// Stats reports cache effectiveness. Hits and misses are true counters, not
// estimates.
type Stats struct {
	Size    int
	Hits    int64
	Misses  int64
	HitRate float64
}

type entry struct {
	expiresAt time.Time
	key       string
	result    model.ClassificationResult
}

// ResultCache is a thread-safe LRU cache of classification results.
type ResultCache struct {
	items   map[string]*list.Element
	lru     *list.List
	ttl     time.Duration
	maxSize int
	hits    int64
	misses  int64
	mu      sync.Mutex
}

// NewResultCache creates a cache holding at most maxSize entries, each valid
// for ttl. A zero ttl means entries never expire; a non-positive maxSize
// falls back to a default of 10000 entries.
func NewResultCache(maxSize int, ttl time.Duration) *ResultCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &ResultCache{
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached result by fingerprint.
func (c *ResultCache) Get(fingerprint string) (model.ClassificationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[fingerprint]
	if !ok {
		c.misses++
		return model.ClassificationResult{}, false
	}

	ent := elem.Value.(*entry)
	if !ent.expiresAt.IsZero() && time.Now().After(ent.expiresAt) {
		c.removeElement(elem)
		c.misses++
		return model.ClassificationResult{}, false
	}

	c.lru.MoveToFront(elem)
	c.hits++
	return ent.result, true
}

// Put stores a result under the given fingerprint, evicting the oldest entry
// if the cache is full.
func (c *ResultCache) Put(fingerprint string, result model.ClassificationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	ent := &entry{key: fingerprint, result: result, expiresAt: expiresAt}

	if elem, ok := c.items[fingerprint]; ok {
		elem.Value = ent
		c.lru.MoveToFront(elem)
		return
	}

	c.items[fingerprint] = c.lru.PushFront(ent)

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Stats returns current size and hit/miss counters.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}

	return Stats{
		Size:    len(c.items),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}

// Clear removes all entries and resets the counters.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.lru.Init()
	c.hits = 0
	c.misses = 0
}

// CleanExpired removes all expired entries and returns how many were removed.
func (c *ResultCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl <= 0 {
		return 0
	}

	now := time.Now()
	var stale []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry).expiresAt) {
			stale = append(stale, elem)
		}
	}

	for _, elem := range stale {
		c.removeElement(elem)
	}

	return len(stale)
}

func (c *ResultCache) removeElement(elem *list.Element) {
	ent := elem.Value.(*entry)
	delete(c.items, ent.key)
	c.lru.Remove(elem)
}
