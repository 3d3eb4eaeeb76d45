package app

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jdialer/commhub/internal/callerid_service/domain"
)

// DefaultRiskCacheCapacity is the number of decisions kept in memory.
const DefaultRiskCacheCapacity = 100

// RiskCache is a bounded LRU of caller decisions keyed by normalized number.
// Entries do not expire; the resolver invalidates them on block.
type RiskCache struct {
	entries *lru.Cache[string, domain.CallerIdDecision]
}

// NewRiskCache creates a cache holding at most capacity entries.
// A non-positive capacity falls back to DefaultRiskCacheCapacity.
func NewRiskCache(capacity int) *RiskCache {
	if capacity <= 0 {
		capacity = DefaultRiskCacheCapacity
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[string, domain.CallerIdDecision](capacity)
	return &RiskCache{entries: entries}
}

// Get returns the cached decision and marks it most recently used.
func (c *RiskCache) Get(key string) (domain.CallerIdDecision, bool) {
	return c.entries.Get(key)
}

// Put stores decision under key, evicting the least recently used entry when full.
// The last write for a key wins.
func (c *RiskCache) Put(key string, decision domain.CallerIdDecision) {
	// Add reports capacity evictions only; Remove would also fire an evict callback.
	if evicted := c.entries.Add(key, decision); evicted {
		riskCacheEvictionsCounter.Inc()
	}
}

// Remove drops key from the cache.
func (c *RiskCache) Remove(key string) {
	c.entries.Remove(key)
}

// Len returns the number of cached entries.
func (c *RiskCache) Len() int {
	return c.entries.Len()
}
