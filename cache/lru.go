package cache

import (
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/use-agent/prixscout/models"
)

// LRUCache is a Store bounded to a fixed number of entries. The least
// recently used entry is evicted first; entries still expire after the TTL.
type LRUCache struct {
	lru *expirable.LRU[string, []models.SearchResultItem]
}

// NewLRU creates an LRUCache holding at most size entries.
func NewLRU(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{
		lru: expirable.NewLRU[string, []models.SearchResultItem](size, nil, ttl),
	}
}

func (c *LRUCache) Get(key string) ([]models.SearchResultItem, bool) {
	items, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(items), true
}

func (c *LRUCache) Set(key string, items []models.SearchResultItem) {
	c.lru.Add(key, cloneItems(items))
}

func (c *LRUCache) Len() int {
	return c.lru.Len()
}

// Noop never stores anything. Useful to disable caching.
type Noop struct{}

func (Noop) Get(string) ([]models.SearchResultItem, bool) { return nil, false }
func (Noop) Set(string, []models.SearchResultItem)        {}
func (Noop) Len() int                                     { return 0 }

// FromConfig picks the Store implementation for the given settings:
// a zero ttl disables caching, a positive maxEntries bounds it.
func FromConfig(ttl time.Duration, maxEntries int) Store {
	switch {
	case ttl <= 0:
		return Noop{}
	case maxEntries > 0:
		return NewLRU(maxEntries, ttl)
	default:
		return New(ttl)
	}
}
