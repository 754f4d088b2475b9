package cache

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/prixscout/models"
)

// Store caches browser search results for a fixed freshness window.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(key string) ([]models.SearchResultItem, bool)
	Set(key string, items []models.SearchResultItem)
	Len() int
}

// Key builds the cache key for a search query and comparison-mode flag.
func Key(query string, compare bool) string {
	return strings.ToLower(strings.TrimSpace(query)) + "|compare=" + strconv.FormatBool(compare)
}

// entry holds cached items with their absolute expiry.
type entry struct {
	items     []models.SearchResultItem
	expiresAt time.Time
}

// TTLCache is an unbounded in-memory cache with lazy expiry: stale entries
// are reported as absent and replaced by the next Set. There is no sweeper.
type TTLCache struct {
	mu    sync.RWMutex
	store map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

// New creates a TTLCache whose entries expire ttl after insertion.
func New(ttl time.Duration) *TTLCache {
	return &TTLCache{
		store: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns a copy of the items stored under key if they are still fresh.
func (c *TTLCache) Get(key string) ([]models.SearchResultItem, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return slices.Clone(e.items), true
}

// Set stores a copy of items under key, replacing any previous entry.
func (c *TTLCache) Set(key string, items []models.SearchResultItem) {
	e := entry{
		items:     cloneItems(items),
		expiresAt: c.now().Add(c.ttl),
	}

	c.mu.Lock()
	c.store[key] = e
	c.mu.Unlock()
}

// Len counts stored entries, fresh or stale.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// cloneItems copies items, turning nil into an empty slice so a cached
// "no results" answer serialises as [] rather than null.
func cloneItems(items []models.SearchResultItem) []models.SearchResultItem {
	if items == nil {
		return []models.SearchResultItem{}
	}
	return slices.Clone(items)
}
