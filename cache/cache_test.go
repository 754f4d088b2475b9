package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/prixscout/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*TTLCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New(ttl)
	c.now = clock.Now
	return c, clock
}

var sample = []models.SearchResultItem{
	{Name: "Pixel 9", Price: "₹79,999", ImageURL: "https://cdn.example/p.webp", DetailLink: "/mobiles/pixel-9"},
	{Name: "Pixel 9 Pro", Price: models.NotAvailable, ImageURL: models.NotAvailable, DetailLink: "/mobiles/pixel-9-pro"},
}

func TestKey(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		compare bool
		want    string
	}{
		{"lowercases", "Laptop", false, "laptop|compare=false"},
		{"trims", "  laptop ", false, "laptop|compare=false"},
		{"compare flag", "laptop", true, "laptop|compare=true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.query, tt.compare))
		})
	}

	assert.NotEqual(t, Key("laptop", true), Key("laptop", false))
}

func TestTTLCache_SetGetWithinTTL(t *testing.T) {
	c, clock := newTestCache(time.Hour)

	c.Set("laptop|compare=false", sample)
	clock.Advance(59 * time.Minute)

	got, ok := c.Get("laptop|compare=false")
	require.True(t, ok)
	assert.Equal(t, sample, got)
}

func TestTTLCache_ExpiresAfterTTL(t *testing.T) {
	c, clock := newTestCache(time.Hour)

	c.Set("k", sample)
	clock.Advance(time.Hour)

	_, ok := c.Get("k")
	assert.False(t, ok, "an entry is absent once its TTL has elapsed")
	assert.Equal(t, 1, c.Len(), "expiry is lazy; the entry stays until overwritten")

	c.Set("k", sample[:1])
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestTTLCache_DistinctKeys(t *testing.T) {
	c, _ := newTestCache(time.Hour)

	c.Set(Key("laptop", false), sample[:1])
	c.Set(Key("laptop", true), sample)

	a, ok := c.Get(Key("laptop", false))
	require.True(t, ok)
	b, ok := c.Get(Key("laptop", true))
	require.True(t, ok)

	assert.Len(t, a, 1)
	assert.Len(t, b, 2)

	_, ok = c.Get(Key("phone", false))
	assert.False(t, ok)
}

func TestTTLCache_EmptyResultIsCached(t *testing.T) {
	c, _ := newTestCache(time.Hour)

	c.Set("k", nil)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTTLCache_ValuesAreCopied(t *testing.T) {
	c, _ := newTestCache(time.Hour)

	in := append([]models.SearchResultItem(nil), sample...)
	c.Set("k", in)
	in[0].Name = "mutated"

	got, _ := c.Get("k")
	got[1].Name = "mutated too"

	again, _ := c.Get("k")
	assert.Equal(t, sample, again)
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Set("k", sample)
		}()
		go func() {
			defer wg.Done()
			c.Get("k")
		}()
	}
	wg.Wait()

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, sample, got)
}

func TestLRUCache_Bounded(t *testing.T) {
	c := NewLRU(2, time.Hour)

	c.Set("a", sample)
	c.Set("b", sample)
	c.Get("a")
	c.Set("c", sample)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestFromConfig(t *testing.T) {
	assert.IsType(t, Noop{}, FromConfig(0, 0))
	assert.IsType(t, &LRUCache{}, FromConfig(time.Hour, 100))
	assert.IsType(t, &TTLCache{}, FromConfig(time.Hour, 0))

	n := Noop{}
	n.Set("k", sample)
	_, ok := n.Get("k")
	assert.False(t, ok)
}
