package scraper

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/prixscout/cache"
	"github.com/use-agent/prixscout/config"
	"github.com/use-agent/prixscout/engine"
	"github.com/use-agent/prixscout/models"
)

type countingEngine struct {
	name  string
	items []models.SearchResultItem
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (e *countingEngine) Name() string { return e.name }

func (e *countingEngine) Search(ctx context.Context, _ string) ([]models.SearchResultItem, error) {
	e.calls.Add(1)
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	return e.items, e.err
}

type mapFetcher struct {
	pages map[string][]byte
	calls atomic.Int32
}

func (f *mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	if body, ok := f.pages[url]; ok {
		return body, nil
	}
	return nil, models.NewScrapeError(models.ErrCodeFetch, "upstream returned HTTP 404", nil)
}

var testUpstream = config.UpstreamConfig{
	BaseURL:           "https://shop.example",
	ImageSearchURL:    "https://img.example/s",
	StaticListingCap:  10,
	BrowserListingCap: 40,
}

var laptops = []models.SearchResultItem{
	{Name: "Laptop A", Price: "₹50,000", ImageURL: models.NotAvailable, DetailLink: "/laptops/a"},
}

type fixture struct {
	s       *Scraper
	fetcher *mapFetcher
	static  *countingEngine
	browser *countingEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		fetcher: &mapFetcher{pages: map[string][]byte{}},
		static:  &countingEngine{name: "http", items: laptops},
		browser: &countingEngine{name: "rod", items: laptops},
	}
	f.s = New(testUpstream, f.fetcher, f.static, f.browser, cache.New(time.Hour))
	return f
}

func TestScraper_BlankInputIsRejectedBeforeNetwork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, raw := range []string{"", "   ", "%%%", "\n\t"} {
		_, err := f.s.ListByQuery(ctx, raw)
		assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err), "list %q", raw)

		_, _, err = f.s.SearchWithBrowser(ctx, raw, false)
		assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err), "search %q", raw)

		_, err = f.s.ImagesByQuery(ctx, raw)
		assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err), "images %q", raw)
	}

	_, err := f.s.DetailByKey(ctx, "phones", "")
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
	_, err = f.s.DetailByKey(ctx, " ", "pixel-9")
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))

	assert.Zero(t, f.static.calls.Load())
	assert.Zero(t, f.browser.calls.Load())
	assert.Zero(t, f.fetcher.calls.Load())
}

func TestScraper_ListByQuery(t *testing.T) {
	f := newFixture(t)

	items, err := f.s.ListByQuery(context.Background(), "laptop")
	require.NoError(t, err)
	assert.Equal(t, laptops, items)

	f.static.err = models.NewScrapeError(models.ErrCodeFetch, "upstream request failed", errors.New("refused"))
	_, err = f.s.ListByQuery(context.Background(), "laptop")
	assert.Equal(t, models.ErrCodeFetch, models.CodeOf(err))
}

func TestScraper_DetailByKey(t *testing.T) {
	f := newFixture(t)
	raw, err := os.ReadFile("../extract/testdata/detail.html")
	require.NoError(t, err)
	f.fetcher.pages["https://shop.example/mobiles/google-pixel-9"] = raw

	detail, err := f.s.DetailByKey(context.Background(), "mobiles", "google-pixel-9")
	require.NoError(t, err)
	assert.NotEqual(t, models.NotAvailable, detail.Name)

	// Unsafe characters are stripped before the URL is built.
	_, err = f.s.DetailByKey(context.Background(), "mob?iles", "google-pixel-9#")
	require.NoError(t, err)

	_, err = f.s.DetailByKey(context.Background(), "mobiles", "missing")
	assert.Equal(t, models.ErrCodeFetch, models.CodeOf(err))
}

func TestScraper_SearchWithBrowser_CachesPerKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, status, err := f.s.SearchWithBrowser(ctx, "laptop", false)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)

	second, status, err := f.s.SearchWithBrowser(ctx, "Laptop", false)
	require.NoError(t, err)
	assert.Equal(t, CacheHit, status)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.browser.calls.Load())

	_, status, err = f.s.SearchWithBrowser(ctx, "laptop", true)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status, "compare mode is a separate cache entry")
	assert.Equal(t, int32(2), f.browser.calls.Load())
	assert.Equal(t, 2, f.s.CacheEntries())
}

func TestScraper_SearchWithBrowser_FailureCachesEmpty(t *testing.T) {
	f := newFixture(t)
	f.browser.err = models.NewScrapeError(models.ErrCodeBrowser, "failed to launch browser", nil)
	f.browser.items = nil

	items, _, err := f.s.SearchWithBrowser(context.Background(), "laptop", false)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	items, status, err := f.s.SearchWithBrowser(context.Background(), "laptop", false)
	require.NoError(t, err)
	assert.Equal(t, CacheHit, status)
	assert.Empty(t, items)
	assert.Equal(t, int32(1), f.browser.calls.Load())
}

func TestScraper_SearchWithBrowser_CoalescesConcurrentMisses(t *testing.T) {
	f := newFixture(t)
	f.browser.delay = 100 * time.Millisecond

	var wg sync.WaitGroup
	results := make([][]models.SearchResultItem, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items, _, err := f.s.SearchWithBrowser(context.Background(), "laptop", false)
			assert.NoError(t, err)
			results[i] = items
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.browser.calls.Load())
	for _, items := range results {
		assert.Equal(t, laptops, items)
	}
}

func TestScraper_ImagesByQuery(t *testing.T) {
	f := newFixture(t)
	f.fetcher.pages["https://img.example/s?k=pixel+9"] = []byte(`<html><body>
<div class="s-image-fixed-height"><img class="s-image" src="https://img.example/1.jpg"></div>
<div class="s-image-fixed-height"><img class="s-image" src="https://img.example/2.jpg"></div>
</body></html>`)

	urls, err := f.s.ImagesByQuery(context.Background(), "pixel 9")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.example/1.jpg", "https://img.example/2.jpg"}, urls)

	// Line breaks separate words the same way a space does.
	urls, err = f.s.ImagesByQuery(context.Background(), "pixel\n9")
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}

func TestScraper_SearchWithBrowser_WhitespaceKeepsWordsApart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, status, err := f.s.SearchWithBrowser(ctx, "pixel 9", false)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)

	for _, raw := range []string{"pixel\t9", "pixel\u00a09"} {
		_, status, err = f.s.SearchWithBrowser(ctx, raw, false)
		require.NoError(t, err)
		assert.Equal(t, CacheHit, status, "%q", raw)
	}

	_, status, err = f.s.SearchWithBrowser(ctx, "pixel9", false)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, status)
	assert.Equal(t, int32(2), f.browser.calls.Load())
}

func TestScraper_SearchWithBrowser_WaiterStopsOnContextEnd(t *testing.T) {
	f := newFixture(t)
	f.browser.delay = 300 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := f.s.SearchWithBrowser(ctx, "laptop", false)
	assert.Equal(t, models.ErrCodeTimeout, models.CodeOf(err))
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	// The shared search keeps running and still fills the cache.
	assert.Eventually(t, func() bool { return f.s.CacheEntries() == 1 }, 2*time.Second, 10*time.Millisecond)

	items, status, err := f.s.SearchWithBrowser(context.Background(), "laptop", false)
	require.NoError(t, err)
	assert.Equal(t, CacheHit, status)
	assert.Equal(t, laptops, items)
	assert.Equal(t, int32(1), f.browser.calls.Load())
}

// lateStore misses on the first Get, as if another flight filled the key
// between the caller's lookup and its own flight starting.
type lateStore struct {
	cache.Store
	gets atomic.Int32
}

func (s *lateStore) Get(key string) ([]models.SearchResultItem, bool) {
	if s.gets.Add(1) == 1 {
		return nil, false
	}
	return s.Store.Get(key)
}

func TestScraper_SearchWithBrowser_RecheckReportsHit(t *testing.T) {
	f := newFixture(t)
	store := &lateStore{Store: cache.New(time.Hour)}
	store.Store.Set(cache.Key("laptop", false), laptops)
	s := New(testUpstream, f.fetcher, f.static, f.browser, store)

	items, status, err := s.SearchWithBrowser(context.Background(), "laptop", false)
	require.NoError(t, err)
	assert.Equal(t, CacheHit, status)
	assert.Equal(t, laptops, items)
	assert.Zero(t, f.browser.calls.Load())
}

func TestScraper_WiresBrowserExtractorAsEngine(t *testing.T) {
	l := &fakeLauncher{result: cards(3)}
	b := newTestExtractor(l)
	s := New(testUpstream, &mapFetcher{}, &countingEngine{}, engine.NewRodEngine(b.Search), cache.New(time.Hour))

	for i := 0; i < 3; i++ {
		items, _, err := s.SearchWithBrowser(context.Background(), "laptop", false)
		require.NoError(t, err)
		assert.Len(t, items, 3)
	}
	assert.Equal(t, int32(1), l.launches.Load())
	assert.Zero(t, l.open())
}
