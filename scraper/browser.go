package scraper

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/use-agent/prixscout/config"
	"github.com/use-agent/prixscout/extract"
	"github.com/use-agent/prixscout/models"
	"github.com/ysmood/gson"
	"golang.org/x/sync/semaphore"
)

// listingScript reads up to limit product cards from the rendered DOM.
// Links are read as written in the markup so both search paths return the
// same detailLink shape.
const listingScript = `(selector, limit) => {
	const cards = document.querySelectorAll(selector);
	const out = [];
	for (let i = 0; i < Math.min(cards.length, limit); i++) {
		try {
			const card = cards[i];
			const anchor = card.querySelector('a.name.clamp-2');
			const heading = anchor ? anchor.querySelector('h2') : null;
			const price = card.querySelector('span.price');
			const img = card.querySelector('img.sm-img');
			out.push({
				name: ((heading || anchor) ? (heading || anchor).textContent : '') || '',
				price: (price ? price.textContent : '') || '',
				img: (img ? img.src : '') || '',
				link: (anchor ? anchor.getAttribute('href') : '') || '',
			});
		} catch (e) {}
	}
	return out;
}`

// BrowserExtractor searches the upstream site through a headless browser.
// Every call launches its own session, bounded by a session semaphore and a
// per-call deadline. It is safe for concurrent use.
type BrowserExtractor struct {
	launcher    Launcher
	upstream    config.UpstreamConfig
	timeout     time.Duration
	waitTimeout time.Duration
	maxSessions int

	sessions *semaphore.Weighted
	active   atomic.Int32
	launches atomic.Int64
}

// NewBrowserExtractor creates a BrowserExtractor on top of launcher.
func NewBrowserExtractor(launcher Launcher, upstream config.UpstreamConfig, browserCfg config.BrowserConfig) *BrowserExtractor {
	maxSessions := max(browserCfg.MaxSessions, 1)
	return &BrowserExtractor{
		launcher:    launcher,
		upstream:    upstream,
		timeout:     browserCfg.Timeout,
		waitTimeout: browserCfg.WaitTimeout,
		maxSessions: maxSessions,
		sessions:    semaphore.NewWeighted(int64(maxSessions)),
	}
}

// SearchViaBrowser returns at most BrowserListingCap items for query.
// compare is accepted for cache-key differentiation only; it does not change
// what is extracted. Any failure yields an empty, non-nil slice.
func (b *BrowserExtractor) SearchViaBrowser(ctx context.Context, query string, compare bool) []models.SearchResultItem {
	items, err := b.Search(ctx, query)
	if err != nil {
		slog.Warn("browser search failed",
			"query", query,
			"compare", compare,
			"code", models.CodeOf(err),
			"error", err,
		)
		return []models.SearchResultItem{}
	}
	return items
}

// Search runs one browser session for query and returns its items, or the
// error of the stage that failed. The session is closed on every path.
func (b *BrowserExtractor) Search(ctx context.Context, query string) ([]models.SearchResultItem, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	if err := b.sessions.Acquire(ctx, 1); err != nil {
		return nil, categorizeError(err, models.ErrCodeBrowser, "no browser session available")
	}
	defer b.sessions.Release(1)

	b.active.Add(1)
	defer b.active.Add(-1)

	b.launches.Add(1)
	session, err := b.launcher.Launch(ctx)
	if err != nil {
		return nil, categorizeError(err, models.ErrCodeBrowser, "failed to launch browser")
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			slog.Debug("browser session close reported an error", "error", closeErr)
		}
	}()

	if err := session.Navigate(ctx, b.upstream.SearchURL(query)); err != nil {
		return nil, categorizeError(err, models.ErrCodeBrowser, "navigation failed")
	}

	// Result pages render cards client-side; a page that never shows one
	// simply has no results.
	if b.waitTimeout > 0 {
		if err := session.WaitFor(ctx, extract.CardSelector, b.waitTimeout); err != nil {
			slog.Debug("no product cards appeared", "query", query, "error", err)
		}
	}

	raw, err := session.Eval(ctx, listingScript, extract.CardSelector, b.upstream.BrowserListingCap)
	if err != nil {
		return nil, categorizeError(err, models.ErrCodeBrowser, "extraction script failed")
	}

	return decodeListing(raw, b.upstream.BrowserListingCap), nil
}

// Stats reports current browser session usage.
func (b *BrowserExtractor) Stats() models.SessionStats {
	return models.SessionStats{
		MaxSessions:    b.maxSessions,
		ActiveSessions: int(b.active.Load()),
	}
}

// Launches reports how many sessions have been started since creation.
func (b *BrowserExtractor) Launches() int64 {
	return b.launches.Load()
}

// decodeListing converts the script result into items, capped at limit.
// Blank fields become models.NotAvailable.
func decodeListing(raw gson.JSON, limit int) []models.SearchResultItem {
	entries := raw.Arr()
	items := make([]models.SearchResultItem, 0, min(len(entries), max(limit, 0)))
	for _, e := range entries {
		if len(items) >= limit {
			break
		}
		items = append(items, models.SearchResultItem{
			Name:       jsonString(e.Get("name")),
			Price:      jsonString(e.Get("price")),
			ImageURL:   jsonString(e.Get("img")),
			DetailLink: jsonString(e.Get("link")),
		})
	}
	return items
}

func jsonString(j gson.JSON) string {
	if s, ok := j.Val().(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return models.NotAvailable
}
