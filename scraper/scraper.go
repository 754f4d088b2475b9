// Package scraper holds the static page fetcher, the browser-driven
// extractor and the orchestrator that the API calls into.
package scraper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/prixscout/cache"
	"github.com/use-agent/prixscout/config"
	"github.com/use-agent/prixscout/engine"
	"github.com/use-agent/prixscout/extract"
	"github.com/use-agent/prixscout/models"
	"github.com/use-agent/prixscout/sanitize"
	"golang.org/x/sync/singleflight"
)

// Cache lookup outcomes reported by SearchWithBrowser.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Scraper is the orchestrator: it sanitizes input, picks the extraction
// path per operation and owns the search cache. It is safe for concurrent use.
type Scraper struct {
	upstream config.UpstreamConfig
	fetcher  engine.Fetcher
	static   engine.Engine
	browser  engine.Engine
	cache    cache.Store

	// inflight coalesces concurrent misses for the same cache key into a
	// single browser session.
	inflight singleflight.Group

	startTime time.Time
}

// New creates a Scraper. static serves ListByQuery, browser serves
// SearchWithBrowser, and fetcher serves detail and thumbnail pages.
func New(upstream config.UpstreamConfig, fetcher engine.Fetcher, static, browser engine.Engine, store cache.Store) *Scraper {
	return &Scraper{
		upstream:  upstream,
		fetcher:   fetcher,
		static:    static,
		browser:   browser,
		cache:     store,
		startTime: time.Now(),
	}
}

// ListByQuery returns up to StaticListingCap items from the static results
// page. Zero matching cards is an empty slice, not an error.
func (s *Scraper) ListByQuery(ctx context.Context, raw string) ([]models.SearchResultItem, error) {
	query, err := requireQuery(raw)
	if err != nil {
		return nil, err
	}

	items, err := s.static.Search(ctx, query)
	if err != nil {
		slog.Warn("static listing failed", "query", query, "engine", s.static.Name(), "error", err)
		return nil, err
	}
	slog.Debug("static listing", "query", query, "items", len(items))
	return items, nil
}

// DetailByKey fetches and extracts one product page addressed by its
// category and item segments. Each segment is sanitized on its own.
func (s *Scraper) DetailByKey(ctx context.Context, catID, id string) (*models.ProductDetail, error) {
	cat := strings.TrimSpace(sanitize.Path(catID))
	item := strings.TrimSpace(sanitize.Path(id))
	if cat == "" || item == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "parameters are required", nil)
	}

	target := s.upstream.DetailURL(cat + "/" + item)
	body, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		slog.Warn("detail fetch failed", "url", target, "error", err)
		return nil, err
	}
	doc, err := extract.Parse(body)
	if err != nil {
		slog.Warn("detail parse failed", "url", target, "error", err)
		return nil, err
	}
	return extract.Detail(doc), nil
}

// SearchWithBrowser serves a browser-driven search through the cache.
// On a miss the browser engine runs once per key, however many callers are
// waiting, and its result is stored even when empty. A browser failure is
// an empty result, never an error. Errors are invalid input, or ctx ending
// while the caller waits on a search started by someone else.
//
// The second return value is CacheHit or CacheMiss. A caller that joins a
// flight which found the key already cached gets CacheHit.
func (s *Scraper) SearchWithBrowser(ctx context.Context, raw string, compare bool) ([]models.SearchResultItem, string, error) {
	query, err := requireQuery(raw)
	if err != nil {
		return nil, "", err
	}

	key := cache.Key(query, compare)
	if items, ok := s.cache.Get(key); ok {
		return items, CacheHit, nil
	}

	// The flight runs detached from any one caller so a client going away
	// does not cancel a search others are waiting on. The browser deadline
	// still bounds it; a caller whose context ends stops waiting.
	detached := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(key, func() (any, error) {
		if items, ok := s.cache.Get(key); ok {
			return flightResult{items: items, status: CacheHit}, nil
		}

		items, err := s.browser.Search(detached, query)
		if err != nil {
			slog.Warn("browser search failed",
				"query", query,
				"compare", compare,
				"code", models.CodeOf(err),
				"error", err,
			)
			items = []models.SearchResultItem{}
		}
		s.cache.Set(key, items)
		slog.Info("browser search cached", "query", query, "compare", compare, "items", len(items))
		return flightResult{items: items, status: CacheMiss}, nil
	})

	select {
	case <-ctx.Done():
		return nil, "", categorizeError(ctx.Err(), models.ErrCodeBrowser, "gave up waiting for browser search")
	case res := <-ch:
		fr := res.Val.(flightResult)
		// Callers sharing a flight must not share a backing array.
		out := make([]models.SearchResultItem, len(fr.items))
		copy(out, fr.items)
		return out, fr.status, nil
	}
}

// flightResult is what one coalesced browser search hands to every waiter.
type flightResult struct {
	items  []models.SearchResultItem
	status string
}

// ImagesByQuery returns thumbnail URLs from the image search page.
func (s *Scraper) ImagesByQuery(ctx context.Context, raw string) ([]string, error) {
	query, err := requireQuery(raw)
	if err != nil {
		return nil, err
	}

	target := s.upstream.ImageSearchPageURL(query)
	body, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		slog.Warn("thumbnail fetch failed", "url", target, "error", err)
		return nil, err
	}
	doc, err := extract.Parse(body)
	if err != nil {
		return nil, err
	}
	return extract.Thumbnails(doc), nil
}

// CacheEntries reports the number of entries held by the search cache.
func (s *Scraper) CacheEntries() int {
	return s.cache.Len()
}

// Uptime reports how long the orchestrator has been running.
func (s *Scraper) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// requireQuery sanitizes raw and rejects queries that end up blank.
func requireQuery(raw string) (string, error) {
	query := strings.TrimSpace(sanitize.Query(raw))
	if query == "" {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, "query parameter is required", nil)
	}
	return query, nil
}
