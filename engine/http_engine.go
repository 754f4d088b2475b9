package engine

import (
	"context"

	"github.com/use-agent/prixscout/config"
	"github.com/use-agent/prixscout/extract"
	"github.com/use-agent/prixscout/models"
)

// HTTPEngine searches by fetching the static results page and parsing it.
// It never executes page scripts, so it is cheap but sees only the
// server-rendered cards.
type HTTPEngine struct {
	fetcher  Fetcher
	upstream config.UpstreamConfig
}

// NewHTTPEngine creates an HTTPEngine reading at most
// upstream.StaticListingCap cards per query.
func NewHTTPEngine(fetcher Fetcher, upstream config.UpstreamConfig) *HTTPEngine {
	return &HTTPEngine{fetcher: fetcher, upstream: upstream}
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Search(ctx context.Context, query string) ([]models.SearchResultItem, error) {
	body, err := e.fetcher.Fetch(ctx, e.upstream.SearchURL(query))
	if err != nil {
		return nil, err
	}
	doc, err := extract.Parse(body)
	if err != nil {
		return nil, err
	}
	return extract.Listing(doc, e.upstream.StaticListingCap), nil
}
