package engine

import (
	"context"
	"fmt"

	"github.com/use-agent/prixscout/models"
)

// SearchFunc runs one browser-driven search. It is injected by the caller
// so that engine/ does not depend on the browser implementation.
type SearchFunc func(ctx context.Context, query string) ([]models.SearchResultItem, error)

// RodEngine is the browser-driven strategy. It delegates to a SearchFunc,
// normally scraper.BrowserExtractor.Search.
type RodEngine struct {
	search SearchFunc
}

// NewRodEngine creates a RodEngine around search.
func NewRodEngine(search SearchFunc) *RodEngine {
	return &RodEngine{search: search}
}

func (e *RodEngine) Name() string { return "rod" }

func (e *RodEngine) Search(ctx context.Context, query string) ([]models.SearchResultItem, error) {
	if e.search == nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowser, "rod: search func not configured", nil)
	}
	items, err := e.search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), err)
	}
	return items, nil
}
