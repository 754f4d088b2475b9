// Package engine defines the search capability shared by the two
// extraction strategies: static HTML and a rendered browser DOM.
package engine

import (
	"context"

	"github.com/use-agent/prixscout/models"
)

// Engine is the interface both search strategies implement. They differ in
// cost, freshness and reliability, and the orchestrator picks one per
// endpoint rather than branching at runtime.
type Engine interface {
	// Name returns the engine identifier ("http" or "rod").
	Name() string

	// Search returns the product cards for an already sanitized query.
	Search(ctx context.Context, query string) ([]models.SearchResultItem, error)
}

// Fetcher retrieves the raw HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
