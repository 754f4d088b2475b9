// Package handler holds the gin handlers for the public API.
package handler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prixscout/api/middleware"
	"github.com/use-agent/prixscout/models"
)

// Service is the orchestrator as seen by the handlers.
type Service interface {
	ListByQuery(ctx context.Context, query string) ([]models.SearchResultItem, error)
	DetailByKey(ctx context.Context, catID, id string) (*models.ProductDetail, error)
	SearchWithBrowser(ctx context.Context, query string, compare bool) ([]models.SearchResultItem, string, error)
	ImagesByQuery(ctx context.Context, query string) ([]string, error)
	CacheEntries() int
	Uptime() time.Duration
}

// SessionSource reports browser session usage.
type SessionSource interface {
	Stats() models.SessionStats
}

// Error messages returned to callers. Upstream details are logged only.
const (
	msgQueryRequired  = "Query parameter is required"
	msgParamsRequired = "Parameters are required"
	msgScrapeFailed   = "Failed to scrape products"
	msgDetailFailed   = "Failed to scrape product details"
	msgListInternal   = "Failed to fetch products"
	msgDetailInternal = "Failed to fetch product details"
	msgSearchInternal = "Failed to search products"
)

// catchAll returns a "*name" route parameter without its leading slash.
func catchAll(c *gin.Context, name string) string {
	return strings.TrimPrefix(c.Param(name), "/")
}

// logger returns slog's default logger tagged with the request ID.
func logger(c *gin.Context) *slog.Logger {
	return slog.With("request_id", c.GetString(middleware.RequestIDContextKey), "path", c.Request.URL.Path)
}

// upstreamFailure reports whether code describes an upstream or parse
// problem rather than a bug on our side.
func upstreamFailure(code string) bool {
	switch code {
	case models.ErrCodeFetch, models.ErrCodeTimeout, models.ErrCodeExtraction, models.ErrCodeBrowser:
		return true
	}
	return false
}
