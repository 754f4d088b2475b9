package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Upstream  UpstreamConfig
	Browser   BrowserConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3001
	Mode string // "debug", "release", "test"; default: "release"
}

// UpstreamConfig describes the retail site being scraped.
type UpstreamConfig struct {
	// BaseURL is the upstream origin, without a trailing slash.
	BaseURL string // default: "https://www.smartprix.com"

	// ImageSearchURL is the search page used for thumbnail lookups.
	ImageSearchURL string // default: "https://www.amazon.in/s"

	// FetchTimeout is the hard deadline for a single static fetch.
	FetchTimeout time.Duration // default: 10s

	// StaticListingCap is the maximum number of cards read from static HTML.
	StaticListingCap int // default: 10

	// BrowserListingCap is the maximum number of cards read from the live DOM.
	BrowserListingCap int // default: 40
}

// SearchURL builds the upstream search URL for an already sanitized query.
func (u UpstreamConfig) SearchURL(query string) string {
	return strings.TrimRight(u.BaseURL, "/") + "/products/?q=" + url.QueryEscape(query)
}

// DetailURL builds the upstream product page URL for a sanitized path.
func (u UpstreamConfig) DetailURL(path string) string {
	return strings.TrimRight(u.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// ImageSearchPageURL builds the thumbnail search URL. Spaces become '+'.
func (u UpstreamConfig) ImageSearchPageURL(query string) string {
	return u.ImageSearchURL + "?k=" + strings.ReplaceAll(query, " ", "+")
}

// BrowserConfig controls the per-request Rod browser sessions.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DefaultProxy is the proxy URL for browser and static fetches.
	DefaultProxy string

	// Timeout bounds a whole browser session, launch to teardown.
	Timeout time.Duration // default: 30s

	// WaitTimeout bounds the wait for the first product card to render.
	WaitTimeout time.Duration // default: 10s

	// MaxSessions caps concurrently running browser sessions.
	MaxSessions int // default: 4

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to known ad and tracking hosts.
	BlockAds bool // default: true
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of accepted bearer tokens / API keys.
	APIKeys []string
}

// RateLimitConfig controls per-caller rate limiting. Static routes share
// one budget; /search, which may launch a browser on every cache miss,
// gets a separate and tighter one.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per caller on static routes.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst per caller on static routes.
	Burst int // default: 10

	// SearchRequestsPerSecond is the sustained rate per caller on /search.
	SearchRequestsPerSecond float64 // default: 0.5

	// SearchBurst is the maximum burst per caller on /search.
	SearchBurst int // default: 3
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// CacheConfig controls the browser search result cache.
type CacheConfig struct {
	// TTL is the freshness window for every entry.
	TTL time.Duration // default: 1h

	// MaxEntries bounds the cache; 0 means unbounded.
	MaxEntries int // default: 0
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PRIXSCOUT_HOST", "0.0.0.0"),
			Port: envIntOr("PRIXSCOUT_PORT", 3001),
			Mode: envOr("PRIXSCOUT_MODE", "release"),
		},
		Upstream: UpstreamConfig{
			BaseURL:           strings.TrimRight(envOr("PRIXSCOUT_UPSTREAM_URL", "https://www.smartprix.com"), "/"),
			ImageSearchURL:    envOr("PRIXSCOUT_IMAGE_SEARCH_URL", "https://www.amazon.in/s"),
			FetchTimeout:      envDurationOr("PRIXSCOUT_FETCH_TIMEOUT", 10*time.Second),
			StaticListingCap:  envIntOr("PRIXSCOUT_STATIC_LISTING_CAP", 10),
			BrowserListingCap: envIntOr("PRIXSCOUT_BROWSER_LISTING_CAP", 40),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("PRIXSCOUT_HEADLESS", true),
			NoSandbox:    envBoolOr("PRIXSCOUT_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("PRIXSCOUT_BROWSER_BIN"),
			DefaultProxy: os.Getenv("PRIXSCOUT_PROXY"),
			Timeout:      envDurationOr("PRIXSCOUT_BROWSER_TIMEOUT", 30*time.Second),
			WaitTimeout:  envDurationOr("PRIXSCOUT_BROWSER_WAIT", 10*time.Second),
			MaxSessions:  envIntOr("PRIXSCOUT_MAX_SESSIONS", 4),
			BlockedResourceTypes: envSliceOr("PRIXSCOUT_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			BlockAds: envBoolOr("PRIXSCOUT_BLOCK_ADS", true),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PRIXSCOUT_AUTH_ENABLED", false),
			APIKeys: envSliceOr("PRIXSCOUT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PRIXSCOUT_RATE_RPS", 5.0),
			Burst:             envIntOr("PRIXSCOUT_RATE_BURST", 10),

			SearchRequestsPerSecond: envFloatOr("PRIXSCOUT_SEARCH_RATE_RPS", 0.5),
			SearchBurst:             envIntOr("PRIXSCOUT_SEARCH_RATE_BURST", 3),
		},
		CORS: CORSConfig{
			AllowedOrigins: envSliceOr("PRIXSCOUT_ALLOWED_ORIGINS", []string{
				"http://localhost:3000", "http://localhost:3001", "http://localhost:9001",
			}),
		},
		Cache: CacheConfig{
			TTL:        envDurationOr("PRIXSCOUT_CACHE_TTL", time.Hour),
			MaxEntries: envIntOr("PRIXSCOUT_CACHE_MAX_ENTRIES", 0),
		},
		Log: LogConfig{
			Level:  envOr("PRIXSCOUT_LOG_LEVEL", "info"),
			Format: envOr("PRIXSCOUT_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
