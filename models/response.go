package models

// ErrorResponse is the body of every failed scrape endpoint call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status         string `json:"status"` // "healthy" or "degraded"
	Uptime         string `json:"uptime"`
	CacheEntries   int    `json:"cacheEntries"`
	ActiveSessions int    `json:"activeSessions"`
	MaxSessions    int    `json:"maxSessions"`
	Version        string `json:"version"`
}

// SessionStats reports browser session usage.
type SessionStats struct {
	MaxSessions    int
	ActiveSessions int
}
