package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prixscout/models"
)

// APIKeyContextKey is the gin context key holding the authenticated key.
const APIKeyContextKey = "api_key"

// Auth returns API-key authentication middleware for the scrape routes.
//
// Accepted headers:
//
//	Authorization: Bearer <key>
//	X-API-Key: <key>
//
// With no configured keys every request is rejected, since enabling auth
// without keys is a configuration mistake rather than a request to open access.
func Auth(apiKeys []string) gin.HandlerFunc {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(c *gin.Context) {
		key := extractAPIKey(c)
		if key == "" {
			logRejected(c, "missing credentials")
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "Missing credentials",
			})
			return
		}

		if !validKey(keys, key) {
			logRejected(c, "invalid credentials")
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "Invalid credentials",
			})
			return
		}

		c.Set(APIKeyContextKey, key)
		c.Next()
	}
}

// extractAPIKey tries Authorization: Bearer first, then X-API-Key.
func extractAPIKey(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(c.GetHeader("X-API-Key"))
}

func validKey(keys [][]byte, candidate string) bool {
	got := []byte(candidate)
	ok := false
	for _, k := range keys {
		if subtle.ConstantTimeCompare(k, got) == 1 {
			ok = true
		}
	}
	return ok
}

func logRejected(c *gin.Context, reason string) {
	slog.Warn("request unauthorized",
		"code", models.ErrCodeUnauthorized,
		"reason", reason,
		"client_ip", c.ClientIP(),
		"path", c.Request.URL.Path,
	)
}
