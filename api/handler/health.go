package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prixscout/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /health.
//
// Status degrades when more than 80% of browser sessions are in use.
func Health(svc Service, sessions SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sessions.Stats()

		status := "healthy"
		if stats.MaxSessions > 0 && stats.ActiveSessions > int(float64(stats.MaxSessions)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:         status,
			Uptime:         svc.Uptime().Round(time.Second).String(),
			CacheEntries:   svc.CacheEntries(),
			ActiveSessions: stats.ActiveSessions,
			MaxSessions:    stats.MaxSessions,
			Version:        Version,
		})
	}
}
