package api

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/prixscout/api/handler"
	"github.com/use-agent/prixscout/api/middleware"
	"github.com/use-agent/prixscout/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → RequestID → CORS
//	Static:  Auth (if enabled) → RateLimit(static)
//	Search:  Auth (if enabled) → RateLimit(search)
//
// Health sits outside auth so monitoring probes always work. Path
// parameters are catch-alls so that a blank segment reaches the handler
// and gets a 400 instead of a 404 from the router.
func NewRouter(svc handler.Service, sessions handler.SessionSource, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	r.GET("/health", handler.Health(svc, sessions))

	protected := r.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}

	// A /search miss launches a browser, so it draws from its own budget.
	staticLimit := middleware.NewLimiter("static", cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	searchLimit := middleware.NewLimiter("search", cfg.RateLimit.SearchRequestsPerSecond, cfg.RateLimit.SearchBurst)

	static := protected.Group("", middleware.RateLimit(staticLimit))
	static.GET("/scrape/*query", handler.Scrape(svc))
	static.GET("/details/*path", handler.Details(svc))
	static.GET("/images/*query", handler.Images(svc))

	protected.GET("/search/*query", middleware.RateLimit(searchLimit), handler.Search(svc))

	return r
}
