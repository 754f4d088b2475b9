package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/prixscout/api"
	"github.com/use-agent/prixscout/cache"
	"github.com/use-agent/prixscout/config"
	"github.com/use-agent/prixscout/engine"
	"github.com/use-agent/prixscout/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("prixscout starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"upstream", cfg.Upstream.BaseURL,
		"maxSessions", cfg.Browser.MaxSessions,
		"cacheTTL", cfg.Cache.TTL,
	)

	// ── 3. Fetch and extraction strategies ──────────────────────────
	fetcher := scraper.NewHTTPFetcher(cfg.Upstream.FetchTimeout, cfg.Browser.DefaultProxy)
	defer fetcher.Close()

	browser := scraper.NewBrowserExtractor(scraper.NewRodLauncher(cfg.Browser), cfg.Upstream, cfg.Browser)

	// The engine receives the browser search as a callback so that
	// engine/ never imports scraper/.
	static := engine.NewHTTPEngine(fetcher, cfg.Upstream)
	rod := engine.NewRodEngine(browser.Search)

	// ── 4. Cache + orchestrator ─────────────────────────────────────
	store := cache.FromConfig(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	sc := scraper.New(cfg.Upstream, fetcher, static, rod, store)

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(sc, browser, cfg)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight browser sessions get their full deadline to finish and
	// tear down their Chromium process.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Browser.Timeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("prixscout stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
