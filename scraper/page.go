package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/prixscout/config"
	"github.com/use-agent/prixscout/models"
	"github.com/ysmood/gson"
)

// Launcher starts browser sessions. A session belongs to exactly one call
// and is never pooled.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is one live browser tab. Close must be called on every exit path
// and is safe to call more than once.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	Eval(ctx context.Context, js string, args ...any) (gson.JSON, error)
	Close() error
}

// RodLauncher launches a dedicated Chromium process per session.
type RodLauncher struct {
	cfg config.BrowserConfig
}

// NewRodLauncher creates a RodLauncher from browser settings.
func NewRodLauncher(cfg config.BrowserConfig) *RodLauncher {
	return &RodLauncher{cfg: cfg}
}

// Launch starts Chromium, connects to it and opens a stealth tab with
// resource blocking installed. On any failure everything already started
// is torn down before returning.
//
// Order matters: stealth JS and the hijack router only apply to
// navigations that happen after they are installed.
func (l *RodLauncher) Launch(ctx context.Context) (Session, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(l.cfg.Headless).
		NoSandbox(l.cfg.NoSandbox)

	if l.cfg.BrowserBin != "" {
		ln = ln.Bin(l.cfg.BrowserBin)
	}
	if l.cfg.DefaultProxy != "" {
		ln = ln.Proxy(l.cfg.DefaultProxy)
	}

	ln.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	ln.Delete(flags.Flag("enable-automation"))
	ln.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	ln.Set(flags.Flag("disable-popup-blocking"))
	ln.Set(flags.Flag("disable-component-update"))
	ln.Set(flags.Flag("disable-default-apps"))
	ln.Set(flags.Flag("disable-dev-shm-usage"))
	ln.Set(flags.Flag("disable-extensions"))
	ln.Set(flags.Flag("no-first-run"))

	s := &rodSession{launcher: ln}

	controlURL, err := ln.Launch()
	if ln.PID() != 0 {
		s.launched = true
	}
	if err != nil {
		s.Close()
		return nil, categorizeError(err, models.ErrCodeBrowser, "failed to launch browser")
	}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		s.Close()
		return nil, categorizeError(err, models.ErrCodeBrowser, "failed to connect to browser")
	}

	s.page, err = s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close()
		return nil, categorizeError(err, models.ErrCodeBrowser, "failed to open page")
	}

	if _, err := s.page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}

	s.router = setupHijack(s.page, l.cfg.BlockedResourceTypes, l.cfg.BlockAds)

	return s, nil
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	launched bool

	once sync.Once
	err  error
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return categorizeError(err, models.ErrCodeBrowser, "navigation failed")
	}
	if err := p.WaitLoad(); err != nil {
		return categorizeError(err, models.ErrCodeBrowser, "page load failed")
	}
	return nil
}

func (s *rodSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if _, err := s.page.Context(ctx).Timeout(timeout).Element(selector); err != nil {
		return categorizeError(err, models.ErrCodeBrowser, "element did not appear")
	}
	return nil
}

func (s *rodSession) Eval(ctx context.Context, js string, args ...any) (gson.JSON, error) {
	res, err := s.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return gson.JSON{}, categorizeError(err, models.ErrCodeBrowser, "script failed")
	}
	return res.Value, nil
}

// Close stops interception, closes the tab and the browser, then kills the
// process and removes its profile directory. The request context may
// already be done, so nothing here is bound to it.
func (s *rodSession) Close() error {
	s.once.Do(func() {
		var errs []error
		if s.router != nil {
			errs = append(errs, s.router.Stop())
		}
		if s.page != nil {
			errs = append(errs, s.page.Close())
		}
		if s.browser != nil {
			errs = append(errs, s.browser.Close())
		}
		if s.launched {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.err = errors.Join(errs...)
	})
	return s.err
}

// categorizeError wraps raw errors into ScrapeErrors so the API layer can
// map them to status codes. Deadlines become timeouts, anything else gets code.
func categorizeError(err error, code, msg string) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	case errors.As(err, &ne) && ne.Timeout():
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	default:
		return models.NewScrapeError(code, msg, err)
	}
}
