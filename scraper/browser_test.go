package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/prixscout/config"
	"github.com/use-agent/prixscout/models"
	"github.com/ysmood/gson"
)

// fakeLauncher hands out fakeSessions and injects failures by stage.
type fakeLauncher struct {
	failLaunch   error
	failNavigate error
	failWait     error
	failEval     error
	result       any
	delay        time.Duration

	mu       sync.Mutex
	sessions []*fakeSession
	launches atomic.Int32
}

func (l *fakeLauncher) Launch(ctx context.Context) (Session, error) {
	l.launches.Add(1)
	if l.failLaunch != nil {
		return nil, l.failLaunch
	}
	s := &fakeSession{l: l}
	l.mu.Lock()
	l.sessions = append(l.sessions, s)
	l.mu.Unlock()
	return s, nil
}

// open reports sessions that were launched but never closed.
func (l *fakeLauncher) open() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, s := range l.sessions {
		if s.closed.Load() == 0 {
			n++
		}
	}
	return n
}

type fakeSession struct {
	l       *fakeLauncher
	url     string
	evalArg []any
	closed  atomic.Int32
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.url = url
	if s.l.delay > 0 {
		select {
		case <-time.After(s.l.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.l.failNavigate
}

func (s *fakeSession) WaitFor(context.Context, string, time.Duration) error {
	return s.l.failWait
}

func (s *fakeSession) Eval(_ context.Context, _ string, args ...any) (gson.JSON, error) {
	s.evalArg = args
	if s.l.failEval != nil {
		return gson.JSON{}, s.l.failEval
	}
	return gson.New(s.l.result), nil
}

func (s *fakeSession) Close() error {
	s.closed.Add(1)
	return nil
}

func card(name, price, img, link string) map[string]any {
	return map[string]any{"name": name, "price": price, "img": img, "link": link}
}

func cards(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = card(fmt.Sprintf("Laptop %d", i), "₹1", "https://cdn.example/i.webp", fmt.Sprintf("/laptops/%d", i))
	}
	return out
}

func testBrowserConfig() (config.UpstreamConfig, config.BrowserConfig) {
	up := config.UpstreamConfig{
		BaseURL:           "https://shop.example",
		BrowserListingCap: 40,
	}
	bc := config.BrowserConfig{
		Timeout:     5 * time.Second,
		WaitTimeout: time.Second,
		MaxSessions: 2,
	}
	return up, bc
}

func newTestExtractor(l *fakeLauncher) *BrowserExtractor {
	up, bc := testBrowserConfig()
	return NewBrowserExtractor(l, up, bc)
}

func TestBrowserExtractor_Success(t *testing.T) {
	l := &fakeLauncher{result: []any{
		card("  Laptop A ", "₹50,000", "https://cdn.example/a.webp", "/laptops/a"),
		card("Laptop B", "", "", "/laptops/b"),
	}}
	b := newTestExtractor(l)

	items := b.SearchViaBrowser(context.Background(), "gaming laptop", false)

	require.Len(t, items, 2)
	assert.Equal(t, models.SearchResultItem{
		Name:       "Laptop A",
		Price:      "₹50,000",
		ImageURL:   "https://cdn.example/a.webp",
		DetailLink: "/laptops/a",
	}, items[0])
	assert.Equal(t, models.NotAvailable, items[1].Price)
	assert.Equal(t, models.NotAvailable, items[1].ImageURL)

	require.Len(t, l.sessions, 1)
	assert.Equal(t, "https://shop.example/products/?q=gaming+laptop", l.sessions[0].url)
	assert.Equal(t, int32(1), l.sessions[0].closed.Load())
	assert.Equal(t, 0, b.Stats().ActiveSessions)
}

func TestBrowserExtractor_CapsAtListingLimit(t *testing.T) {
	l := &fakeLauncher{result: cards(55)}
	b := newTestExtractor(l)

	items := b.SearchViaBrowser(context.Background(), "laptop", false)

	assert.Len(t, items, 40)
	assert.Equal(t, 40, l.sessions[0].evalArg[1], "the cap is passed to the page script")
}

func TestBrowserExtractor_FailuresReleaseSession(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		launcher *fakeLauncher
		wantCode string
	}{
		{"launch", &fakeLauncher{failLaunch: boom}, models.ErrCodeBrowser},
		{"navigate", &fakeLauncher{failNavigate: boom}, models.ErrCodeBrowser},
		{"script", &fakeLauncher{failEval: boom}, models.ErrCodeBrowser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestExtractor(tt.launcher)

			items := b.SearchViaBrowser(context.Background(), "laptop", true)
			assert.NotNil(t, items)
			assert.Empty(t, items)

			_, err := b.Search(context.Background(), "laptop")
			assert.Equal(t, tt.wantCode, models.CodeOf(err))

			assert.Zero(t, tt.launcher.open(), "every launched session is closed")
			assert.Zero(t, b.Stats().ActiveSessions)
		})
	}
}

func TestBrowserExtractor_WaitTimeoutIsNotFatal(t *testing.T) {
	l := &fakeLauncher{failWait: context.DeadlineExceeded, result: []any{}}
	b := newTestExtractor(l)

	items, err := b.Search(context.Background(), "nothing here")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, l.open())
}

func TestBrowserExtractor_UnexpectedScriptResult(t *testing.T) {
	l := &fakeLauncher{result: "not a list"}
	items, err := newTestExtractor(l).Search(context.Background(), "laptop")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestBrowserExtractor_SessionTimeout(t *testing.T) {
	l := &fakeLauncher{delay: time.Second, result: cards(1)}
	up, bc := testBrowserConfig()
	bc.Timeout = 50 * time.Millisecond
	b := NewBrowserExtractor(l, up, bc)

	_, err := b.Search(context.Background(), "laptop")
	assert.Equal(t, models.ErrCodeTimeout, models.CodeOf(err))
	assert.Zero(t, l.open())
}

func TestBrowserExtractor_BoundsConcurrentSessions(t *testing.T) {
	l := &fakeLauncher{delay: 50 * time.Millisecond, result: cards(1)}
	b := newTestExtractor(l)

	var peak atomic.Int32
	var wg sync.WaitGroup
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				if n := int32(b.Stats().ActiveSessions); n > peak.Load() {
					peak.Store(n)
				}
				time.Sleep(time.Millisecond)
			}
		}
	}()

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.SearchViaBrowser(context.Background(), "laptop", false)
		}()
	}
	wg.Wait()
	close(stop)

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(6), l.launches.Load())
	assert.Equal(t, int64(6), b.Launches())
	assert.Zero(t, l.open())
}
