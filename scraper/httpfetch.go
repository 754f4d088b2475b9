package scraper

import (
	"bufio"
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/prixscout/models"
	"golang.org/x/net/html/charset"
)

const (
	chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// searchReferer makes upstream traffic look like it came from a search result.
	searchReferer = "https://www.google.com/"

	maxBodyBytes = 10 << 20
)

// chromeH1Spec is a Chrome ClientHello with ALPN pinned to http/1.1, since
// http.Transport cannot speak h2 over a utls connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// HTTPFetcher is the static page fetcher. It issues a single GET per call
// with browser-like headers and a Chrome TLS fingerprint. No retries.
type HTTPFetcher struct {
	client *http.Client
	dialer *chromeDialer
}

// NewHTTPFetcher creates a fetcher whose calls are bounded by timeout.
// proxy, if set, must be an http(s) proxy URL. HTTPS targets are tunnelled
// with CONNECT and keep the Chrome fingerprint end to end.
func NewHTTPFetcher(timeout time.Duration, proxy string) *HTTPFetcher {
	d := &chromeDialer{dialer: &net.Dialer{Timeout: 10 * time.Second}}
	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			d.proxy = proxyURL
		} else {
			slog.Warn("ignoring unsupported fetch proxy", "proxy", proxy)
		}
	}

	transport := &http.Transport{
		DialTLSContext:      d.DialTLSContext,
		ForceAttemptHTTP2:   false,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	if d.proxy != nil {
		// http.Transport skips DialTLSContext for proxied HTTPS, so it only
		// forwards plain HTTP; the dialer tunnels HTTPS itself.
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "http" {
				return d.proxy, nil
			}
			return nil, nil
		}
	}

	return &HTTPFetcher{
		dialer: d,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// Fetch returns the UTF-8 body of targetURL. Network failures and non-2xx
// statuses come back as FETCH_FAILED, deadlines as SCRAPE_TIMEOUT.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "build request", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", searchReferer)
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, categorizeError(err, models.ErrCodeFetch, "upstream request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewScrapeError(models.ErrCodeFetch,
			fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode), nil)
	}

	r, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "decode body", err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, categorizeError(err, models.ErrCodeFetch, "read body")
	}
	return body, nil
}

// Close releases idle upstream connections.
func (f *HTTPFetcher) Close() {
	f.client.CloseIdleConnections()
}

// chromeDialer opens TLS connections with chromeH1Spec, directly or
// through a CONNECT tunnel when proxy is set.
type chromeDialer struct {
	dialer *net.Dialer
	proxy  *url.URL

	// rootCAs overrides the system roots when non-nil.
	rootCAs *x509.CertPool
}

func (d *chromeDialer) DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := d.dialRaw(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(conn, &tls.Config{ServerName: host, RootCAs: d.rootCAs}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// dialRaw returns a TCP connection that reaches addr, tunnelled through
// the proxy when one is configured.
func (d *chromeDialer) dialRaw(ctx context.Context, network, addr string) (net.Conn, error) {
	if d.proxy == nil {
		return d.dialer.DialContext(ctx, network, addr)
	}

	proxyAddr := d.proxy.Host
	if d.proxy.Port() == "" {
		port := "80"
		if d.proxy.Scheme == "https" {
			port = "443"
		}
		proxyAddr = net.JoinHostPort(d.proxy.Hostname(), port)
	}

	conn, err := d.dialer.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("dial proxy: %w", err)
	}
	if d.proxy.Scheme == "https" {
		pc := tls.Client(conn, &tls.Config{ServerName: d.proxy.Hostname(), RootCAs: d.rootCAs})
		if err := pc.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("proxy tls: %w", err)
		}
		conn = pc
	}

	if err := connectTunnel(ctx, conn, addr, d.proxy.User); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// connectTunnel asks the proxy on conn to open a tunnel to addr.
func connectTunnel(ctx context.Context, conn net.Conn, addr string, user *url.Userinfo) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: http.Header{"User-Agent": {chromeUA}},
	}
	if user != nil {
		pass, _ := user.Password()
		req.SetBasicAuth(user.Username(), pass)
		req.Header.Set("Proxy-Authorization", req.Header.Get("Authorization"))
		req.Header.Del("Authorization")
	}
	if err := req.Write(conn); err != nil {
		return fmt.Errorf("proxy connect: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		return fmt.Errorf("proxy connect: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("proxy connect: %s", resp.Status)
	}
	if br.Buffered() > 0 {
		return fmt.Errorf("proxy connect: unexpected data after response")
	}
	return nil
}
