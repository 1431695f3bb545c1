// Package http provides an HTTP-based implementation of propcrawl.Fetcher
// that presents itself as a desktop browser.
package http

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/fwojciec/propcrawl"
)

// DefaultFetchTimeout bounds a single request, including reading the body.
const DefaultFetchTimeout = 30 * time.Second

// DefaultUserAgent is a current desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Ensure Fetcher implements propcrawl.Fetcher at compile time.
var _ propcrawl.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves pages using plain HTTP requests with a browser header set.
// Fetcher is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	transport http.RoundTripper
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout.
// Defaults to DefaultFetchTimeout (30s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithTransport sets the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.transport = rt
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout:   f.timeout,
		Transport: f.transport,
	}

	return f
}

// Fetch retrieves the body of the given URL.
// Any response other than 200 OK is returned as a FetchStatus error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &propcrawl.FetchError{Kind: propcrawl.FetchNetwork, URL: url, Err: err}
	}
	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", classify(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &propcrawl.FetchError{Kind: propcrawl.FetchStatus, URL: url, StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", &propcrawl.FetchError{Kind: propcrawl.FetchNetwork, URL: url, Err: err}
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", classify(url, err)
	}

	return string(data), nil
}

func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-AU,en-US;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// classify maps a transport error onto a fetch error kind.
func classify(url string, err error) *propcrawl.FetchError {
	kind := propcrawl.FetchNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = propcrawl.FetchTimeout
	}
	return &propcrawl.FetchError{Kind: kind, URL: url, Err: err}
}

// Close releases idle connections.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
