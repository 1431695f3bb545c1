// Package rod fetches pages through a headless Chrome browser for sites that
// reject plain HTTP clients.
package rod

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/fwojciec/propcrawl"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultFetchTimeout bounds a single page load.
const DefaultFetchTimeout = 30 * time.Second

// Ensure Fetcher implements propcrawl.Fetcher at compile time.
var _ propcrawl.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered HTML using Chrome browser automation.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager *BrowserManager
	timeout time.Duration
	closed  atomic.Bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout sets the per-page timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// NewFetcher launches a headless browser and returns a Fetcher using it.
// Close must be called when the Fetcher is no longer needed.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	return NewFetcherWithManagerOptions(opts, nil)
}

// NewFetcherWithManagerOptions is NewFetcher with browser manager options
// such as WithUserAgent or WithMaxPages.
func NewFetcherWithManagerOptions(opts []Option, managerOpts []ManagerOption) (*Fetcher, error) {
	manager, err := NewBrowserManager(managerOpts...)
	if err != nil {
		return nil, err
	}
	f := &Fetcher{manager: manager, timeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch navigates to the URL and returns the rendered HTML. A non-200
// document response is reported as a FetchStatus error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.closed.Load() {
		return "", propcrawl.Errorf(propcrawl.EINVALID, "fetcher is closed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, release, err := f.manager.NewPage(ctx)
	if err != nil {
		return "", &propcrawl.FetchError{Kind: propcrawl.FetchNetwork, URL: url, Err: err}
	}
	defer release()

	var status int
	waitResponse := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := page.Navigate(url); err != nil {
		return "", f.classify(ctx, url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", f.classify(ctx, url, err)
	}
	waitResponse()

	if status != 0 && status != 200 {
		return "", &propcrawl.FetchError{Kind: propcrawl.FetchStatus, URL: url, StatusCode: status}
	}

	html, err := page.HTML()
	if err != nil {
		return "", f.classify(ctx, url, err)
	}
	return html, nil
}

func (f *Fetcher) classify(ctx context.Context, url string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &propcrawl.FetchError{Kind: propcrawl.FetchTimeout, URL: url, Err: context.DeadlineExceeded}
	}
	return &propcrawl.FetchError{Kind: propcrawl.FetchNetwork, URL: url, Err: err}
}

// Close releases browser resources. Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.manager.Close()
}

// LauncherPID returns the process ID of the browser launcher.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}
