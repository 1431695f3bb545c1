package propcrawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Fetcher retrieves raw page bodies from URLs.
type Fetcher interface {
	// Fetch issues a GET for the URL and returns the response body.
	// Failures are reported as *FetchError.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (body string, err error)

	// Close releases resources held by the fetcher.
	Close() error
}

// FetchErrorKind classifies a failed fetch.
type FetchErrorKind int

const (
	// FetchStatus means the server answered with a non-200 status.
	FetchStatus FetchErrorKind = iota + 1
	// FetchNetwork means the request failed at the transport level.
	FetchNetwork
	// FetchTimeout means the request exceeded its deadline.
	FetchTimeout
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchStatus:
		return "status"
	case FetchNetwork:
		return "network"
	case FetchTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// FetchError is returned by Fetcher implementations.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchStatus {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a fetch failure worth retrying:
// timeouts, transport errors, throttling and server errors.
func IsTransient(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Kind {
	case FetchNetwork, FetchTimeout:
		return true
	case FetchStatus:
		return fe.StatusCode == http.StatusTooManyRequests || fe.StatusCode >= 500
	}
	return false
}
