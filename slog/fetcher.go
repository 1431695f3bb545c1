// Package slog provides logging decorators for propcrawl services.
package slog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fwojciec/propcrawl"
)

// Ensure LoggingFetcher implements propcrawl.Fetcher.
var _ propcrawl.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with logging.
type LoggingFetcher struct {
	next   propcrawl.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next propcrawl.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the request.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (html string, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"url", url,
			"bytes", len(html),
			"duration", time.Since(begin),
		}
		var ferr *propcrawl.FetchError
		if errors.As(err, &ferr) {
			attrs = append(attrs, "kind", ferr.Kind.String())
			if ferr.StatusCode != 0 {
				attrs = append(attrs, "status", ferr.StatusCode)
			}
		}
		if err != nil {
			f.logger.Warn("fetch", append(attrs, "err", err)...)
			return
		}
		f.logger.Info("fetch", attrs...)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}
