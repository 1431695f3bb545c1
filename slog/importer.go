package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/propcrawl"
)

// Ensure LoggingImporter implements propcrawl.ListingImporter.
var _ propcrawl.ListingImporter = (*LoggingImporter)(nil)

// LoggingImporter wraps a ListingImporter with logging.
type LoggingImporter struct {
	next   propcrawl.ListingImporter
	logger *slog.Logger
}

// NewLoggingImporter creates a new LoggingImporter.
func NewLoggingImporter(next propcrawl.ListingImporter, logger *slog.Logger) *LoggingImporter {
	return &LoggingImporter{next: next, logger: logger}
}

// ImportListings imports each record through ImportListing so every
// outcome is logged. Cancellation stops the batch between records.
func (i *LoggingImporter) ImportListings(ctx context.Context, records []*propcrawl.ListingRecord) (result *propcrawl.ImportResult, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"records", len(records),
			"duration", time.Since(begin),
		}
		if result != nil {
			attrs = append(attrs,
				"imported", result.Imported,
				"skipped_existing", result.SkippedExisting,
				"failed", len(result.Failed),
			)
		}
		i.logger.Info("import batch", append(attrs, "err", err)...)
	}(time.Now())

	result = &propcrawl.ImportResult{}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Add(i.ImportListing(ctx, rec))
	}
	return result, nil
}

// ImportListing delegates to the wrapped importer and logs the outcome.
func (i *LoggingImporter) ImportListing(ctx context.Context, rec *propcrawl.ListingRecord) (out propcrawl.ImportOutcome) {
	defer func(begin time.Time) {
		attrs := []any{
			"listing_id", out.ListingID,
			"status", out.Status.String(),
			"duration", time.Since(begin),
		}
		if out.Status == propcrawl.ImportFailed {
			i.logger.Warn("import listing", append(attrs, "err", out.Reason())...)
			return
		}
		i.logger.Debug("import listing", attrs...)
	}(time.Now())
	return i.next.ImportListing(ctx, rec)
}
