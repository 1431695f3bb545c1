package slog

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fwojciec/propcrawl"
)

// Ensure the parser decorators implement their interfaces.
var (
	_ propcrawl.SearchParser  = (*LoggingSearchParser)(nil)
	_ propcrawl.ListingParser = (*LoggingListingParser)(nil)
	_ propcrawl.ProfileParser = (*LoggingProfileParser)(nil)
)

// LoggingSearchParser wraps a SearchParser with debug logging.
type LoggingSearchParser struct {
	next   propcrawl.SearchParser
	logger *slog.Logger
}

// NewLoggingSearchParser creates a new LoggingSearchParser.
func NewLoggingSearchParser(next propcrawl.SearchParser, logger *slog.Logger) *LoggingSearchParser {
	return &LoggingSearchParser{next: next, logger: logger}
}

// ParseSearch delegates to the wrapped parser and logs the page summary.
func (p *LoggingSearchParser) ParseSearch(state json.RawMessage, page int) (result *propcrawl.SearchResult, err error) {
	defer func(begin time.Time) {
		attrs := []any{"page", page, "duration", time.Since(begin)}
		if result != nil {
			attrs = append(attrs,
				"listings", len(result.Listings),
				"total", result.Total,
				"has_more", result.HasMore,
			)
		}
		p.logger.Debug("parse search", append(attrs, "err", err)...)
	}(time.Now())
	return p.next.ParseSearch(state, page)
}

// LoggingListingParser wraps a ListingParser with debug logging.
type LoggingListingParser struct {
	next   propcrawl.ListingParser
	logger *slog.Logger
}

// NewLoggingListingParser creates a new LoggingListingParser.
func NewLoggingListingParser(next propcrawl.ListingParser, logger *slog.Logger) *LoggingListingParser {
	return &LoggingListingParser{next: next, logger: logger}
}

// ParseListing delegates to the wrapped parser and logs the parsed record.
func (p *LoggingListingParser) ParseListing(state json.RawMessage, detailURL string) (rec *propcrawl.ListingRecord, err error) {
	defer func(begin time.Time) {
		attrs := []any{"url", detailURL, "duration", time.Since(begin)}
		if rec != nil {
			attrs = append(attrs,
				"listing_id", rec.ID,
				"schools", len(rec.Schools),
				"events", len(rec.Timeline),
			)
		}
		p.logger.Debug("parse listing", append(attrs, "err", err)...)
	}(time.Now())
	return p.next.ParseListing(state, detailURL)
}

// LoggingProfileParser wraps a ProfileParser with debug logging.
type LoggingProfileParser struct {
	next   propcrawl.ProfileParser
	logger *slog.Logger
}

// NewLoggingProfileParser creates a new LoggingProfileParser.
func NewLoggingProfileParser(next propcrawl.ProfileParser, logger *slog.Logger) *LoggingProfileParser {
	return &LoggingProfileParser{next: next, logger: logger}
}

// ParseProfile delegates to the wrapped parser and logs whether a valuation was found.
func (p *LoggingProfileParser) ParseProfile(state json.RawMessage, detailURL string) (rec *propcrawl.ListingRecord, err error) {
	defer func(begin time.Time) {
		attrs := []any{"url", detailURL, "duration", time.Since(begin)}
		if rec != nil {
			attrs = append(attrs,
				"listing_id", rec.ID,
				"valuation", rec.Valuation != nil,
				"surrounding_suburbs", len(rec.SurroundingSuburbs),
			)
		}
		p.logger.Debug("parse profile", append(attrs, "err", err)...)
	}(time.Now())
	return p.next.ParseProfile(state, detailURL)
}
