package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/propcrawl/crawl"
	"github.com/lmittmann/tint"
)

// NewLogger returns a logger writing to w in the configured format.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	level, err := cfg.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// logProgress turns crawl progress events into log lines.
func logProgress(logger *slog.Logger) crawl.ProgressFunc {
	return func(e crawl.ProgressEvent) {
		switch e.Type {
		case crawl.ProgressShardStarted:
			logger.Info("shard started", "shard", e.Shard, "page", e.Page)
		case crawl.ProgressShardSkipped:
			logger.Debug("shard already complete", "shard", e.Shard)
		case crawl.ProgressPageFetched:
			logger.Info("search page", "shard", e.Shard, "page", e.Page, "listings", e.Listings)
		case crawl.ProgressPageFailed:
			logger.Warn("search page failed", "shard", e.Shard, "page", e.Page, "err", e.Error)
		case crawl.ProgressListingFailed:
			logger.Warn("listing failed", "shard", e.Shard, "url", e.URL, "err", e.Error)
		case crawl.ProgressProfileFailed:
			logger.Warn("profile failed", "shard", e.Shard, "url", e.URL, "err", e.Error)
		case crawl.ProgressRetry:
			logger.Debug("retry", "url", e.URL, "attempt", e.Attempt, "err", e.Error)
		case crawl.ProgressBatchStored:
			attrs := []any{"shard", e.Shard, "page", e.Page, "listings", e.Listings}
			if e.Import != nil {
				attrs = append(attrs,
					"imported", e.Import.Imported,
					"skipped_existing", e.Import.SkippedExisting,
					"failed", len(e.Import.Failed),
				)
			}
			logger.Info("batch stored", attrs...)
		case crawl.ProgressShardDone:
			logger.Info("shard done", "shard", e.Shard)
		}
	}
}
