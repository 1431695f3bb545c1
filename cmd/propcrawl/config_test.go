package main_test

import (
	"log/slog"
	"testing"
	"time"

	main "github.com/fwojciec/propcrawl/cmd/propcrawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := main.ParseConfig(map[string]string{
			"PROPCRAWL_DB":       "/tmp/p.db",
			"PROPCRAWL_PROGRESS": "/tmp/progress.json",
		})

		require.NoError(t, err)
		assert.Equal(t, "https://www.domain.com.au", cfg.BaseURL)
		assert.Equal(t, 10, cfg.Concurrency)
		assert.Equal(t, 20, cfg.BatchSize)
		assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, cfg.RetryDelays)
		assert.False(t, cfg.Browser)
		assert.Equal(t, "text", cfg.LogFormat)
	})

	t.Run("reads overrides", func(t *testing.T) {
		t.Parallel()

		cfg, err := main.ParseConfig(map[string]string{
			"PROPCRAWL_DB":           "/tmp/p.db",
			"PROPCRAWL_PROGRESS":     "/tmp/progress.json",
			"PROPCRAWL_CONCURRENCY":  "4",
			"PROPCRAWL_BATCH_DELAY":  "500ms",
			"PROPCRAWL_RETRY_DELAYS": "100ms,200ms",
			"PROPCRAWL_BROWSER":      "true",
			"PROPCRAWL_LOG_LEVEL":    "debug",
			"PROPCRAWL_LOG_FORMAT":   "json",
		})

		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Concurrency)
		assert.Equal(t, 500*time.Millisecond, cfg.BatchDelay)
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, cfg.RetryDelays)
		assert.True(t, cfg.Browser)
		level, err := cfg.Level()
		require.NoError(t, err)
		assert.Equal(t, slog.LevelDebug, level)
	})

	t.Run("rejects unknown log level", func(t *testing.T) {
		t.Parallel()

		_, err := main.ParseConfig(map[string]string{
			"PROPCRAWL_DB":        "/tmp/p.db",
			"PROPCRAWL_PROGRESS":  "/tmp/progress.json",
			"PROPCRAWL_LOG_LEVEL": "loud",
		})

		require.ErrorContains(t, err, "invalid log level")
	})

	t.Run("rejects unknown log format", func(t *testing.T) {
		t.Parallel()

		_, err := main.ParseConfig(map[string]string{
			"PROPCRAWL_DB":         "/tmp/p.db",
			"PROPCRAWL_PROGRESS":   "/tmp/progress.json",
			"PROPCRAWL_LOG_FORMAT": "xml",
		})

		require.ErrorContains(t, err, "invalid log format")
	})

	t.Run("rejects malformed durations", func(t *testing.T) {
		t.Parallel()

		_, err := main.ParseConfig(map[string]string{
			"PROPCRAWL_DB":         "/tmp/p.db",
			"PROPCRAWL_PROGRESS":   "/tmp/progress.json",
			"PROPCRAWL_PAGE_DELAY": "soon",
		})

		require.Error(t, err)
	})
}
