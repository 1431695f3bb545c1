package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds settings read from PROPCRAWL_* environment variables.
type Config struct {
	DBPath       string `env:"PROPCRAWL_DB"`
	ProgressPath string `env:"PROPCRAWL_PROGRESS"`
	BaseURL      string `env:"PROPCRAWL_BASE_URL" envDefault:"https://www.domain.com.au"`
	ShardsFile   string `env:"PROPCRAWL_SHARDS"`

	Concurrency  int             `env:"PROPCRAWL_CONCURRENCY" envDefault:"10"`
	BatchSize    int             `env:"PROPCRAWL_BATCH_SIZE" envDefault:"20"`
	BatchDelay   time.Duration   `env:"PROPCRAWL_BATCH_DELAY" envDefault:"2s"`
	PageDelay    time.Duration   `env:"PROPCRAWL_PAGE_DELAY" envDefault:"5s"`
	FetchTimeout time.Duration   `env:"PROPCRAWL_FETCH_TIMEOUT" envDefault:"30s"`
	RateLimit    float64         `env:"PROPCRAWL_RATE_LIMIT" envDefault:"2"`
	RetryDelays  []time.Duration `env:"PROPCRAWL_RETRY_DELAYS" envDefault:"1s,2s,4s" envSeparator:","`
	UserAgent    string          `env:"PROPCRAWL_USER_AGENT"`
	Browser      bool            `env:"PROPCRAWL_BROWSER"`

	LogLevel  string `env:"PROPCRAWL_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"PROPCRAWL_LOG_FORMAT" envDefault:"text"`
}

// LoadConfig loads an optional .env file from the working directory and
// parses the environment into a Config.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return ParseConfig(nil)
}

// ParseConfig parses a Config from environ, or from the process
// environment when environ is nil.
func ParseConfig(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	var opts []env.Options
	if environ != nil {
		opts = append(opts, env.Options{Environment: environ})
	}
	if err := env.Parse(cfg, opts...); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(dataDir(), "propcrawl.db")
	}
	if cfg.ProgressPath == "" {
		cfg.ProgressPath = filepath.Join(dataDir(), "progress.json")
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: want text or json", cfg.LogFormat)
	}
	return cfg, nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	dir := filepath.Join(home, ".propcrawl")
	_ = os.MkdirAll(dir, 0755)
	return dir
}
