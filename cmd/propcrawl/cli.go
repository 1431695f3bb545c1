package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/propcrawl"
	"github.com/fwojciec/propcrawl/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx        context.Context
	Stdout     io.Writer
	Stderr     io.Writer
	Config     *Config
	Logger     *slog.Logger
	DB         *sqlite.DB
	Suburbs    propcrawl.SuburbService
	Properties propcrawl.PropertyService
	Importer   propcrawl.ListingImporter
	Progress   propcrawl.ProgressStore
	NewFetcher func(browser bool) (propcrawl.Fetcher, error)
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Crawl   CrawlCmd   `cmd:"" help:"Crawl listings shard by shard, resuming saved progress"`
	Import  ImportCmd  `cmd:"" help:"Import a JSONL file of listing records"`
	Status  StatusCmd  `cmd:"" help:"Show crawl progress per shard"`
	Suburbs SuburbsCmd `cmd:"" help:"List stored suburbs with property counts"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	Shard       []string `short:"s" name:"shard" help:"Crawl only the shard with this key (repeatable)"`
	Suburb      []string `name:"suburb" help:"Crawl this suburb slug, e.g. testville-nsw-2000 (repeatable)"`
	Output      string   `short:"o" help:"Append records to a JSONL file instead of the database"`
	Browser     bool     `short:"b" help:"Fetch pages with headless Chrome"`
	Concurrency int      `short:"c" help:"Concurrent detail fetches (defaults to PROPCRAWL_CONCURRENCY)"`
	Profiles    bool     `short:"p" help:"Enrich listings with their property profile pages (valuation, surrounding suburbs)"`
}

// ImportCmd is the "import" subcommand.
type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"JSONL file written by crawl --output"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct{}

// SuburbsCmd is the "suburbs" subcommand.
type SuburbsCmd struct {
	State string `help:"Only suburbs in this state, e.g. NSW"`
	Limit int    `short:"n" default:"0" help:"Maximum number of suburbs to list (0 for all)"`
}
