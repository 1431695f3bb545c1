package main

import (
	"errors"
	"fmt"

	"github.com/fwojciec/propcrawl"
	"github.com/fwojciec/propcrawl/bloom"
	"github.com/fwojciec/propcrawl/crawl"
	"github.com/fwojciec/propcrawl/domaincom"
	"github.com/fwojciec/propcrawl/fs"
	"github.com/fwojciec/propcrawl/goquery"
	"github.com/fwojciec/propcrawl/htmltomarkdown"
	pcslog "github.com/fwojciec/propcrawl/slog"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	cfg := deps.Config

	shards, err := c.shards(cfg)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", propcrawl.ErrorMessage(err))
		return err
	}

	fetcher, err := deps.NewFetcher(c.Browser || cfg.Browser)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	known, err := bloom.Load(deps.Ctx, deps.Properties)
	if err != nil {
		return fmt.Errorf("load stored listing urls: %w", err)
	}

	var sink propcrawl.ListingSink = pcslog.NewLoggingImporter(deps.Importer, deps.Logger)
	if c.Output != "" {
		sink = fs.NewRecordWriter(c.Output)
	}

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = cfg.Concurrency
	}

	listings := domaincom.NewListingParser(cfg.BaseURL, htmltomarkdown.NewConverter())

	urls := domaincom.NewURLBuilder(cfg.BaseURL)
	crawler := &crawl.Crawler{
		Fetcher:     pcslog.NewLoggingFetcher(fetcher, deps.Logger),
		Extractor:   goquery.NewStateExtractor(goquery.DefaultStateID),
		Search:      pcslog.NewLoggingSearchParser(domaincom.NewSearchParser(cfg.BaseURL), deps.Logger),
		Listings:    pcslog.NewLoggingListingParser(listings, deps.Logger),
		URLs:        urls,
		Progress:    deps.Progress,
		Sink:        sink,
		Known:       known,
		Stored:      deps.Properties,
		RateLimiter: crawl.NewDomainLimiter(cfg.RateLimit),
		Concurrency: concurrency,
		BatchSize:   cfg.BatchSize,
		BatchDelay:  cfg.BatchDelay,
		PageDelay:   cfg.PageDelay,
		RetryDelays: cfg.RetryDelays,
	}
	if c.Profiles {
		crawler.Profiles = pcslog.NewLoggingProfileParser(domaincom.NewProfileParser(cfg.BaseURL), deps.Logger)
		crawler.ProfileURLs = urls
	}

	result, err := crawler.Crawl(deps.Ctx, shards, logProgress(deps.Logger))
	if result != nil {
		printCrawlResult(deps, result)
	}
	if err != nil {
		if errors.Is(err, deps.Ctx.Err()) {
			fmt.Fprintln(deps.Stdout, "Interrupted. Progress saved; run crawl again to resume.")
		}
		return err
	}
	return nil
}

func (c *CrawlCmd) shards(cfg *Config) ([]propcrawl.Shard, error) {
	if len(c.Suburb) > 0 {
		shards := make([]propcrawl.Shard, 0, len(c.Suburb))
		for _, slug := range c.Suburb {
			shards = append(shards, domaincom.SuburbShard(slug))
		}
		return shards, nil
	}
	shards, err := LoadShards(cfg.ShardsFile)
	if err != nil {
		return nil, err
	}
	return selectShards(shards, c.Shard)
}

func printCrawlResult(deps *Dependencies, result *crawl.Result) {
	var complete int
	for _, sr := range result.Shards {
		if sr.Err == nil {
			complete++
		}
	}
	fmt.Fprintf(deps.Stdout, "Crawled %d shards (%d without search errors): %d imported, %d already stored, %d failed to import, %d failed to fetch\n",
		len(result.Shards), complete,
		result.Import.Imported, result.Import.SkippedExisting, len(result.Import.Failed), result.Failed)
	for _, sr := range result.Shards {
		if sr.Err != nil {
			fmt.Fprintf(deps.Stdout, "  shard %s: search failed on page %d: %v\n", sr.Key, sr.LastPage, sr.Err)
		}
		for _, f := range sr.Failed {
			fmt.Fprintf(deps.Stdout, "  shard %s: %s: %s\n", sr.Key, f.URL, f.Reason)
		}
	}
	for _, f := range result.Import.Failed {
		fmt.Fprintf(deps.Stdout, "  listing %d: %s\n", f.ID, f.Reason)
	}
}
