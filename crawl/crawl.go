// Package crawl drives the resumable shard crawl. It pages through search
// results, fetches listing details in bounded batches, hands parsed records
// to a sink and checkpoints progress after every stored batch.
package crawl

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/fwojciec/propcrawl"
	"golang.org/x/sync/errgroup"
)

// Defaults applied when the corresponding Crawler field is zero.
const (
	DefaultConcurrency = 10
	DefaultBatchSize   = 20
)

// Crawler crawls shards of the portal's search results.
type Crawler struct {
	Fetcher   propcrawl.Fetcher
	Extractor propcrawl.StateExtractor
	Search    propcrawl.SearchParser
	Listings  propcrawl.ListingParser
	URLs      propcrawl.SearchURLBuilder
	Progress  propcrawl.ProgressStore
	Sink      propcrawl.ListingSink

	// Known, when set, holds the listing URLs already stored. A positive
	// is confirmed with Stored before the detail fetch is skipped.
	Known  propcrawl.URLFilter
	Stored propcrawl.PropertyService

	// Profiles, when set with ProfileURLs, enriches every parsed listing
	// with its property profile page. A failed profile keeps the listing.
	Profiles    propcrawl.ProfileParser
	ProfileURLs propcrawl.ProfileURLBuilder

	RateLimiter propcrawl.DomainLimiter
	Concurrency int
	BatchSize   int
	BatchDelay  time.Duration
	PageDelay   time.Duration
	RetryDelays []time.Duration
}

// Failure is a detail page that could not be fetched or parsed.
type Failure struct {
	URL    string
	Reason string
}

// ShardResult holds the outcome of crawling one shard.
type ShardResult struct {
	Key string

	// AlreadyComplete is set when the shard was complete before the call.
	AlreadyComplete bool

	Pages    int
	Listings int
	Skipped  int
	LastPage int
	Import   propcrawl.ImportResult
	Failed   []Failure

	// Err is the search page failure that ended the shard, if any.
	Err error
}

// Result holds the outcome of crawling several shards.
type Result struct {
	Shards []*ShardResult
	Import propcrawl.ImportResult
	Failed int
}

// ProgressEvent reports progress during a crawl.
type ProgressEvent struct {
	Type     ProgressType
	Shard    string
	Page     int
	URL      string
	Listings int
	Attempt  int
	Import   *propcrawl.ImportResult
	Error    error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressShardStarted ProgressType = iota
	ProgressShardSkipped
	ProgressPageFetched
	ProgressPageFailed
	ProgressListingFailed
	ProgressBatchStored
	ProgressRetry
	ProgressShardDone
	ProgressProfileFailed
)

// ProgressFunc is a callback for reporting crawl progress.
// Retry events come from fetch workers, so it must be safe for concurrent use.
type ProgressFunc func(event ProgressEvent)

// Crawl crawls shards in order, skipping shards already completed.
// It stops at the first error that is not local to a shard.
func (c *Crawler) Crawl(ctx context.Context, shards []propcrawl.Shard, progress ProgressFunc) (*Result, error) {
	keys, err := c.Progress.Completed(ctx)
	if err != nil {
		return nil, fmt.Errorf("load completed shards: %w", err)
	}
	completed := make(map[string]bool, len(keys))
	for _, k := range keys {
		completed[k] = true
	}

	result := &Result{}
	for _, shard := range shards {
		if completed[shard.Key] {
			emit(progress, ProgressEvent{Type: ProgressShardSkipped, Shard: shard.Key})
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		sr, err := c.CrawlShard(ctx, shard, progress)
		if sr != nil {
			result.Shards = append(result.Shards, sr)
			result.Import.Merge(&sr.Import)
			result.Failed += len(sr.Failed)
		}
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// CrawlShard crawls one shard from its persisted page cursor until the
// results are exhausted or a search page fails. Detail failures are
// reported in the result and do not stop the shard.
func (c *Crawler) CrawlShard(ctx context.Context, shard propcrawl.Shard, progress ProgressFunc) (*ShardResult, error) {
	state, err := c.Progress.Load(ctx, shard.Key)
	if err != nil {
		return nil, fmt.Errorf("load progress %s: %w", shard.Key, err)
	}

	result := &ShardResult{Key: shard.Key, LastPage: state.LastPage}
	if state.Completed {
		result.AlreadyComplete = true
		return result, nil
	}

	page := max(state.LastPage, 1)
	emit(progress, ProgressEvent{Type: ProgressShardStarted, Shard: shard.Key, Page: page})

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.LastPage = page

		searchURL := c.URLs.SearchURL(shard, page)
		sr, err := c.fetchSearch(ctx, searchURL, page, shard.Key, progress)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.Err = err
			emit(progress, ProgressEvent{Type: ProgressPageFailed, Shard: shard.Key, Page: page, URL: searchURL, Error: err})
			return result, c.finishShard(ctx, shard.Key, progress)
		}
		result.Pages++

		pending := c.pending(ctx, state, sr.Listings, result)
		result.Listings += len(sr.Listings)
		emit(progress, ProgressEvent{Type: ProgressPageFetched, Shard: shard.Key, Page: page, URL: searchURL, Listings: len(pending)})

		if err := c.processPage(ctx, shard.Key, page, state, pending, result, progress); err != nil {
			return result, err
		}

		if !sr.HasMore {
			return result, c.finishShard(ctx, shard.Key, progress)
		}

		page++
		state.LastPage = page
		if err := c.Progress.Save(ctx, state); err != nil {
			return result, fmt.Errorf("save progress %s: %w", shard.Key, err)
		}
		if err := sleep(ctx, c.PageDelay); err != nil {
			return result, err
		}
	}
}

// processPage fetches the pending detail URLs of one search page in batches.
// Progress is saved after the sink accepts each batch.
func (c *Crawler) processPage(ctx context.Context, key string, page int, state *propcrawl.ShardProgress, pending []string, result *ShardResult, progress ProgressFunc) error {
	size := c.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	for start := 0; start < len(pending); start += size {
		if start > 0 {
			if err := sleep(ctx, c.BatchDelay); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := pending[start:min(start+size, len(pending))]
		records, stored := c.fetchBatch(ctx, key, page, batch, result, progress)
		if err := ctx.Err(); err != nil {
			return err
		}

		imported, err := c.Sink.ImportListings(ctx, records)
		if imported != nil {
			result.Import.Merge(imported)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return fmt.Errorf("store batch %s page %d: %w", key, page, err)
		}

		state.MarkSeen(stored...)
		state.LastPage = page
		if err := c.Progress.Save(ctx, state); err != nil {
			return fmt.Errorf("save progress %s: %w", key, err)
		}
		if c.Known != nil {
			for _, u := range stored {
				c.Known.Add(u)
			}
		}
		emit(progress, ProgressEvent{Type: ProgressBatchStored, Shard: key, Page: page, Listings: len(records), Import: imported})
	}
	return nil
}

// pending returns the detail URLs of a page that still need fetching.
// URLs confirmed as stored are marked seen without a fetch.
func (c *Crawler) pending(ctx context.Context, state *propcrawl.ShardProgress, listings []propcrawl.SearchListing, result *ShardResult) []string {
	var urls []string
	queued := make(map[string]bool, len(listings))
	for _, l := range listings {
		u := l.DetailURL
		if state.Seen(u) || queued[u] {
			result.Skipped++
			continue
		}
		if c.isStored(ctx, u) {
			state.MarkSeen(u)
			result.Skipped++
			continue
		}
		queued[u] = true
		urls = append(urls, u)
	}
	return urls
}

func (c *Crawler) isStored(ctx context.Context, u string) bool {
	if c.Known == nil || !c.Known.Test(u) {
		return false
	}
	if c.Stored == nil {
		return true
	}
	ok, err := c.Stored.ListingURLExists(ctx, u)
	return err == nil && ok
}

type detailResult struct {
	url string
	rec *propcrawl.ListingRecord
	err error
}

// fetchBatch fetches and parses a batch of detail pages concurrently.
// It returns the parsed records in batch order and their detail URLs.
func (c *Crawler) fetchBatch(ctx context.Context, key string, page int, batch []string, result *ShardResult, progress ProgressFunc) ([]*propcrawl.ListingRecord, []string) {
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]detailResult, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, u := range batch {
		g.Go(func() error {
			rec, err := c.fetchListing(gctx, u, key, progress)
			results[i] = detailResult{url: u, rec: rec, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var records []*propcrawl.ListingRecord
	var urls []string
	for _, r := range results {
		if r.err != nil {
			if ctx.Err() != nil {
				continue
			}
			result.Failed = append(result.Failed, Failure{URL: r.url, Reason: r.err.Error()})
			emit(progress, ProgressEvent{Type: ProgressListingFailed, Shard: key, Page: page, URL: r.url, Error: r.err})
			continue
		}
		records = append(records, r.rec)
		urls = append(urls, r.url)
	}
	return records, urls
}

func (c *Crawler) fetchSearch(ctx context.Context, searchURL string, page int, key string, progress ProgressFunc) (*propcrawl.SearchResult, error) {
	html, err := c.fetch(ctx, searchURL, key, progress)
	if err != nil {
		return nil, err
	}
	state, err := c.Extractor.ExtractState(html)
	if err != nil {
		return nil, err
	}
	return c.Search.ParseSearch(state, page)
}

func (c *Crawler) fetchListing(ctx context.Context, detailURL, key string, progress ProgressFunc) (*propcrawl.ListingRecord, error) {
	html, err := c.fetch(ctx, detailURL, key, progress)
	if err != nil {
		return nil, err
	}
	state, err := c.Extractor.ExtractState(html)
	if err != nil {
		return nil, err
	}
	rec, err := c.Listings.ParseListing(state, detailURL)
	if err != nil {
		return nil, err
	}
	if c.Profiles != nil && c.ProfileURLs != nil {
		c.enrich(ctx, rec, key, progress)
	}
	return rec, nil
}

// enrich merges the property profile of rec's listing into rec.
func (c *Crawler) enrich(ctx context.Context, rec *propcrawl.ListingRecord, key string, progress ProgressFunc) {
	profileURL, ok := c.ProfileURLs.ProfileURL(rec.DetailURL)
	if !ok {
		return
	}
	profile, err := c.fetchProfile(ctx, profileURL, rec.DetailURL, key, progress)
	if err != nil {
		if ctx.Err() == nil {
			emit(progress, ProgressEvent{Type: ProgressProfileFailed, Shard: key, URL: profileURL, Error: err})
		}
		return
	}
	profile.ProfileURL = profileURL
	rec.MergeProfile(profile)
}

func (c *Crawler) fetchProfile(ctx context.Context, profileURL, detailURL, key string, progress ProgressFunc) (*propcrawl.ListingRecord, error) {
	html, err := c.fetch(ctx, profileURL, key, progress)
	if err != nil {
		return nil, err
	}
	state, err := c.Extractor.ExtractState(html)
	if err != nil {
		return nil, err
	}
	return c.Profiles.ParseProfile(state, detailURL)
}

// fetch rate limits by host and retries transient failures.
func (c *Crawler) fetch(ctx context.Context, rawURL, key string, progress ProgressFunc) (string, error) {
	fetchFn := func(ctx context.Context, u string) (string, error) {
		if c.RateLimiter != nil {
			if err := c.RateLimiter.Wait(ctx, hostOf(u)); err != nil {
				return "", err
			}
		}
		return c.Fetcher.Fetch(ctx, u)
	}
	onRetry := func(attempt int, err error) {
		emit(progress, ProgressEvent{Type: ProgressRetry, Shard: key, URL: rawURL, Attempt: attempt, Error: err})
	}
	return FetchWithRetryDelays(ctx, rawURL, fetchFn, onRetry, c.RetryDelays)
}

func (c *Crawler) finishShard(ctx context.Context, key string, progress ProgressFunc) error {
	if err := c.Progress.MarkComplete(ctx, key); err != nil {
		return fmt.Errorf("mark complete %s: %w", key, err)
	}
	emit(progress, ProgressEvent{Type: ProgressShardDone, Shard: key})
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func emit(progress ProgressFunc, event ProgressEvent) {
	if progress != nil {
		progress(event)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
