package crawl_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/fwojciec/propcrawl"
	"github.com/fwojciec/propcrawl/crawl"
	"github.com/fwojciec/propcrawl/domaincom"
	"github.com/fwojciec/propcrawl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryProgress is an in-memory progress store that records every save.
type memoryProgress struct {
	mu        sync.Mutex
	shards    map[string]*propcrawl.ShardProgress
	completed map[string]bool
	saves     []propcrawl.ShardProgress
}

func newMemoryProgress() *memoryProgress {
	return &memoryProgress{
		shards:    make(map[string]*propcrawl.ShardProgress),
		completed: make(map[string]bool),
	}
}

func (m *memoryProgress) store() *mock.ProgressStore {
	return &mock.ProgressStore{
		LoadFn: func(_ context.Context, key string) (*propcrawl.ShardProgress, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			p := propcrawl.NewShardProgress(key)
			if saved, ok := m.shards[key]; ok {
				p.LastPage = saved.LastPage
				p.MarkSeen(saved.SortedSeenURLs()...)
			}
			p.Completed = m.completed[key]
			return p, nil
		},
		SaveFn: func(_ context.Context, p *propcrawl.ShardProgress) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			cp := propcrawl.NewShardProgress(p.Key)
			cp.LastPage = p.LastPage
			cp.MarkSeen(p.SortedSeenURLs()...)
			m.shards[p.Key] = cp
			m.saves = append(m.saves, *cp)
			return nil
		},
		MarkCompleteFn: func(_ context.Context, key string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.completed[key] = true
			return nil
		},
		CompletedFn: func(context.Context) ([]string, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			var keys []string
			for k := range m.completed {
				keys = append(keys, k)
			}
			return keys, nil
		},
	}
}

// site serves search pages and detail pages from memory. The fetched body
// is the URL itself, which the extractor passes through as a JSON string.
type site struct {
	mu      sync.Mutex
	pages   map[int][]string
	total   int
	fetched []string
	fail    map[string]error
}

func (s *site) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, u string) (string, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.fetched = append(s.fetched, u)
			if err, ok := s.fail[u]; ok {
				return "", err
			}
			return u, nil
		},
	}
}

func (s *site) fetchedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

func (s *site) crawler(progress propcrawl.ProgressStore, sink propcrawl.ListingSink) *crawl.Crawler {
	return &crawl.Crawler{
		Fetcher: s.fetcher(),
		Extractor: &mock.StateExtractor{
			ExtractStateFn: func(html string) (json.RawMessage, error) {
				return json.RawMessage(strconv.Quote(html)), nil
			},
		},
		Search: &mock.SearchParser{
			ParseSearchFn: func(_ json.RawMessage, page int) (*propcrawl.SearchResult, error) {
				res := &propcrawl.SearchResult{Page: page, PageSize: 2, Total: s.total}
				for _, u := range s.pages[page] {
					res.Listings = append(res.Listings, propcrawl.SearchListing{DetailURL: u})
				}
				res.HasMore = propcrawl.HasMorePages(res.Total, res.PageSize, page)
				return res, nil
			},
		},
		Listings: &mock.ListingParser{
			ParseListingFn: func(state json.RawMessage, detailURL string) (*propcrawl.ListingRecord, error) {
				id, _ := domaincom.ListingIDFromURL(detailURL)
				return &propcrawl.ListingRecord{ID: id, DetailURL: detailURL}, nil
			},
		},
		URLs: &mock.SearchURLBuilder{
			SearchURLFn: func(shard propcrawl.Shard, page int) string {
				return fmt.Sprintf("https://www.domain.com.au/sale/?key=%s&page=%d", shard.Key, page)
			},
		},
		Progress:    progress,
		Sink:        sink,
		Concurrency: 2,
		BatchSize:   2,
	}
}

// recordingSink accepts every record and remembers the batches it saw.
type recordingSink struct {
	mu      sync.Mutex
	batches [][]*propcrawl.ListingRecord
}

func (r *recordingSink) sink() *mock.ListingSink {
	return &mock.ListingSink{
		ImportListingsFn: func(_ context.Context, records []*propcrawl.ListingRecord) (*propcrawl.ImportResult, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.batches = append(r.batches, records)
			return &propcrawl.ImportResult{Imported: len(records)}, nil
		},
	}
}

func (r *recordingSink) urls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var urls []string
	for _, b := range r.batches {
		for _, rec := range b {
			urls = append(urls, rec.DetailURL)
		}
	}
	return urls
}

func detail(n int) string {
	return fmt.Sprintf("https://www.domain.com.au/%d-test-street-testville-nsw-2000-20190000%02d", n, n)
}

func TestCrawler_CrawlShard(t *testing.T) {
	t.Parallel()

	shard := propcrawl.Shard{Key: "0-50000", MaxPrice: 50000}

	t.Run("walks every page and completes the shard", func(t *testing.T) {
		t.Parallel()

		s := &site{
			pages: map[int][]string{1: {detail(1), detail(2)}, 2: {detail(3), detail(4)}, 3: {detail(5)}},
			total: 5,
		}
		mp := newMemoryProgress()
		rs := &recordingSink{}

		result, err := s.crawler(mp.store(), rs.sink()).CrawlShard(context.Background(), shard, nil)

		require.NoError(t, err)
		assert.Equal(t, 3, result.Pages)
		assert.Equal(t, 5, result.Import.Imported)
		assert.Equal(t, 3, result.LastPage)
		assert.ElementsMatch(t, []string{detail(1), detail(2), detail(3), detail(4), detail(5)}, rs.urls())
		assert.True(t, mp.completed[shard.Key])
		assert.Equal(t, 3, mp.shards[shard.Key].LastPage)
	})

	t.Run("resumes at the saved page and skips seen URLs", func(t *testing.T) {
		t.Parallel()

		u1, u2, u3 := detail(1), detail(2), detail(3)
		s := &site{
			pages: map[int][]string{1: {detail(7)}, 2: {detail(8)}, 3: {u1, u2, u3}},
			total: 5,
		}
		mp := newMemoryProgress()
		saved := propcrawl.NewShardProgress(shard.Key)
		saved.LastPage = 3
		saved.MarkSeen(u1, u2)
		mp.shards[shard.Key] = saved
		rs := &recordingSink{}

		result, err := s.crawler(mp.store(), rs.sink()).CrawlShard(context.Background(), shard, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Pages)
		assert.Equal(t, 2, result.Skipped)
		assert.Equal(t, []string{u3}, rs.urls())

		fetched := s.fetchedURLs()
		assert.Equal(t, "https://www.domain.com.au/sale/?key=0-50000&page=3", fetched[0])
		assert.NotContains(t, fetched, u1)
		assert.NotContains(t, fetched, u2)
		assert.NotContains(t, fetched, detail(7))
	})

	t.Run("saves progress only after the sink returns", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[int][]string{1: {detail(1), detail(2), detail(3)}}, total: 2}
		mp := newMemoryProgress()
		var savesAtSink []int
		sink := &mock.ListingSink{
			ImportListingsFn: func(_ context.Context, records []*propcrawl.ListingRecord) (*propcrawl.ImportResult, error) {
				mp.mu.Lock()
				savesAtSink = append(savesAtSink, len(mp.saves))
				mp.mu.Unlock()
				return &propcrawl.ImportResult{Imported: len(records)}, nil
			},
		}

		_, err := s.crawler(mp.store(), sink).CrawlShard(context.Background(), shard, nil)

		require.NoError(t, err)
		require.Equal(t, []int{0, 1}, savesAtSink)
		require.Len(t, mp.saves, 2)
		assert.Len(t, mp.saves[0].SeenURLs, 2)
		assert.Len(t, mp.saves[1].SeenURLs, 3)
		assert.Equal(t, 1, mp.saves[1].LastPage)
	})

	t.Run("ends the shard when the search page fails", func(t *testing.T) {
		t.Parallel()

		searchURL := "https://www.domain.com.au/sale/?key=0-50000&page=1"
		s := &site{
			pages: map[int][]string{1: {detail(1)}},
			fail:  map[string]error{searchURL: &propcrawl.FetchError{Kind: propcrawl.FetchStatus, URL: searchURL, StatusCode: 403}},
		}
		mp := newMemoryProgress()
		rs := &recordingSink{}

		result, err := s.crawler(mp.store(), rs.sink()).CrawlShard(context.Background(), shard, nil)

		require.NoError(t, err)
		var ferr *propcrawl.FetchError
		require.ErrorAs(t, result.Err, &ferr)
		assert.Equal(t, 403, ferr.StatusCode)
		assert.True(t, mp.completed[shard.Key])
		assert.Empty(t, rs.urls())
	})

	t.Run("reports detail failures without stopping", func(t *testing.T) {
		t.Parallel()

		s := &site{
			pages: map[int][]string{1: {detail(1), detail(2)}},
			total: 2,
			fail:  map[string]error{detail(1): &propcrawl.FetchError{Kind: propcrawl.FetchStatus, URL: detail(1), StatusCode: 404}},
		}
		mp := newMemoryProgress()
		rs := &recordingSink{}
		var events []crawl.ProgressEvent
		var mu sync.Mutex
		progress := func(e crawl.ProgressEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
		}

		result, err := s.crawler(mp.store(), rs.sink()).CrawlShard(context.Background(), shard, progress)

		require.NoError(t, err)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, detail(1), result.Failed[0].URL)
		assert.Contains(t, result.Failed[0].Reason, "HTTP 404")
		assert.Equal(t, []string{detail(2)}, rs.urls())
		assert.False(t, mp.shards[shard.Key].Seen(detail(1)))
		assert.True(t, mp.shards[shard.Key].Seen(detail(2)))

		var types []crawl.ProgressType
		for _, e := range events {
			types = append(types, e.Type)
		}
		assert.Contains(t, types, crawl.ProgressListingFailed)
		assert.Equal(t, crawl.ProgressShardDone, types[len(types)-1])
	})

	t.Run("returns immediately for a completed shard", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[int][]string{1: {detail(1)}}, total: 1}
		mp := newMemoryProgress()
		mp.completed[shard.Key] = true

		result, err := s.crawler(mp.store(), (&recordingSink{}).sink()).CrawlShard(context.Background(), shard, nil)

		require.NoError(t, err)
		assert.True(t, result.AlreadyComplete)
		assert.Empty(t, s.fetchedURLs())
	})

	t.Run("skips listings confirmed as stored", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[int][]string{1: {detail(1), detail(2)}}, total: 2}
		mp := newMemoryProgress()
		rs := &recordingSink{}
		c := s.crawler(mp.store(), rs.sink())
		c.Known = &mock.URLFilter{
			AddFn:  func(string) {},
			TestFn: func(string) bool { return true },
		}
		c.Stored = &mock.PropertyService{
			ListingURLExistsFn: func(_ context.Context, u string) (bool, error) {
				return u == detail(1), nil
			},
		}

		result, err := c.CrawlShard(context.Background(), shard, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Skipped)
		assert.Equal(t, []string{detail(2)}, rs.urls())
		assert.True(t, mp.shards[shard.Key].Seen(detail(1)))
	})

	t.Run("stops on sink errors", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[int][]string{1: {detail(1)}}, total: 1}
		mp := newMemoryProgress()
		sink := &mock.ListingSink{
			ImportListingsFn: func(context.Context, []*propcrawl.ListingRecord) (*propcrawl.ImportResult, error) {
				return nil, errors.New("disk full")
			},
		}

		_, err := s.crawler(mp.store(), sink).CrawlShard(context.Background(), shard, nil)

		require.Error(t, err)
		assert.Empty(t, mp.saves)
		assert.False(t, mp.completed[shard.Key])
	})

	t.Run("cancellation keeps progress of finished batches", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[int][]string{1: {detail(1), detail(2), detail(3), detail(4)}}, total: 4}
		mp := newMemoryProgress()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		calls := 0
		sink := &mock.ListingSink{
			ImportListingsFn: func(_ context.Context, records []*propcrawl.ListingRecord) (*propcrawl.ImportResult, error) {
				calls++
				if calls == 2 {
					cancel()
				}
				return &propcrawl.ImportResult{Imported: len(records)}, nil
			},
		}

		_, err := s.crawler(mp.store(), sink).CrawlShard(ctx, shard, nil)

		require.ErrorIs(t, err, context.Canceled)
		require.Len(t, mp.saves, 1)
		assert.ElementsMatch(t, []string{detail(1), detail(2)}, mp.saves[0].SeenURLs)
		assert.False(t, mp.completed[shard.Key])
	})

	t.Run("does not mark a batch seen when the sink stops on cancellation", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[int][]string{1: {detail(1), detail(2)}}, total: 2}
		mp := newMemoryProgress()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sink := &mock.ListingSink{
			ImportListingsFn: func(context.Context, []*propcrawl.ListingRecord) (*propcrawl.ImportResult, error) {
				cancel()
				return &propcrawl.ImportResult{}, nil
			},
		}

		result, err := s.crawler(mp.store(), sink).CrawlShard(ctx, shard, nil)

		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, result.Import.Imported)
		assert.Empty(t, mp.saves)
		assert.NotContains(t, mp.shards, shard.Key)
		assert.False(t, mp.completed[shard.Key])
	})

	t.Run("continues past a page whose listings were all dropped", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[int][]string{1: nil, 2: {detail(1), detail(2)}}, total: 4}
		mp := newMemoryProgress()
		rs := &recordingSink{}

		result, err := s.crawler(mp.store(), rs.sink()).CrawlShard(context.Background(), shard, nil)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Pages)
		assert.Equal(t, []string{detail(1), detail(2)}, rs.urls())
		assert.True(t, mp.completed[shard.Key])
	})

	t.Run("enriches listings with their profile pages", func(t *testing.T) {
		t.Parallel()

		profileOf := func(u string) string { return u + "/profile" }
		s := &site{
			pages: map[int][]string{1: {detail(1), detail(2)}},
			total: 2,
			fail:  map[string]error{profileOf(detail(2)): &propcrawl.FetchError{Kind: propcrawl.FetchStatus, URL: profileOf(detail(2)), StatusCode: 404}},
		}
		mp := newMemoryProgress()
		rs := &recordingSink{}
		c := s.crawler(mp.store(), rs.sink())
		c.ProfileURLs = &mock.ProfileURLBuilder{
			ProfileURLFn: func(listingURL string) (string, bool) { return profileOf(listingURL), true },
		}
		c.Profiles = &mock.ProfileParser{
			ParseProfileFn: func(state json.RawMessage, detailURL string) (*propcrawl.ListingRecord, error) {
				mid := 1000000.0
				return &propcrawl.ListingRecord{Valuation: &propcrawl.Valuation{Mid: &mid}, SurroundingSuburbs: []string{"Sampleton"}}, nil
			},
		}
		var mu sync.Mutex
		var profileFailures []string
		progress := func(e crawl.ProgressEvent) {
			if e.Type == crawl.ProgressProfileFailed {
				mu.Lock()
				defer mu.Unlock()
				profileFailures = append(profileFailures, e.URL)
			}
		}

		result, err := c.CrawlShard(context.Background(), shard, progress)

		require.NoError(t, err)
		assert.Empty(t, result.Failed, "a missing profile keeps the listing")
		assert.Equal(t, []string{profileOf(detail(2))}, profileFailures)
		require.Len(t, rs.batches, 1)
		byURL := make(map[string]*propcrawl.ListingRecord)
		for _, rec := range rs.batches[0] {
			byURL[rec.DetailURL] = rec
		}
		require.Contains(t, byURL, detail(1))
		enriched := byURL[detail(1)]
		require.NotNil(t, enriched.Valuation)
		assert.Equal(t, profileOf(detail(1)), enriched.ProfileURL)
		assert.Equal(t, []string{"Sampleton"}, enriched.SurroundingSuburbs)
		require.Contains(t, byURL, detail(2))
		assert.Nil(t, byURL[detail(2)].Valuation)
		assert.Contains(t, s.fetchedURLs(), profileOf(detail(1)))
	})

	t.Run("rate limits every fetch by host", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[int][]string{1: {detail(1)}}, total: 1}
		mp := newMemoryProgress()
		var mu sync.Mutex
		var hosts []string
		c := s.crawler(mp.store(), (&recordingSink{}).sink())
		c.RateLimiter = &mock.DomainLimiter{
			WaitFn: func(_ context.Context, domain string) error {
				mu.Lock()
				defer mu.Unlock()
				hosts = append(hosts, domain)
				return nil
			},
		}

		_, err := c.CrawlShard(context.Background(), shard, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"www.domain.com.au", "www.domain.com.au"}, hosts)
	})
}

func TestCrawler_Crawl(t *testing.T) {
	t.Parallel()

	t.Run("skips completed shards", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[int][]string{1: {detail(1)}}, total: 1}
		mp := newMemoryProgress()
		mp.completed["a"] = true
		rs := &recordingSink{}
		var skipped []string
		progress := func(e crawl.ProgressEvent) {
			if e.Type == crawl.ProgressShardSkipped {
				skipped = append(skipped, e.Shard)
			}
		}

		result, err := s.crawler(mp.store(), rs.sink()).Crawl(context.Background(), []propcrawl.Shard{{Key: "a"}, {Key: "b"}}, progress)

		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, skipped)
		require.Len(t, result.Shards, 1)
		assert.Equal(t, "b", result.Shards[0].Key)
		assert.Equal(t, 1, result.Import.Imported)
		assert.True(t, mp.completed["b"])
	})

	t.Run("stops when the context is canceled", func(t *testing.T) {
		t.Parallel()

		s := &site{pages: map[int][]string{1: {detail(1)}}, total: 1}
		mp := newMemoryProgress()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.crawler(mp.store(), (&recordingSink{}).sink()).Crawl(ctx, []propcrawl.Shard{{Key: "a"}}, nil)

		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, s.fetchedURLs())
	})
}
