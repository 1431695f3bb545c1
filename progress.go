package propcrawl

import (
	"context"
	"sort"
)

// ShardProgress is the resumable state of one shard.
type ShardProgress struct {
	Key       string
	LastPage  int
	Completed bool
	SeenURLs  map[string]struct{}
}

// NewShardProgress returns the progress of a shard that has not started.
func NewShardProgress(key string) *ShardProgress {
	return &ShardProgress{
		Key:      key,
		LastPage: 1,
		SeenURLs: make(map[string]struct{}),
	}
}

// Seen reports whether the detail URL was already processed.
func (p *ShardProgress) Seen(url string) bool {
	_, ok := p.SeenURLs[url]
	return ok
}

// MarkSeen adds detail URLs to the seen set.
func (p *ShardProgress) MarkSeen(urls ...string) {
	if p.SeenURLs == nil {
		p.SeenURLs = make(map[string]struct{}, len(urls))
	}
	for _, u := range urls {
		p.SeenURLs[u] = struct{}{}
	}
}

// SortedSeenURLs returns the seen set in lexical order.
func (p *ShardProgress) SortedSeenURLs() []string {
	urls := make([]string, 0, len(p.SeenURLs))
	for u := range p.SeenURLs {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// ProgressStore persists crawl progress across restarts.
type ProgressStore interface {
	// Load returns the progress of a shard.
	// A shard never seen before starts at page 1 with an empty seen set.
	Load(ctx context.Context, key string) (*ShardProgress, error)

	// Save persists the page cursor and seen set of a shard.
	Save(ctx context.Context, progress *ShardProgress) error

	// MarkComplete records that a shard is exhausted.
	MarkComplete(ctx context.Context, key string) error

	// Completed returns the keys of completed shards.
	Completed(ctx context.Context) ([]string, error)

	// List returns the progress of every known shard ordered by key.
	List(ctx context.Context) ([]*ShardProgress, error)
}
