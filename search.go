package propcrawl

import "encoding/json"

// Shard is an independent partition of the crawl space: a price band or a suburb.
type Shard struct {
	// Key identifies the shard in the progress store.
	Key string

	// MinPrice and MaxPrice bound a price-band shard.
	MinPrice int
	MaxPrice int

	// Suburb is the portal slug of a suburb shard (e.g. "testville-nsw-2000").
	Suburb string
}

// SearchListing is one entry of a search-results page.
type SearchListing struct {
	ID        string
	Type      string
	DetailURL string
}

// SearchResult is the parsed content of a search-results page.
type SearchResult struct {
	Listings []SearchListing
	Page     int
	PageSize int
	Total    int
	HasMore  bool
}

// SearchParser parses search-results payloads.
type SearchParser interface {
	// ParseSearch parses the embedded state of the given search page.
	ParseSearch(state json.RawMessage, page int) (*SearchResult, error)
}

// SearchURLBuilder builds the search page URL for a shard.
type SearchURLBuilder interface {
	SearchURL(shard Shard, page int) string
}

// HasMorePages reports whether results exist beyond page.
// A zero page size means the result set is empty.
func HasMorePages(total, pageSize, page int) bool {
	if pageSize <= 0 {
		return false
	}
	return page*pageSize < total
}
