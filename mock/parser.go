package mock

import (
	"encoding/json"

	"github.com/fwojciec/propcrawl"
)

var (
	_ propcrawl.SearchParser      = (*SearchParser)(nil)
	_ propcrawl.SearchURLBuilder  = (*SearchURLBuilder)(nil)
	_ propcrawl.ListingParser     = (*ListingParser)(nil)
	_ propcrawl.ProfileParser     = (*ProfileParser)(nil)
	_ propcrawl.ProfileURLBuilder = (*ProfileURLBuilder)(nil)
)

// SearchParser is a mock implementation of propcrawl.SearchParser.
type SearchParser struct {
	ParseSearchFn func(state json.RawMessage, page int) (*propcrawl.SearchResult, error)
}

func (p *SearchParser) ParseSearch(state json.RawMessage, page int) (*propcrawl.SearchResult, error) {
	return p.ParseSearchFn(state, page)
}

// SearchURLBuilder is a mock implementation of propcrawl.SearchURLBuilder.
type SearchURLBuilder struct {
	SearchURLFn func(shard propcrawl.Shard, page int) string
}

func (b *SearchURLBuilder) SearchURL(shard propcrawl.Shard, page int) string {
	return b.SearchURLFn(shard, page)
}

// ListingParser is a mock implementation of propcrawl.ListingParser.
type ListingParser struct {
	ParseListingFn func(state json.RawMessage, detailURL string) (*propcrawl.ListingRecord, error)
}

func (p *ListingParser) ParseListing(state json.RawMessage, detailURL string) (*propcrawl.ListingRecord, error) {
	return p.ParseListingFn(state, detailURL)
}

// ProfileParser is a mock implementation of propcrawl.ProfileParser.
type ProfileParser struct {
	ParseProfileFn func(state json.RawMessage, detailURL string) (*propcrawl.ListingRecord, error)
}

func (p *ProfileParser) ParseProfile(state json.RawMessage, detailURL string) (*propcrawl.ListingRecord, error) {
	return p.ParseProfileFn(state, detailURL)
}

// ProfileURLBuilder is a mock implementation of propcrawl.ProfileURLBuilder.
type ProfileURLBuilder struct {
	ProfileURLFn func(listingURL string) (string, bool)
}

func (b *ProfileURLBuilder) ProfileURL(listingURL string) (string, bool) {
	return b.ProfileURLFn(listingURL)
}
