package domaincom

import (
	"encoding/json"
	"sort"

	"github.com/fwojciec/propcrawl"
)

// DefaultPageSize is the number of listings the portal returns per search page.
const DefaultPageSize = 20

// Ensure SearchParser implements propcrawl.SearchParser at compile time.
var _ propcrawl.SearchParser = (*SearchParser)(nil)

// SearchParser parses the listingsMap of a search-results page.
type SearchParser struct {
	urls *URLBuilder
}

// NewSearchParser returns a parser that resolves listing paths against baseURL.
func NewSearchParser(baseURL string) *SearchParser {
	return &SearchParser{urls: NewURLBuilder(baseURL)}
}

type searchProps struct {
	ListingsMap map[string]struct {
		ListingType  string `json:"listingType"`
		ListingModel *struct {
			URL string `json:"url"`
		} `json:"listingModel"`
	} `json:"listingsMap"`
	PropertyCounts map[string]flexInt `json:"propertyCounts"`
	TotalListings  flexInt            `json:"totalListings"`
	TotalPages     flexInt            `json:"totalPages"`
	PageSize       flexInt            `json:"pageSize"`
}

// ParseSearch returns the listings on the page and whether more pages follow.
// Listings are ordered by id; entries without a URL are dropped.
func (p *SearchParser) ParseSearch(state json.RawMessage, page int) (*propcrawl.SearchResult, error) {
	raw, err := componentProps(state)
	if err != nil {
		return nil, err
	}

	var props searchProps
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, &propcrawl.ParseError{Kind: propcrawl.ParseUnexpectedShape, Err: err}
	}

	result := &propcrawl.SearchResult{Page: page}

	ids := make([]string, 0, len(props.ListingsMap))
	for id := range props.ListingsMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		item := props.ListingsMap[id]
		if item.ListingModel == nil || item.ListingModel.URL == "" {
			continue
		}
		result.Listings = append(result.Listings, propcrawl.SearchListing{
			ID:        id,
			Type:      item.ListingType,
			DetailURL: p.urls.ResolveURL(item.ListingModel.URL),
		})
	}

	if len(props.ListingsMap) == 0 {
		return result, nil
	}

	result.PageSize = DefaultPageSize
	if props.PageSize.set && props.PageSize.int() >= 0 {
		result.PageSize = props.PageSize.int()
	}

	switch {
	case len(props.PropertyCounts) > 0:
		for _, n := range props.PropertyCounts {
			result.Total += n.int()
		}
	case props.TotalListings.set:
		result.Total = props.TotalListings.int()
	case props.TotalPages.set:
		result.Total = props.TotalPages.int() * result.PageSize
	}

	result.HasMore = propcrawl.HasMorePages(result.Total, result.PageSize, page)
	return result, nil
}
