// Package domaincom parses domain.com.au search and listing pages and
// builds the URLs the crawler visits.
package domaincom

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/fwojciec/propcrawl"
)

// DefaultBaseURL is the portal origin.
const DefaultBaseURL = "https://www.domain.com.au"

// Default price-band ladder.
const (
	DefaultPriceStep = 50000
	DefaultPriceMax  = 12000000
)

// listingIDPattern matches the listing id suffix of a listing URL path.
var listingIDPattern = regexp.MustCompile(`-(\d{7,10})$`)

// Ensure URLBuilder implements the URL builder interfaces at compile time.
var (
	_ propcrawl.SearchURLBuilder  = (*URLBuilder)(nil)
	_ propcrawl.ProfileURLBuilder = (*URLBuilder)(nil)
)

// URLBuilder builds search URLs for sale listings.
type URLBuilder struct {
	BaseURL      string
	PropertyType string
	State        string
}

// NewURLBuilder returns a builder for established houses in NSW.
func NewURLBuilder(baseURL string) *URLBuilder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &URLBuilder{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		PropertyType: "house",
		State:        "nsw",
	}
}

// SearchURL returns the URL of the given results page of a shard.
// Suburb shards search within the suburb; other shards search a price band.
func (b *URLBuilder) SearchURL(shard propcrawl.Shard, page int) string {
	q := url.Values{}
	q.Set("ssubs", "0")
	q.Set("sort", "price-asc")
	q.Set("page", strconv.Itoa(page))

	if shard.Suburb != "" {
		return fmt.Sprintf("%s/sale/%s/?%s", b.BaseURL, url.PathEscape(shard.Suburb), q.Encode())
	}

	q.Set("ptype", b.PropertyType)
	q.Set("establishedtype", "established")
	q.Set("state", b.State)
	q.Set("price", fmt.Sprintf("%d-%d", shard.MinPrice, shard.MaxPrice))
	return fmt.Sprintf("%s/sale/?%s", b.BaseURL, q.Encode())
}

// ResolveURL makes a portal-relative path absolute.
func (b *URLBuilder) ResolveURL(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return b.BaseURL + "/" + strings.TrimLeft(ref, "/")
}

// PriceBandShards splits [0, max) into consecutive bands of the given width.
func PriceBandShards(step, max int) []propcrawl.Shard {
	if step <= 0 {
		step = DefaultPriceStep
	}
	var shards []propcrawl.Shard
	for lo := 0; lo < max; lo += step {
		hi := min(lo+step, max)
		shards = append(shards, PriceBandShard(lo, hi))
	}
	return shards
}

// PriceBandShard returns the shard for a single price band.
func PriceBandShard(lo, hi int) propcrawl.Shard {
	return propcrawl.Shard{
		Key:      fmt.Sprintf("%d-%d", lo, hi),
		MinPrice: lo,
		MaxPrice: hi,
	}
}

// SuburbShard returns the shard for a suburb slug such as "testville-nsw-2000".
func SuburbShard(slug string) propcrawl.Shard {
	return propcrawl.Shard{
		Key:    "suburb:" + slug,
		Suburb: slug,
	}
}

// ListingIDFromURL derives the listing id from the trailing digits of a listing URL.
func ListingIDFromURL(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}
	m := listingIDPattern.FindStringSubmatch(strings.TrimRight(path, "/"))
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ProfileURL returns the property profile page of a listing: the listing
// path without its id suffix under /property-profile/.
func (b *URLBuilder) ProfileURL(listingURL string) (string, bool) {
	u, err := url.Parse(listingURL)
	if err != nil {
		return "", false
	}
	path := strings.Trim(u.Path, "/")
	path = listingIDPattern.ReplaceAllString(path, "")
	if path == "" || strings.Contains(path, "/") {
		return "", false
	}
	return b.BaseURL + "/property-profile/" + path, true
}
