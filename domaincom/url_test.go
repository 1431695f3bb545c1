package domaincom_test

import (
	"net/url"
	"testing"

	"github.com/fwojciec/propcrawl/domaincom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLBuilder_SearchURL(t *testing.T) {
	t.Parallel()

	t.Run("builds a price band search", func(t *testing.T) {
		t.Parallel()

		b := domaincom.NewURLBuilder("")
		raw := b.SearchURL(domaincom.PriceBandShard(0, 50000), 3)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "www.domain.com.au", u.Host)
		assert.Equal(t, "/sale/", u.Path)
		q := u.Query()
		assert.Equal(t, "house", q.Get("ptype"))
		assert.Equal(t, "0-50000", q.Get("price"))
		assert.Equal(t, "established", q.Get("establishedtype"))
		assert.Equal(t, "0", q.Get("ssubs"))
		assert.Equal(t, "price-asc", q.Get("sort"))
		assert.Equal(t, "nsw", q.Get("state"))
		assert.Equal(t, "3", q.Get("page"))
	})

	t.Run("builds a suburb search", func(t *testing.T) {
		t.Parallel()

		b := domaincom.NewURLBuilder("http://localhost:8080/")
		raw := b.SearchURL(domaincom.SuburbShard("testville-nsw-2000"), 1)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "localhost:8080", u.Host)
		assert.Equal(t, "/sale/testville-nsw-2000/", u.Path)
		assert.Equal(t, "1", u.Query().Get("page"))
		assert.Empty(t, u.Query().Get("price"))
	})
}

func TestURLBuilder_ResolveURL(t *testing.T) {
	t.Parallel()

	b := domaincom.NewURLBuilder("https://www.domain.com.au")

	assert.Equal(t, "https://www.domain.com.au/1-test-st-2000123456", b.ResolveURL("/1-test-st-2000123456"))
	assert.Equal(t, "https://www.domain.com.au/1-test-st-2000123456", b.ResolveURL("1-test-st-2000123456"))
	assert.Equal(t, "https://other.example/x", b.ResolveURL("https://other.example/x"))
	assert.Empty(t, b.ResolveURL(""))
}

func TestPriceBandShards(t *testing.T) {
	t.Parallel()

	shards := domaincom.PriceBandShards(50000, 120000)

	require.Len(t, shards, 3)
	assert.Equal(t, "0-50000", shards[0].Key)
	assert.Equal(t, 50000, shards[1].MinPrice)
	assert.Equal(t, 100000, shards[1].MaxPrice)
	assert.Equal(t, "100000-120000", shards[2].Key)
}

func TestPriceBandShards_DefaultLadder(t *testing.T) {
	t.Parallel()

	shards := domaincom.PriceBandShards(domaincom.DefaultPriceStep, domaincom.DefaultPriceMax)

	assert.Len(t, shards, 240)
	assert.Equal(t, "11950000-12000000", shards[len(shards)-1].Key)
}

func TestListingIDFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		wantID int64
		wantOK bool
	}{
		{"absolute url", "https://www.domain.com.au/10-test-street-testville-nsw-2000-2019123456", 2019123456, true},
		{"relative path", "/5-example-road-sampleton-nsw-2001-1234567", 1234567, true},
		{"trailing slash", "https://www.domain.com.au/10-test-street-2019123456/", 2019123456, true},
		{"query ignored", "https://www.domain.com.au/10-test-street-2019123456?topspot=1", 2019123456, true},
		{"too short", "https://www.domain.com.au/10-test-street-2000", 0, false},
		{"no digits", "https://www.domain.com.au/sale/testville", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, ok := domaincom.ListingIDFromURL(tt.url)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestURLBuilder_ProfileURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		listing string
		want    string
		wantOK  bool
	}{
		{"strips the listing id", "https://www.domain.com.au/10-test-street-testville-nsw-2000-2019123456", "https://www.domain.com.au/property-profile/10-test-street-testville-nsw-2000", true},
		{"keeps the postcode", "/10-test-street-testville-nsw-2000/", "https://www.domain.com.au/property-profile/10-test-street-testville-nsw-2000", true},
		{"ignores the query", "https://www.domain.com.au/5-example-road-sampleton-nsw-2001-1234567?topspot=1", "https://www.domain.com.au/property-profile/5-example-road-sampleton-nsw-2001", true},
		{"rejects nested paths", "https://www.domain.com.au/project/abc-2019123456", "", false},
		{"rejects an empty path", "https://www.domain.com.au/", "", false},
	}

	b := domaincom.NewURLBuilder("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := b.ProfileURL(tt.listing)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
