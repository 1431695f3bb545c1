// Package bloom provides a probabilistic set of listing URLs that the
// crawler consults before fetching a detail page.
package bloom

import (
	"context"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/propcrawl"
)

// Default sizing for a filter seeded from the database.
const (
	DefaultCapacity = 200_000
	DefaultFPRate   = 0.001
)

// Ensure Filter implements propcrawl.URLFilter.
var _ propcrawl.URLFilter = (*Filter)(nil)

// Filter is a concurrency-safe Bloom filter of listing URLs.
type Filter struct {
	mu sync.RWMutex
	f  *bloom.BloomFilter
}

// NewFilter creates a new Bloom filter sized for n expected items
// with the given false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Add adds a URL to the filter.
func (f *Filter) Add(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.f.AddString(url)
}

// Test returns true if the URL might be in the filter.
// False positives are possible; false negatives are not.
func (f *Filter) Test(url string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.f.TestString(url)
}

// EstimatedCount returns the approximate number of items in the filter.
func (f *Filter) EstimatedCount() uint {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return uint(f.f.ApproximatedSize())
}

// URLLister lists the listing URLs already stored.
type URLLister interface {
	ListingURLs(ctx context.Context) ([]string, error)
}

// Load builds a filter holding every URL returned by lister. The filter is
// sized for at least DefaultCapacity items.
func Load(ctx context.Context, lister URLLister) (*Filter, error) {
	urls, err := lister.ListingURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored urls: %w", err)
	}
	n := uint(len(urls)) * 2
	if n < DefaultCapacity {
		n = DefaultCapacity
	}
	f := NewFilter(n, DefaultFPRate)
	for _, u := range urls {
		f.Add(u)
	}
	return f, nil
}
