package mock

import (
	"context"

	"github.com/fwojciec/propcrawl"
)

var (
	_ propcrawl.ListingSink     = (*ListingSink)(nil)
	_ propcrawl.ListingImporter = (*ListingImporter)(nil)
)

// ListingSink is a mock implementation of propcrawl.ListingSink.
type ListingSink struct {
	ImportListingsFn func(ctx context.Context, records []*propcrawl.ListingRecord) (*propcrawl.ImportResult, error)
}

func (s *ListingSink) ImportListings(ctx context.Context, records []*propcrawl.ListingRecord) (*propcrawl.ImportResult, error) {
	return s.ImportListingsFn(ctx, records)
}

// ListingImporter is a mock implementation of propcrawl.ListingImporter.
type ListingImporter struct {
	ImportListingsFn func(ctx context.Context, records []*propcrawl.ListingRecord) (*propcrawl.ImportResult, error)
	ImportListingFn  func(ctx context.Context, rec *propcrawl.ListingRecord) propcrawl.ImportOutcome
}

func (i *ListingImporter) ImportListings(ctx context.Context, records []*propcrawl.ListingRecord) (*propcrawl.ImportResult, error) {
	return i.ImportListingsFn(ctx, records)
}

func (i *ListingImporter) ImportListing(ctx context.Context, rec *propcrawl.ListingRecord) propcrawl.ImportOutcome {
	return i.ImportListingFn(ctx, rec)
}
