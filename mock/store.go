package mock

import (
	"context"

	"github.com/fwojciec/propcrawl"
)

var (
	_ propcrawl.SuburbService   = (*SuburbService)(nil)
	_ propcrawl.PropertyService = (*PropertyService)(nil)
)

// SuburbService is a mock implementation of propcrawl.SuburbService.
type SuburbService struct {
	FindSuburbByKeyFn func(ctx context.Context, name, postcode string) (*propcrawl.Suburb, error)
	FindSuburbsFn     func(ctx context.Context, filter propcrawl.SuburbFilter) ([]*propcrawl.Suburb, error)
}

func (s *SuburbService) FindSuburbByKey(ctx context.Context, name, postcode string) (*propcrawl.Suburb, error) {
	return s.FindSuburbByKeyFn(ctx, name, postcode)
}

func (s *SuburbService) FindSuburbs(ctx context.Context, filter propcrawl.SuburbFilter) ([]*propcrawl.Suburb, error) {
	return s.FindSuburbsFn(ctx, filter)
}

// PropertyService is a mock implementation of propcrawl.PropertyService.
type PropertyService struct {
	FindPropertyByIDFn func(ctx context.Context, id int64) (*propcrawl.Property, error)
	FindPropertiesFn   func(ctx context.Context, filter propcrawl.PropertyFilter) ([]*propcrawl.Property, error)
	CountPropertiesFn  func(ctx context.Context, filter propcrawl.PropertyFilter) (int, error)
	ListingURLExistsFn func(ctx context.Context, url string) (bool, error)
	ListingURLsFn      func(ctx context.Context) ([]string, error)
}

func (s *PropertyService) FindPropertyByID(ctx context.Context, id int64) (*propcrawl.Property, error) {
	return s.FindPropertyByIDFn(ctx, id)
}

func (s *PropertyService) FindProperties(ctx context.Context, filter propcrawl.PropertyFilter) ([]*propcrawl.Property, error) {
	return s.FindPropertiesFn(ctx, filter)
}

func (s *PropertyService) CountProperties(ctx context.Context, filter propcrawl.PropertyFilter) (int, error) {
	return s.CountPropertiesFn(ctx, filter)
}

func (s *PropertyService) ListingURLExists(ctx context.Context, url string) (bool, error) {
	return s.ListingURLExistsFn(ctx, url)
}

func (s *PropertyService) ListingURLs(ctx context.Context) ([]string, error) {
	return s.ListingURLsFn(ctx)
}
