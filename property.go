package propcrawl

import (
	"context"
	"encoding/json"
	"time"
)

// Property is an imported listing. Its ID is the portal's listing id.
type Property struct {
	ID       int64
	SuburbID string

	Type     string
	Category string

	Bedrooms      int
	Bathrooms     int
	ParkingSpaces int
	LandArea      float64
	InternalArea  float64

	DisplayAddress string
	UnitNumber     string
	StreetNumber   string
	StreetName     string
	SuburbName     string
	Postcode       string
	State          string
	Latitude       *float64
	Longitude      *float64

	ListingURL    string
	ListingStatus string
	ListingMode   string
	ListingMethod string
	DisplayPrice  string

	Description        string
	Images             []string
	Features           []string
	StructuredFeatures json.RawMessage
	MarketStats        *MarketStats
	SuburbInsights     *SuburbInsights
	SourceHash         string

	ProfileURL         string
	Valuation          *Valuation
	SurroundingSuburbs []string

	Schools []PropertySchool
	Events  []PropertyEvent

	CreatedAt time.Time
}

// Validate returns an error if the property cannot be stored.
func (p *Property) Validate() error {
	if p.ID <= 0 {
		return Errorf(EINVALID, "property listing id required")
	}
	if p.SuburbID == "" {
		return Errorf(EINVALID, "property suburb required")
	}
	if p.ListingURL == "" {
		return Errorf(EINVALID, "property listing URL required")
	}
	return nil
}

// School is identified globally by the portal's school id.
type School struct {
	ID             int64
	Name           string
	EducationLevel string
	YearRange      string
	Type           string
	Sector         string
	Gender         string
	State          string
	Postcode       string
	SuburbID       string
}

// PropertySchool associates a school with a property at a given distance in kilometers.
type PropertySchool struct {
	School   School
	Distance float64
}

// PropertyEvent is an entry of a property's sale and rental history.
type PropertyEvent struct {
	ID               string
	PropertyID       int64
	Price            float64
	Date             string
	Category         string
	Agency           string
	DaysOnMarket     int
	PriceDescription string
}

// PropertyService provides read access to stored properties.
type PropertyService interface {
	// FindPropertyByID returns a property with its schools and events.
	// Returns ENOTFOUND if the property does not exist.
	FindPropertyByID(ctx context.Context, id int64) (*Property, error)

	// FindProperties returns properties matching the filter without relations.
	FindProperties(ctx context.Context, filter PropertyFilter) ([]*Property, error)

	// CountProperties returns the number of properties matching the filter.
	CountProperties(ctx context.Context, filter PropertyFilter) (int, error)

	// ListingURLExists reports whether a property with the listing URL is stored.
	ListingURLExists(ctx context.Context, url string) (bool, error)

	// ListingURLs returns the listing URLs of all stored properties.
	ListingURLs(ctx context.Context) ([]string, error)
}

// PropertyFilter represents a filter for FindProperties and CountProperties.
type PropertyFilter struct {
	SuburbID *string

	Offset int
	Limit  int
}
