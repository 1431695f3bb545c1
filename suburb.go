package propcrawl

import (
	"context"
	"time"
)

// Suburb is a locality identified by its name and postcode.
type Suburb struct {
	ID       string
	Name     string
	Postcode string
	State    string
	Region   string
	Area     string

	ProfileURL        string
	PropertiesForRent int
	PropertiesForSale int

	Population      *int
	AvgAgeRange     string
	OwnerPercent    *float64
	RenterPercent   *float64
	FamilyPercent   *float64
	SinglePercent   *float64
	MedianPrice     *float64
	MedianRent      *float64
	AvgDaysOnMarket *float64
	EntryPrice      *float64
	LuxuryPrice     *float64
	SalesGrowth     []SalesGrowthPoint

	CreatedAt time.Time
}

// Validate returns an error if the suburb lacks its natural key.
func (s *Suburb) Validate() error {
	if s.Name == "" {
		return Errorf(EINVALID, "suburb name required")
	}
	if s.Postcode == "" {
		return Errorf(EINVALID, "suburb postcode required")
	}
	return nil
}

// SuburbService provides read access to stored suburbs.
type SuburbService interface {
	// FindSuburbByKey returns the suburb with the given natural key.
	// Returns ENOTFOUND if no such suburb exists.
	FindSuburbByKey(ctx context.Context, name, postcode string) (*Suburb, error)

	// FindSuburbs returns suburbs matching the filter, ordered by name.
	FindSuburbs(ctx context.Context, filter SuburbFilter) ([]*Suburb, error)
}

// SuburbFilter represents a filter for FindSuburbs.
type SuburbFilter struct {
	State *string

	Offset int
	Limit  int
}
