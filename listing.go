package propcrawl

import "encoding/json"

// Caps applied when parsing a listing.
const (
	MaxListingImages  = 5
	MaxListingSchools = 4
)

// ListingRecord is the intermediate form of a parsed listing detail page.
//
// Flattened fields mirror the top level of the payload. Summary and
// Address hold the nested structured forms when the payload carries
// them; Transform prefers the nested values.
type ListingRecord struct {
	ID           int64  `json:"id"`
	DetailURL    string `json:"detailUrl"`
	ListingURL   string `json:"listingUrl,omitempty"`
	PropertyType string `json:"propertyType,omitempty"`
	Category     string `json:"category,omitempty"`

	UnitNumber   string   `json:"unitNumber,omitempty"`
	StreetNumber string   `json:"streetNumber,omitempty"`
	Street       string   `json:"street,omitempty"`
	Suburb       string   `json:"suburb,omitempty"`
	Postcode     string   `json:"postcode,omitempty"`
	State        string   `json:"state,omitempty"`
	Beds         *int     `json:"beds,omitempty"`
	Baths        *int     `json:"baths,omitempty"`
	Parking      *int     `json:"parking,omitempty"`
	Price        string   `json:"price,omitempty"`
	LandArea     *float64 `json:"landArea,omitempty"`
	InternalArea *float64 `json:"internalArea,omitempty"`

	Summary *ListingSummary    `json:"summary,omitempty"`
	Address *StructuredAddress `json:"address,omitempty"`
	Geo     *Geolocation       `json:"geo,omitempty"`

	Features           []string        `json:"features"`
	StructuredFeatures json.RawMessage `json:"structuredFeatures,omitempty"`
	Description        string          `json:"description,omitempty"`
	Images             []string        `json:"images"`
	Schools            []SchoolRecord  `json:"schools"`
	Timeline           []TimelineEvent `json:"timeline"`
	Insights           *SuburbInsights `json:"suburbInsights,omitempty"`
	MarketStats        *MarketStats    `json:"marketStats,omitempty"`

	// Set from the property profile page when the crawl enriches listings.
	ProfileURL         string     `json:"profileUrl,omitempty"`
	Valuation          *Valuation `json:"valuation,omitempty"`
	SurroundingSuburbs []string   `json:"surroundingSuburbs,omitempty"`

	// SourceHash fingerprints the payload the record was parsed from.
	SourceHash string `json:"sourceHash,omitempty"`
}

// ListingSummary is the nested listingSummary object.
type ListingSummary struct {
	Beds         *int   `json:"beds,omitempty"`
	Baths        *int   `json:"baths,omitempty"`
	Parking      *int   `json:"parking,omitempty"`
	Title        string `json:"title,omitempty"`
	Status       string `json:"status,omitempty"`
	Mode         string `json:"mode,omitempty"`
	Method       string `json:"method,omitempty"`
	Address      string `json:"address,omitempty"`
	PropertyType string `json:"propertyType,omitempty"`
}

// StructuredAddress is the nested address object.
type StructuredAddress struct {
	DisplayAddress string `json:"displayAddress,omitempty"`
	UnitNumber     string `json:"unitNumber,omitempty"`
	StreetNumber   string `json:"streetNumber,omitempty"`
	StreetName     string `json:"streetName,omitempty"`
	StreetType     string `json:"streetType,omitempty"`
	SuburbName     string `json:"suburbName,omitempty"`
	Postcode       string `json:"postcode,omitempty"`
	State          string `json:"state,omitempty"`
	Region         string `json:"region,omitempty"`
	Area           string `json:"area,omitempty"`
}

// Geolocation is a latitude/longitude pair.
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SchoolRecord is a nearby school as reported on a listing.
// ID is zero when the portal did not supply one.
type SchoolRecord struct {
	ID             int64   `json:"id,omitempty"`
	Name           string  `json:"name,omitempty"`
	Type           string  `json:"type,omitempty"`
	Sector         string  `json:"sector,omitempty"`
	Gender         string  `json:"gender,omitempty"`
	EducationLevel string  `json:"educationLevel,omitempty"`
	YearRange      string  `json:"yearRange,omitempty"`
	State          string  `json:"state,omitempty"`
	Postcode       string  `json:"postcode,omitempty"`
	Distance       float64 `json:"distance"`
}

// Valuation is the portal's estimated price range for a property.
type Valuation struct {
	Lower      *float64 `json:"lower,omitempty"`
	Mid        *float64 `json:"mid,omitempty"`
	Upper      *float64 `json:"upper,omitempty"`
	Confidence string   `json:"confidence,omitempty"`
	Date       string   `json:"date,omitempty"`
}

// TimelineEvent is a major event from the listing's history.
type TimelineEvent struct {
	Price            float64 `json:"price"`
	Date             string  `json:"date,omitempty"`
	Agency           string  `json:"agency,omitempty"`
	Category         string  `json:"category,omitempty"`
	DaysOnMarket     int     `json:"daysOnMarket"`
	PriceDescription string  `json:"priceDescription,omitempty"`
}

// SuburbInsights holds the suburb aggregates shown on a listing.
type SuburbInsights struct {
	ProfileURL      string             `json:"profileUrl,omitempty"`
	Population      *int               `json:"population,omitempty"`
	AvgAge          string             `json:"avgAge,omitempty"`
	Owners          *float64           `json:"owners,omitempty"`
	Renters         *float64           `json:"renters,omitempty"`
	Families        *float64           `json:"families,omitempty"`
	Singles         *float64           `json:"singles,omitempty"`
	MedianPrice     *float64           `json:"medianPrice,omitempty"`
	MedianRent      *float64           `json:"medianRent,omitempty"`
	AvgDaysOnMarket *float64           `json:"avgDaysOnMarket,omitempty"`
	EntryPrice      *float64           `json:"entryPrice,omitempty"`
	LuxuryPrice     *float64           `json:"luxuryPrice,omitempty"`
	SalesGrowth     []SalesGrowthPoint `json:"salesGrowth,omitempty"`
}

// SalesGrowthPoint is one year of a suburb's sales history.
type SalesGrowthPoint struct {
	Year            string  `json:"year"`
	MedianSoldPrice float64 `json:"medianSoldPrice"`
	AnnualGrowth    float64 `json:"annualGrowth"`
	NumberSold      int     `json:"numberSold"`
	DaysOnMarket    int     `json:"daysOnMarket"`
}

// MarketStats holds rental and sale inventory counts for a suburb.
type MarketStats struct {
	HousesForRent     int `json:"housesForRent"`
	HousesForSale     int `json:"housesForSale"`
	UnitsForRent      int `json:"unitsForRent"`
	UnitsForSale      int `json:"unitsForSale"`
	TownhousesForRent int `json:"townhousesForRent"`
	TownhousesForSale int `json:"townhousesForSale"`
}

// ForRent returns the total rental inventory.
func (m MarketStats) ForRent() int {
	return m.HousesForRent + m.UnitsForRent + m.TownhousesForRent
}

// ForSale returns the total sale inventory.
func (m MarketStats) ForSale() int {
	return m.HousesForSale + m.UnitsForSale + m.TownhousesForSale
}

// ListingParser parses listing detail payloads.
type ListingParser interface {
	// ParseListing parses the embedded state of a detail page fetched from detailURL.
	// A payload with no derivable listing id yields a ParseMissingAnchor error.
	ParseListing(state json.RawMessage, detailURL string) (*ListingRecord, error)
}

// ProfileParser parses property profile payloads.
type ProfileParser interface {
	// ParseProfile parses the embedded state of the profile page of the
	// listing at detailURL. The listing id falls back to the id suffix of
	// detailURL; a profile with no derivable id yields ParseMissingAnchor.
	ParseProfile(state json.RawMessage, detailURL string) (*ListingRecord, error)
}

// ProfileURLBuilder maps a listing URL to its property profile page.
type ProfileURLBuilder interface {
	// ProfileURL reports false when no profile path can be derived.
	ProfileURL(listingURL string) (string, bool)
}

// MergeProfile copies the profile-only fields of p onto r and fills the
// sections the listing page left empty. Listing values are never replaced.
func (r *ListingRecord) MergeProfile(p *ListingRecord) {
	if p == nil {
		return
	}
	r.ProfileURL = p.ProfileURL
	r.Valuation = p.Valuation
	r.SurroundingSuburbs = p.SurroundingSuburbs

	fill(&r.PropertyType, p.PropertyType)
	fill(&r.Category, p.Category)
	if r.Beds == nil {
		r.Beds = p.Beds
	}
	if r.Baths == nil {
		r.Baths = p.Baths
	}
	if r.Parking == nil {
		r.Parking = p.Parking
	}
	if r.LandArea == nil {
		r.LandArea = p.LandArea
	}
	if r.InternalArea == nil {
		r.InternalArea = p.InternalArea
	}
	if r.Address == nil {
		r.Address = p.Address
	}
	if r.Geo == nil {
		r.Geo = p.Geo
	}
	if r.MarketStats == nil {
		r.MarketStats = p.MarketStats
	}
	if len(r.Images) == 0 && len(p.Images) > 0 {
		r.Images = p.Images
	}
	if len(r.Schools) == 0 && len(p.Schools) > 0 {
		r.Schools = p.Schools
	}
	if len(r.Timeline) == 0 && len(p.Timeline) > 0 {
		r.Timeline = p.Timeline
	}
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
