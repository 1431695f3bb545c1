package propcrawl

import (
	"math"
	"strings"
)

// Sentinels written when a required text field is absent.
const (
	Unknown      = "Unknown"
	NotSpecified = "Not Specified"
)

// RoundDistance rounds a school distance to two decimals.
func RoundDistance(d float64) float64 {
	return math.Round(d*100) / 100
}

// TransformSuburb builds the suburb a listing belongs to.
// Returns EINVALID when the record has no suburb name or postcode.
func TransformSuburb(rec *ListingRecord) (*Suburb, error) {
	s := &Suburb{
		Name:     rec.Suburb,
		Postcode: rec.Postcode,
		State:    rec.State,
	}
	if a := rec.Address; a != nil {
		override(&s.Name, a.SuburbName)
		override(&s.Postcode, a.Postcode)
		override(&s.State, a.State)
		s.Region = a.Region
		s.Area = a.Area
	}

	if ins := rec.Insights; ins != nil {
		s.ProfileURL = ins.ProfileURL
		s.Population = ins.Population
		s.AvgAgeRange = ins.AvgAge
		s.OwnerPercent = ins.Owners
		s.RenterPercent = ins.Renters
		s.FamilyPercent = ins.Families
		s.SinglePercent = ins.Singles
		s.MedianPrice = ins.MedianPrice
		s.MedianRent = ins.MedianRent
		s.AvgDaysOnMarket = ins.AvgDaysOnMarket
		s.EntryPrice = ins.EntryPrice
		s.LuxuryPrice = ins.LuxuryPrice
		s.SalesGrowth = ins.SalesGrowth
	}
	if ms := rec.MarketStats; ms != nil {
		s.PropertiesForRent = ms.ForRent()
		s.PropertiesForSale = ms.ForSale()
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Transform maps a listing record onto the property stored for it.
// Nested summary and address values take precedence over flattened ones.
func Transform(rec *ListingRecord, suburbID string) *Property {
	p := &Property{
		ID:                 rec.ID,
		SuburbID:           suburbID,
		Type:               rec.PropertyType,
		Category:           rec.Category,
		UnitNumber:         rec.UnitNumber,
		StreetNumber:       rec.StreetNumber,
		StreetName:         rec.Street,
		SuburbName:         rec.Suburb,
		Postcode:           rec.Postcode,
		State:              rec.State,
		ListingURL:         rec.ListingURL,
		DisplayPrice:       rec.Price,
		Description:        rec.Description,
		StructuredFeatures: rec.StructuredFeatures,
		MarketStats:        rec.MarketStats,
		SuburbInsights:     rec.Insights,
		SourceHash:         rec.SourceHash,
		ProfileURL:         rec.ProfileURL,
		Valuation:          rec.Valuation,
		SurroundingSuburbs: append([]string{}, rec.SurroundingSuburbs...),
	}
	beds, baths, parking := rec.Beds, rec.Baths, rec.Parking

	if s := rec.Summary; s != nil {
		if s.Beds != nil {
			beds = s.Beds
		}
		if s.Baths != nil {
			baths = s.Baths
		}
		if s.Parking != nil {
			parking = s.Parking
		}
		override(&p.DisplayPrice, s.Title)
		override(&p.Type, s.PropertyType)
		override(&p.DisplayAddress, s.Address)
		p.ListingStatus = s.Status
		p.ListingMode = s.Mode
		p.ListingMethod = s.Method
	}
	if a := rec.Address; a != nil {
		override(&p.DisplayAddress, a.DisplayAddress)
		override(&p.UnitNumber, a.UnitNumber)
		override(&p.StreetNumber, a.StreetNumber)
		override(&p.StreetName, joinNonEmpty(" ", a.StreetName, a.StreetType))
		override(&p.SuburbName, a.SuburbName)
		override(&p.Postcode, a.Postcode)
		override(&p.State, a.State)
	}
	if g := rec.Geo; g != nil {
		lat, lng := g.Latitude, g.Longitude
		p.Latitude, p.Longitude = &lat, &lng
	}

	p.Bedrooms = intOrZero(beds)
	p.Bathrooms = intOrZero(baths)
	p.ParkingSpaces = intOrZero(parking)
	p.LandArea = floatOrZero(rec.LandArea)
	p.InternalArea = floatOrZero(rec.InternalArea)

	if p.ListingURL == "" {
		p.ListingURL = rec.DetailURL
	}
	if p.DisplayAddress == "" {
		p.DisplayAddress = formatAddress(p)
	}
	defaultText(&p.Type, Unknown)
	defaultText(&p.Category, Unknown)
	defaultText(&p.ListingStatus, Unknown)
	defaultText(&p.DisplayPrice, NotSpecified)

	p.Images = append([]string{}, rec.Images...)
	p.Features = append([]string{}, rec.Features...)

	for _, sr := range rec.Schools {
		school := School{
			ID:             sr.ID,
			Name:           sr.Name,
			EducationLevel: sr.EducationLevel,
			YearRange:      sr.YearRange,
			Type:           sr.Type,
			Sector:         sr.Sector,
			Gender:         sr.Gender,
			State:          sr.State,
			Postcode:       sr.Postcode,
			SuburbID:       suburbID,
		}
		defaultText(&school.Type, Unknown)
		defaultText(&school.Sector, Unknown)
		defaultText(&school.Gender, Unknown)
		defaultText(&school.YearRange, NotSpecified)
		p.Schools = append(p.Schools, PropertySchool{School: school, Distance: RoundDistance(sr.Distance)})
	}

	for _, ev := range rec.Timeline {
		p.Events = append(p.Events, PropertyEvent{
			PropertyID:       rec.ID,
			Price:            ev.Price,
			Date:             ev.Date,
			Category:         ev.Category,
			Agency:           ev.Agency,
			DaysOnMarket:     ev.DaysOnMarket,
			PriceDescription: ev.PriceDescription,
		})
	}

	return p
}

// override replaces *dst with v when v is set.
func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func defaultText(dst *string, sentinel string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = sentinel
	}
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// formatAddress renders "2/10 Test Street, Testville NSW 2000" from address parts.
func formatAddress(p *Property) string {
	number := p.StreetNumber
	if p.UnitNumber != "" {
		number = joinNonEmpty("/", p.UnitNumber, p.StreetNumber)
	}
	street := joinNonEmpty(" ", number, p.StreetName)
	locality := joinNonEmpty(" ", p.SuburbName, p.State, p.Postcode)
	return joinNonEmpty(", ", street, locality)
}
