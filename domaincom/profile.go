package domaincom

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/propcrawl"
)

// Ensure ProfileParser implements propcrawl.ProfileParser at compile time.
var _ propcrawl.ProfileParser = (*ProfileParser)(nil)

// ProfileParser parses the Apollo state of a property profile page.
// Profiles live under props.pageProps, not componentProps.
type ProfileParser struct {
	urls *URLBuilder
}

// NewProfileParser returns a profile parser resolving links against baseURL.
func NewProfileParser(baseURL string) *ProfileParser {
	return &ProfileParser{urls: NewURLBuilder(baseURL)}
}

type profilePage struct {
	ApolloState map[string]json.RawMessage `json:"__APOLLO_STATE__"`
}

type profileProps struct {
	Type          flexString      `json:"type"`
	Category      flexString      `json:"category"`
	Bedrooms      flexInt         `json:"bedrooms"`
	Bathrooms     flexInt         `json:"bathrooms"`
	ParkingSpaces flexInt         `json:"parkingSpaces"`
	Address       json.RawMessage `json:"address"`
	Timeline      []timelineProps `json:"timeline"`

	Listings []struct {
		ListingID    flexInt    `json:"listingId"`
		SeoURL       flexString `json:"seoUrl"`
		Status       flexString `json:"status"`
		Type         flexString `json:"type"`
		PriceDetails *struct {
			DisplayPrice flexString `json:"displayPrice"`
		} `json:"priceDetails"`
	} `json:"listings"`

	Valuation *struct {
		LowerPrice      flexFloat  `json:"lowerPrice"`
		MidPrice        flexFloat  `json:"midPrice"`
		UpperPrice      flexFloat  `json:"upperPrice"`
		PriceConfidence flexString `json:"priceConfidence"`
		Date            flexString `json:"date"`
	} `json:"valuation"`

	Schools []struct {
		Distance flexFloat `json:"distance"`
		School   struct {
			ID             flexInt    `json:"id"`
			Name           flexString `json:"name"`
			SchoolType     flexString `json:"schoolType"`
			SchoolSector   flexString `json:"schoolSector"`
			Gender         flexString `json:"gender"`
			EducationLevel flexString `json:"educationLevel"`
			State          flexString `json:"state"`
			Postcode       flexString `json:"postCode"`
			Profile        *struct {
				YearRange flexString `json:"yearRange"`
			} `json:"profile"`
		} `json:"school"`
	} `json:"schools"`

	LocationProfile *struct {
		Data               marketProps `json:"data"`
		SurroundingSuburbs []struct {
			Name flexString `json:"name"`
		} `json:"surroundingSuburbs"`
	} `json:"locationProfile"`
}

// ParseProfile builds a ListingRecord from a property profile page state.
// The first Property entry of the Apollo state is used.
func (p *ProfileParser) ParseProfile(state json.RawMessage, detailURL string) (*propcrawl.ListingRecord, error) {
	page, err := pageProps(state)
	if err != nil {
		return nil, err
	}
	var pp profilePage
	if err := json.Unmarshal(page, &pp); err != nil {
		return nil, &propcrawl.ParseError{Kind: propcrawl.ParseUnexpectedShape, Err: err}
	}
	raw, ok := propertyEntry(pp.ApolloState)
	if !ok {
		return nil, &propcrawl.ParseError{
			Kind: propcrawl.ParseUnexpectedShape,
			Err:  errors.New("no Property entry in __APOLLO_STATE__"),
		}
	}

	var props profileProps
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, &propcrawl.ParseError{Kind: propcrawl.ParseUnexpectedShape, Err: err}
	}
	// Area and media keys carry GraphQL arguments, e.g. landArea({"unit":"SQUARE_METERS"}).
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &propcrawl.ParseError{Kind: propcrawl.ParseUnexpectedShape, Err: err}
	}

	rec := &propcrawl.ListingRecord{
		DetailURL:    detailURL,
		ListingURL:   detailURL,
		PropertyType: string(props.Type),
		Category:     string(props.Category),
		Beds:         props.Bedrooms.ptr(),
		Baths:        props.Bathrooms.ptr(),
		Parking:      props.ParkingSpaces.ptr(),
		LandArea:     argFloat(fields, "landArea"),
		InternalArea: argFloat(fields, "internalArea"),
		Features:     []string{},
		Images:       profileImages(argField(fields, "media")),
		Schools:      []propcrawl.SchoolRecord{},
		Timeline:     majorEvents(props.Timeline),
		SourceHash:   fmt.Sprintf("%x", xxhash.Sum64(raw)),
	}
	if u, ok := p.urls.ProfileURL(detailURL); ok {
		rec.ProfileURL = u
	}

	if len(props.Listings) > 0 {
		l := props.Listings[0]
		if l.ListingID.set && l.ListingID.int() > 0 {
			rec.ID = int64(l.ListingID.int())
		}
		if l.SeoURL != "" {
			rec.ListingURL = p.urls.ResolveURL(string(l.SeoURL))
		}
		rec.Summary = &propcrawl.ListingSummary{
			Status:       string(l.Status),
			PropertyType: string(l.Type),
		}
		if l.PriceDetails != nil {
			rec.Price = string(l.PriceDetails.DisplayPrice)
			rec.Summary.Title = rec.Price
		}
	}
	if rec.ID == 0 {
		id, ok := ListingIDFromURL(detailURL)
		if !ok {
			return nil, &propcrawl.ParseError{
				Kind: propcrawl.ParseMissingAnchor,
				Err:  fmt.Errorf("no listing id for profile of %s", detailURL),
			}
		}
		rec.ID = id
	}

	applyAddress(rec, props.Address)
	if a := rec.Address; a != nil {
		rec.Suburb = a.SuburbName
		rec.Postcode = a.Postcode
		rec.State = a.State
	}

	if v := props.Valuation; v != nil && (v.LowerPrice.set || v.MidPrice.set || v.UpperPrice.set) {
		rec.Valuation = &propcrawl.Valuation{
			Lower:      v.LowerPrice.ptr(),
			Mid:        v.MidPrice.ptr(),
			Upper:      v.UpperPrice.ptr(),
			Confidence: string(v.PriceConfidence),
			Date:       string(v.Date),
		}
	}

	for _, s := range props.Schools {
		if len(rec.Schools) == propcrawl.MaxListingSchools {
			break
		}
		school := propcrawl.SchoolRecord{
			Name:           string(s.School.Name),
			Type:           string(s.School.SchoolType),
			Sector:         string(s.School.SchoolSector),
			Gender:         string(s.School.Gender),
			EducationLevel: string(s.School.EducationLevel),
			State:          string(s.School.State),
			Postcode:       string(s.School.Postcode),
			Distance:       propcrawl.RoundDistance(s.Distance.value),
		}
		if s.School.ID.set && s.School.ID.int() > 0 {
			school.ID = int64(s.School.ID.int())
		}
		if pr := s.School.Profile; pr != nil {
			school.YearRange = string(pr.YearRange)
		}
		rec.Schools = append(rec.Schools, school)
	}

	if lp := props.LocationProfile; lp != nil {
		d := lp.Data
		rec.MarketStats = &propcrawl.MarketStats{
			HousesForRent:     d.HousesForRent.int(),
			HousesForSale:     d.HousesForSale.int(),
			UnitsForRent:      d.UnitsForRent.int(),
			UnitsForSale:      d.UnitsForSale.int(),
			TownhousesForRent: d.TownhousesForRent.int(),
			TownhousesForSale: d.TownhousesForSale.int(),
		}
		for _, s := range lp.SurroundingSuburbs {
			if name := strings.TrimSpace(string(s.Name)); name != "" {
				rec.SurroundingSuburbs = append(rec.SurroundingSuburbs, name)
			}
		}
	}

	return rec, nil
}

// propertyEntry returns the first Property:* entry in key order.
func propertyEntry(apollo map[string]json.RawMessage) (json.RawMessage, bool) {
	var keys []string
	for k := range apollo {
		if strings.HasPrefix(k, "Property:") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Strings(keys)
	raw := apollo[keys[0]]
	return raw, !isNull(raw)
}

// argField returns the field stored under name or under name with GraphQL arguments.
func argField(fields map[string]json.RawMessage, name string) json.RawMessage {
	if v, ok := fields[name]; ok {
		return v
	}
	var keys []string
	for k := range fields {
		if strings.HasPrefix(k, name+"(") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	return fields[keys[0]]
}

func argFloat(fields map[string]json.RawMessage, name string) *float64 {
	var f flexFloat
	if raw := argField(fields, name); raw != nil {
		_ = f.UnmarshalJSON(raw)
	}
	return f.ptr()
}

// profileImages returns up to MaxListingImages distinct media URLs.
func profileImages(raw json.RawMessage) []string {
	images := []string{}
	var media []struct {
		URL flexString `json:"url"`
	}
	if json.Unmarshal(raw, &media) != nil {
		return images
	}
	seen := make(map[string]bool)
	for _, m := range media {
		u := string(m.URL)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		images = append(images, u)
		if len(images) == propcrawl.MaxListingImages {
			break
		}
	}
	return images
}
