package domaincom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/propcrawl"
)

// Ensure ListingParser implements propcrawl.ListingParser at compile time.
var _ propcrawl.ListingParser = (*ListingParser)(nil)

// ListingParser parses the componentProps of a listing detail page.
type ListingParser struct {
	urls      *URLBuilder
	converter propcrawl.Converter
}

// NewListingParser returns a listing parser. The converter turns the HTML
// description into Markdown; when nil the description is kept as is.
func NewListingParser(baseURL string, converter propcrawl.Converter) *ListingParser {
	return &ListingParser{urls: NewURLBuilder(baseURL), converter: converter}
}

type listingProps struct {
	ListingID    flexInt    `json:"listingId"`
	ListingURL   flexString `json:"listingUrl"`
	UnitNumber   flexString `json:"unitNumber"`
	StreetNumber flexString `json:"streetNumber"`
	Street       flexString `json:"street"`
	Suburb       flexString `json:"suburb"`
	Postcode     flexString `json:"postcode"`
	State        flexString `json:"state"`
	PropertyType flexString `json:"propertyType"`
	Category     flexString `json:"category"`
	Beds         flexInt    `json:"beds"`
	Baths        flexInt    `json:"baths"`
	Parking      flexInt    `json:"parking"`
	Price        flexString `json:"price"`
	LandArea     flexFloat  `json:"landArea"`
	InternalArea flexFloat  `json:"internalArea"`

	ListingSummary *struct {
		Beds         flexInt    `json:"beds"`
		Baths        flexInt    `json:"baths"`
		Parking      flexInt    `json:"parking"`
		Title        flexString `json:"title"`
		Status       flexString `json:"status"`
		Mode         flexString `json:"mode"`
		Method       flexString `json:"method"`
		Address      flexString `json:"address"`
		PropertyType flexString `json:"propertyType"`
	} `json:"listingSummary"`

	// Address is an object on property profiles and a plain string elsewhere.
	Address json.RawMessage `json:"address"`

	Map *struct {
		Latitude  flexFloat `json:"latitude"`
		Longitude flexFloat `json:"longitude"`
	} `json:"map"`

	Features           json.RawMessage `json:"features"`
	StructuredFeatures json.RawMessage `json:"structuredFeatures"`
	Description        json.RawMessage `json:"description"`

	Gallery struct {
		Slides []struct {
			Images struct {
				Original struct {
					URL flexString `json:"url"`
				} `json:"original"`
			} `json:"images"`
		} `json:"slides"`
	} `json:"gallery"`

	SchoolCatchment struct {
		Schools []schoolProps `json:"schools"`
	} `json:"schoolCatchment"`
	Schools []schoolProps `json:"schools"`

	Timeline        []timelineProps `json:"timeline"`
	SuburbInsights  *insightsProps  `json:"suburbInsights"`
	LocationProfile *struct {
		Data marketProps `json:"data"`
	} `json:"locationProfile"`
}

type addressProps struct {
	DisplayAddress flexString `json:"displayAddress"`
	UnitNumber     flexString `json:"unitNumber"`
	StreetNumber   flexString `json:"streetNumber"`
	StreetName     flexString `json:"streetName"`
	StreetType     flexString `json:"streetTypeLong"`
	SuburbName     flexString `json:"suburbName"`
	Postcode       flexString `json:"postcode"`
	State          flexString `json:"state"`
	Suburb         *struct {
		Name   flexString `json:"name"`
		Region flexString `json:"region"`
		Area   flexString `json:"area"`
	} `json:"suburb"`
	Geolocation *struct {
		Latitude  flexFloat `json:"latitude"`
		Longitude flexFloat `json:"longitude"`
	} `json:"geolocation"`
}

type schoolProps struct {
	ID             flexInt    `json:"id"`
	Name           flexString `json:"name"`
	Type           flexString `json:"type"`
	SchoolType     flexString `json:"schoolType"`
	Sector         flexString `json:"sector"`
	SchoolSector   flexString `json:"schoolSector"`
	Gender         flexString `json:"gender"`
	EducationLevel flexString `json:"educationLevel"`
	Year           flexString `json:"year"`
	YearRange      flexString `json:"yearRange"`
	State          flexString `json:"state"`
	PostCode       flexString `json:"postCode"`
	Distance       flexFloat  `json:"distance"`
}

type timelineProps struct {
	IsMajorEvent     flexBool        `json:"isMajorEvent"`
	EventPrice       flexFloat       `json:"eventPrice"`
	EventDate        flexString      `json:"eventDate"`
	Agency           json.RawMessage `json:"agency"`
	Category         flexString      `json:"category"`
	DaysOnMarket     flexInt         `json:"daysOnMarket"`
	PriceDescription flexString      `json:"priceDescription"`
}

type insightsProps struct {
	SuburbProfileURL flexString `json:"suburbProfileUrl"`
	Demographics     *struct {
		Population flexInt    `json:"population"`
		AvgAge     flexString `json:"avgAge"`
		Owners     flexFloat  `json:"owners"`
		Renters    flexFloat  `json:"renters"`
		Families   flexFloat  `json:"families"`
		Singles    flexFloat  `json:"singles"`
	} `json:"demographics"`
	MedianPrice      flexFloat `json:"medianPrice"`
	MedianRentPrice  flexFloat `json:"medianRentPrice"`
	AvgDaysOnMarket  flexFloat `json:"avgDaysOnMarket"`
	EntryLevelPrice  flexFloat `json:"entryLevelPrice"`
	LuxuryLevelPrice flexFloat `json:"luxuryLevelPrice"`
	SalesGrowthList  []struct {
		Year            flexString `json:"year"`
		MedianSoldPrice flexFloat  `json:"medianSoldPrice"`
		AnnualGrowth    flexFloat  `json:"annualGrowth"`
		NumberSold      flexInt    `json:"numberSold"`
		DaysOnMarket    flexInt    `json:"daysOnMarket"`
	} `json:"salesGrowthList"`
}

type marketProps struct {
	HousesForRent     flexInt `json:"housesForRent"`
	HousesForSale     flexInt `json:"housesForSale"`
	UnitsForRent      flexInt `json:"apartmentsAndUnitsForRent"`
	UnitsForSale      flexInt `json:"apartmentsAndUnitsForSale"`
	TownhousesForRent flexInt `json:"townhousesForRent"`
	TownhousesForSale flexInt `json:"townhousesForSale"`
}

// ParseListing builds a ListingRecord from a detail page state.
// Optional sections that are absent yield empty values.
func (p *ListingParser) ParseListing(state json.RawMessage, detailURL string) (*propcrawl.ListingRecord, error) {
	raw, err := componentProps(state)
	if err != nil {
		return nil, err
	}

	var props listingProps
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, &propcrawl.ParseError{Kind: propcrawl.ParseUnexpectedShape, Err: err}
	}

	listingURL := p.urls.ResolveURL(string(props.ListingURL))
	if listingURL == "" {
		listingURL = detailURL
	}
	id, ok := listingID(props, detailURL, listingURL)
	if !ok {
		return nil, &propcrawl.ParseError{
			Kind: propcrawl.ParseMissingAnchor,
			Err:  fmt.Errorf("no listing id for %s", detailURL),
		}
	}

	rec := &propcrawl.ListingRecord{
		ID:                 id,
		DetailURL:          detailURL,
		ListingURL:         listingURL,
		PropertyType:       string(props.PropertyType),
		Category:           string(props.Category),
		UnitNumber:         string(props.UnitNumber),
		StreetNumber:       string(props.StreetNumber),
		Street:             string(props.Street),
		Suburb:             string(props.Suburb),
		Postcode:           string(props.Postcode),
		State:              string(props.State),
		Beds:               props.Beds.ptr(),
		Baths:              props.Baths.ptr(),
		Parking:            props.Parking.ptr(),
		Price:              string(props.Price),
		LandArea:           props.LandArea.ptr(),
		InternalArea:       props.InternalArea.ptr(),
		Features:           parseFeatures(props.Features),
		StructuredFeatures: nonNull(props.StructuredFeatures),
		Images:             galleryImages(props),
		Schools:            schools(props),
		Timeline:           majorEvents(props.Timeline),
		Insights:           insights(props.SuburbInsights),
		SourceHash:         fmt.Sprintf("%x", xxhash.Sum64(raw)),
	}

	if s := props.ListingSummary; s != nil {
		rec.Summary = &propcrawl.ListingSummary{
			Beds:         s.Beds.ptr(),
			Baths:        s.Baths.ptr(),
			Parking:      s.Parking.ptr(),
			Title:        string(s.Title),
			Status:       string(s.Status),
			Mode:         string(s.Mode),
			Method:       string(s.Method),
			Address:      string(s.Address),
			PropertyType: string(s.PropertyType),
		}
	}

	applyAddress(rec, props.Address)

	if m := props.Map; m != nil && m.Latitude.set && m.Longitude.set {
		rec.Geo = &propcrawl.Geolocation{Latitude: m.Latitude.value, Longitude: m.Longitude.value}
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
	}

	desc, err := p.description(props.Description)
	if err != nil {
		return nil, &propcrawl.ParseError{Kind: propcrawl.ParseUnexpectedShape, Err: err}
	}
	rec.Description = desc

	return rec, nil
}

// listingID prefers the explicit id, then the id suffix of the detail and listing URLs.
func listingID(props listingProps, detailURL, listingURL string) (int64, bool) {
	if props.ListingID.set && props.ListingID.int() > 0 {
		return int64(props.ListingID.int()), true
	}
	if id, ok := ListingIDFromURL(detailURL); ok {
		return id, true
	}
	return ListingIDFromURL(listingURL)
}

// applyAddress fills the nested address when the payload carries an address object.
// A string address is used as the flattened display address.
func applyAddress(rec *propcrawl.ListingRecord, raw json.RawMessage) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return
	}

	if raw[0] == '"' {
		var display string
		if err := json.Unmarshal(raw, &display); err == nil && display != "" {
			if rec.Summary == nil {
				rec.Summary = &propcrawl.ListingSummary{}
			}
			if rec.Summary.Address == "" {
				rec.Summary.Address = display
			}
		}
		return
	}

	var a addressProps
	if raw[0] != '{' || json.Unmarshal(raw, &a) != nil {
		return
	}

	addr := &propcrawl.StructuredAddress{
		DisplayAddress: string(a.DisplayAddress),
		UnitNumber:     string(a.UnitNumber),
		StreetNumber:   string(a.StreetNumber),
		StreetName:     string(a.StreetName),
		StreetType:     string(a.StreetType),
		SuburbName:     string(a.SuburbName),
		Postcode:       string(a.Postcode),
		State:          string(a.State),
	}
	if s := a.Suburb; s != nil {
		if addr.SuburbName == "" {
			addr.SuburbName = string(s.Name)
		}
		addr.Region = string(s.Region)
		addr.Area = string(s.Area)
	}
	rec.Address = addr

	if g := a.Geolocation; g != nil && g.Latitude.set && g.Longitude.set {
		rec.Geo = &propcrawl.Geolocation{Latitude: g.Latitude.value, Longitude: g.Longitude.value}
	}
}

// galleryImages returns up to MaxListingImages distinct image URLs.
func galleryImages(props listingProps) []string {
	images := []string{}
	seen := make(map[string]bool)
	for _, slide := range props.Gallery.Slides {
		u := string(slide.Images.Original.URL)
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

// schools returns up to MaxListingSchools schools with distances rounded to 2 decimals.
func schools(props listingProps) []propcrawl.SchoolRecord {
	src := props.SchoolCatchment.Schools
	if len(src) == 0 {
		src = props.Schools
	}

	out := []propcrawl.SchoolRecord{}
	for _, s := range src {
		if len(out) == propcrawl.MaxListingSchools {
			break
		}
		rec := propcrawl.SchoolRecord{
			Name:           string(s.Name),
			Type:           firstNonEmpty(string(s.Type), string(s.SchoolType)),
			Sector:         firstNonEmpty(string(s.Sector), string(s.SchoolSector)),
			Gender:         string(s.Gender),
			EducationLevel: string(s.EducationLevel),
			YearRange:      firstNonEmpty(string(s.YearRange), string(s.Year)),
			State:          string(s.State),
			Postcode:       string(s.PostCode),
			Distance:       propcrawl.RoundDistance(s.Distance.value),
		}
		if s.ID.set && s.ID.int() > 0 {
			rec.ID = int64(s.ID.int())
		}
		out = append(out, rec)
	}
	return out
}

// majorEvents keeps the timeline entries flagged as major events.
func majorEvents(timeline []timelineProps) []propcrawl.TimelineEvent {
	out := []propcrawl.TimelineEvent{}
	for _, ev := range timeline {
		if !ev.IsMajorEvent {
			continue
		}
		te := propcrawl.TimelineEvent{
			Price:            ev.EventPrice.value,
			Date:             string(ev.EventDate),
			Category:         string(ev.Category),
			Agency:           agencyName(ev.Agency),
			DaysOnMarket:     ev.DaysOnMarket.int(),
			PriceDescription: string(ev.PriceDescription),
		}
		out = append(out, te)
	}
	return out
}

func insights(in *insightsProps) *propcrawl.SuburbInsights {
	if in == nil {
		return nil
	}
	out := &propcrawl.SuburbInsights{
		ProfileURL:      string(in.SuburbProfileURL),
		MedianPrice:     in.MedianPrice.ptr(),
		MedianRent:      in.MedianRentPrice.ptr(),
		AvgDaysOnMarket: in.AvgDaysOnMarket.ptr(),
		EntryPrice:      in.EntryLevelPrice.ptr(),
		LuxuryPrice:     in.LuxuryLevelPrice.ptr(),
	}
	if d := in.Demographics; d != nil {
		out.Population = d.Population.ptr()
		out.AvgAge = string(d.AvgAge)
		out.Owners = d.Owners.ptr()
		out.Renters = d.Renters.ptr()
		out.Families = d.Families.ptr()
		out.Singles = d.Singles.ptr()
	}
	for _, g := range in.SalesGrowthList {
		out.SalesGrowth = append(out.SalesGrowth, propcrawl.SalesGrowthPoint{
			Year:            string(g.Year),
			MedianSoldPrice: g.MedianSoldPrice.value,
			AnnualGrowth:    g.AnnualGrowth.value,
			NumberSold:      g.NumberSold.int(),
			DaysOnMarket:    g.DaysOnMarket.int(),
		})
	}
	return out
}

// agencyName reads an agency given as {"name": ...} or as a bare name.
func agencyName(raw json.RawMessage) string {
	var name flexString
	if json.Unmarshal(raw, &name) == nil && name != "" {
		return string(name)
	}
	var obj struct {
		Name flexString `json:"name"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return string(obj.Name)
	}
	return ""
}

// parseFeatures accepts a list of strings or a list of {"name": ...} objects.
func parseFeatures(raw json.RawMessage) []string {
	features := []string{}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return features
	}
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			if s = strings.TrimSpace(s); s != "" {
				features = append(features, s)
			}
			continue
		}
		var named struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(item, &named) == nil && named.Name != "" {
			features = append(features, named.Name)
		}
	}
	return features
}

// description converts the HTML description, a string or a list of paragraphs.
func (p *ListingParser) description(raw json.RawMessage) (string, error) {
	var parts []string
	var single string
	if json.Unmarshal(raw, &single) == nil {
		parts = []string{single}
	} else if json.Unmarshal(raw, &parts) != nil {
		return "", nil
	}

	var out []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if p.converter != nil {
			md, err := p.converter.Convert(part)
			if err != nil {
				return "", fmt.Errorf("description: %w", err)
			}
			part = md
		}
		out = append(out, part)
	}
	return strings.Join(out, "\n\n"), nil
}

func nonNull(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
