package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/fwojciec/propcrawl"
)

// Compile-time interface verification.
var _ propcrawl.PropertyService = (*PropertyService)(nil)

// PropertyService implements propcrawl.PropertyService using SQLite.
type PropertyService struct {
	db *DB
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(db *DB) *PropertyService {
	return &PropertyService{db: db}
}

const propertyColumns = `id, suburb_id, type, category, bedrooms, bathrooms, parking_spaces, land_area, internal_area,
	display_address, unit_number, street_number, street_name, suburb_name, postcode, state,
	latitude, longitude, listing_url, listing_status, listing_mode, listing_method, display_price,
	description, images, features, structured_features, market_stats, suburb_insights,
	source_hash, profile_url, valuation, surrounding_suburbs, created_at`

// FindPropertyByID retrieves a property with its schools and events.
func (s *PropertyService) FindPropertyByID(ctx context.Context, id int64) (*propcrawl.Property, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, propcrawl.Errorf(propcrawl.ENOTFOUND, "property not found")
	}
	if err != nil {
		return nil, err
	}

	if p.Schools, err = s.findSchools(ctx, id); err != nil {
		return nil, err
	}
	if p.Events, err = s.findEvents(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// FindProperties retrieves properties matching the filter ordered by id.
func (s *PropertyService) FindProperties(ctx context.Context, filter propcrawl.PropertyFilter) ([]*propcrawl.Property, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + propertyColumns + " FROM properties WHERE 1=1")
	appendPropertyFilter(&query, &args, filter)
	query.WriteString(" ORDER BY id")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []*propcrawl.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

// CountProperties returns the number of properties matching the filter.
func (s *PropertyService) CountProperties(ctx context.Context, filter propcrawl.PropertyFilter) (int, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT COUNT(*) FROM properties WHERE 1=1")
	appendPropertyFilter(&query, &args, filter)

	var n int
	err := s.db.QueryRowContext(ctx, query.String(), args...).Scan(&n)
	return n, err
}

// ListingURLExists reports whether a property with the listing URL is stored.
func (s *PropertyService) ListingURLExists(ctx context.Context, url string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM properties WHERE listing_url = ?`, url).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ListingURLs returns the listing URLs of all stored properties.
func (s *PropertyService) ListingURLs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT listing_url FROM properties ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (s *PropertyService) findSchools(ctx context.Context, propertyID int64) ([]propcrawl.PropertySchool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.education_level, s.year_range, s.type, s.sector, s.gender, s.state, s.postcode,
			COALESCE(s.suburb_id, ''), ps.distance
		FROM property_schools ps
		JOIN schools s ON s.id = ps.school_id
		WHERE ps.property_id = ?
		ORDER BY ps.distance, s.id
	`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schools := []propcrawl.PropertySchool{}
	for rows.Next() {
		var ps propcrawl.PropertySchool
		sc := &ps.School
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.EducationLevel, &sc.YearRange, &sc.Type, &sc.Sector,
			&sc.Gender, &sc.State, &sc.Postcode, &sc.SuburbID, &ps.Distance); err != nil {
			return nil, err
		}
		schools = append(schools, ps)
	}
	return schools, rows.Err()
}

func (s *PropertyService) findEvents(ctx context.Context, propertyID int64) ([]propcrawl.PropertyEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, property_id, price, date, category, agency, days_on_market, price_description
		FROM property_events
		WHERE property_id = ?
		ORDER BY date, id
	`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []propcrawl.PropertyEvent{}
	for rows.Next() {
		var ev propcrawl.PropertyEvent
		if err := rows.Scan(&ev.ID, &ev.PropertyID, &ev.Price, &ev.Date, &ev.Category, &ev.Agency,
			&ev.DaysOnMarket, &ev.PriceDescription); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func appendPropertyFilter(query *strings.Builder, args *[]any, filter propcrawl.PropertyFilter) {
	if filter.SuburbID != nil {
		query.WriteString(" AND suburb_id = ?")
		*args = append(*args, *filter.SuburbID)
	}
}

func scanProperty(row scanner) (*propcrawl.Property, error) {
	var p propcrawl.Property
	var images, features, structured, market, insights, valuation, surrounding *string
	var createdAt string

	if err := row.Scan(&p.ID, &p.SuburbID, &p.Type, &p.Category, &p.Bedrooms, &p.Bathrooms, &p.ParkingSpaces,
		&p.LandArea, &p.InternalArea,
		&p.DisplayAddress, &p.UnitNumber, &p.StreetNumber, &p.StreetName, &p.SuburbName, &p.Postcode, &p.State,
		&p.Latitude, &p.Longitude, &p.ListingURL, &p.ListingStatus, &p.ListingMode, &p.ListingMethod, &p.DisplayPrice,
		&p.Description, &images, &features, &structured, &market, &insights,
		&p.SourceHash, &p.ProfileURL, &valuation, &surrounding, &createdAt); err != nil {
		return nil, err
	}

	if err := decodeJSON(images, &p.Images, "images"); err != nil {
		return nil, err
	}
	if err := decodeJSON(features, &p.Features, "features"); err != nil {
		return nil, err
	}
	if structured != nil && *structured != "" {
		p.StructuredFeatures = []byte(*structured)
	}
	if err := decodeJSON(market, &p.MarketStats, "market_stats"); err != nil {
		return nil, err
	}
	if err := decodeJSON(insights, &p.SuburbInsights, "suburb_insights"); err != nil {
		return nil, err
	}
	if err := decodeJSON(valuation, &p.Valuation, "valuation"); err != nil {
		return nil, err
	}
	if err := decodeJSON(surrounding, &p.SurroundingSuburbs, "surrounding_suburbs"); err != nil {
		return nil, err
	}

	var err error
	if p.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &p, nil
}
