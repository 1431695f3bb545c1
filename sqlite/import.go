package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/propcrawl"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ propcrawl.ListingImporter = (*ImportService)(nil)

// ImportService imports listing records, one transaction per record.
type ImportService struct {
	db  *DB
	now func() time.Time
}

// NewImportService creates a new ImportService.
func NewImportService(db *DB) *ImportService {
	return &ImportService{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// ImportListings imports records in order. A failed record is reported in
// the result and never undoes the records before it. Cancellation stops
// the batch between records.
func (s *ImportService) ImportListings(ctx context.Context, records []*propcrawl.ListingRecord) (*propcrawl.ImportResult, error) {
	result := &propcrawl.ImportResult{}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Add(s.ImportListing(ctx, rec))
	}
	return result, nil
}

// ImportListing imports one record. Existing properties are skipped
// without writes; suburbs and schools are reused by their keys.
func (s *ImportService) ImportListing(ctx context.Context, rec *propcrawl.ListingRecord) propcrawl.ImportOutcome {
	if rec == nil {
		return propcrawl.ImportOutcome{
			Status: propcrawl.ImportFailed,
			Err:    propcrawl.Errorf(propcrawl.EINVALID, "nil listing record"),
		}
	}

	status, err := s.importListing(ctx, rec)
	if err != nil {
		return propcrawl.ImportOutcome{ListingID: rec.ID, Status: propcrawl.ImportFailed, Err: err}
	}
	return propcrawl.ImportOutcome{ListingID: rec.ID, Status: status}
}

func (s *ImportService) importListing(ctx context.Context, rec *propcrawl.ListingRecord) (propcrawl.ImportStatus, error) {
	if rec.ID <= 0 {
		return propcrawl.ImportFailed, propcrawl.Errorf(propcrawl.EINVALID, "listing id required")
	}
	suburb, err := propcrawl.TransformSuburb(rec)
	if err != nil {
		return propcrawl.ImportFailed, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return propcrawl.ImportFailed, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	exists, err := propertyExists(ctx, tx, rec.ID)
	if err != nil {
		return propcrawl.ImportFailed, err
	}
	if exists {
		return propcrawl.ImportSkippedExisting, nil
	}

	now := s.now()
	suburbID, err := resolveSuburb(ctx, tx, suburb, now)
	if err != nil {
		return propcrawl.ImportFailed, err
	}

	p := propcrawl.Transform(rec, suburbID)
	if err := p.Validate(); err != nil {
		return propcrawl.ImportFailed, err
	}
	if err := insertProperty(ctx, tx, p, now); err != nil {
		return propcrawl.ImportFailed, err
	}

	for _, ps := range p.Schools {
		if ps.School.ID <= 0 {
			continue
		}
		if err := resolveSchool(ctx, tx, &ps.School); err != nil {
			return propcrawl.ImportFailed, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO property_schools (property_id, school_id, distance)
			VALUES (?, ?, ?)
			ON CONFLICT (property_id, school_id) DO NOTHING
		`, p.ID, ps.School.ID, ps.Distance); err != nil {
			return propcrawl.ImportFailed, conflict(err, "school %d of property %d", ps.School.ID, p.ID)
		}
	}

	for _, ev := range p.Events {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO property_events (id, property_id, price, date, category, agency, days_on_market, price_description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), p.ID, ev.Price, ev.Date, ev.Category, ev.Agency, ev.DaysOnMarket, ev.PriceDescription); err != nil {
			return propcrawl.ImportFailed, conflict(err, "event of property %d", p.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return propcrawl.ImportFailed, conflict(err, "commit property %d", p.ID)
	}
	return propcrawl.ImportImported, nil
}

func propertyExists(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM properties WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup property %d: %w", id, err)
	}
	return true, nil
}

// resolveSuburb returns the id of the suburb with the same name and
// postcode, creating the suburb when none exists.
func resolveSuburb(ctx context.Context, tx *sql.Tx, s *propcrawl.Suburb, now time.Time) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM suburbs WHERE name = ? AND postcode = ?`, s.Name, s.Postcode).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup suburb %s %s: %w", s.Name, s.Postcode, err)
	}

	growth := s.SalesGrowth
	if growth == nil {
		growth = []propcrawl.SalesGrowthPoint{}
	}
	growthJSON, err := encodeJSON(growth)
	if err != nil {
		return "", err
	}

	s.ID = uuid.New().String()
	s.CreatedAt = now
	_, err = tx.ExecContext(ctx, `
		INSERT INTO suburbs (
			id, name, postcode, state, region, area, profile_url,
			properties_for_rent, properties_for_sale, population, avg_age_range,
			owner_percent, renter_percent, family_percent, single_percent,
			median_price, median_rent, avg_days_on_market, entry_price, luxury_price,
			sales_growth, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Name, s.Postcode, s.State, s.Region, s.Area, s.ProfileURL,
		s.PropertiesForRent, s.PropertiesForSale, s.Population, s.AvgAgeRange,
		s.OwnerPercent, s.RenterPercent, s.FamilyPercent, s.SinglePercent,
		s.MedianPrice, s.MedianRent, s.AvgDaysOnMarket, s.EntryPrice, s.LuxuryPrice,
		growthJSON, now.Format(time.RFC3339))
	if err != nil {
		return "", conflict(err, "suburb %s %s", s.Name, s.Postcode)
	}
	return s.ID, nil
}

// resolveSchool inserts the school unless a school with its id exists.
func resolveSchool(ctx context.Context, tx *sql.Tx, school *propcrawl.School) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM schools WHERE id = ?`, school.ID).Scan(&one)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup school %d: %w", school.ID, err)
	}

	var suburbID any
	if school.SuburbID != "" {
		suburbID = school.SuburbID
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO schools (id, name, education_level, year_range, type, sector, gender, state, postcode, suburb_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, school.ID, school.Name, school.EducationLevel, school.YearRange, school.Type, school.Sector,
		school.Gender, school.State, school.Postcode, suburbID)
	return conflict(err, "school %d", school.ID)
}

func insertProperty(ctx context.Context, tx *sql.Tx, p *propcrawl.Property, now time.Time) error {
	images, err := encodeJSON(p.Images)
	if err != nil {
		return err
	}
	features, err := encodeJSON(p.Features)
	if err != nil {
		return err
	}
	structured, err := encodeJSON(p.StructuredFeatures)
	if err != nil {
		return err
	}
	market, err := encodeJSON(p.MarketStats)
	if err != nil {
		return err
	}
	insights, err := encodeJSON(p.SuburbInsights)
	if err != nil {
		return err
	}
	valuation, err := encodeJSON(p.Valuation)
	if err != nil {
		return err
	}
	surrounding, err := encodeJSON(append([]string{}, p.SurroundingSuburbs...))
	if err != nil {
		return err
	}

	p.CreatedAt = now
	_, err = tx.ExecContext(ctx, `
		INSERT INTO properties (
			id, suburb_id, type, category, bedrooms, bathrooms, parking_spaces, land_area, internal_area,
			display_address, unit_number, street_number, street_name, suburb_name, postcode, state,
			latitude, longitude, listing_url, listing_status, listing_mode, listing_method, display_price,
			description, images, features, structured_features, market_stats, suburb_insights,
			source_hash, profile_url, valuation, surrounding_suburbs, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.SuburbID, p.Type, p.Category, p.Bedrooms, p.Bathrooms, p.ParkingSpaces, p.LandArea, p.InternalArea,
		p.DisplayAddress, p.UnitNumber, p.StreetNumber, p.StreetName, p.SuburbName, p.Postcode, p.State,
		p.Latitude, p.Longitude, p.ListingURL, p.ListingStatus, p.ListingMode, p.ListingMethod, p.DisplayPrice,
		p.Description, images, features, structured, market, insights,
		p.SourceHash, p.ProfileURL, valuation, surrounding, now.Format(time.RFC3339))
	return conflict(err, "property %d", p.ID)
}
