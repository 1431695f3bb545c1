package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/fwojciec/propcrawl"
)

// Compile-time interface verification.
var _ propcrawl.SuburbService = (*SuburbService)(nil)

// SuburbService implements propcrawl.SuburbService using SQLite.
type SuburbService struct {
	db *DB
}

// NewSuburbService creates a new SuburbService.
func NewSuburbService(db *DB) *SuburbService {
	return &SuburbService{db: db}
}

const suburbColumns = `id, name, postcode, state, region, area, profile_url,
	properties_for_rent, properties_for_sale, population, avg_age_range,
	owner_percent, renter_percent, family_percent, single_percent,
	median_price, median_rent, avg_days_on_market, entry_price, luxury_price,
	sales_growth, created_at`

// FindSuburbByKey retrieves a suburb by name and postcode.
func (s *SuburbService) FindSuburbByKey(ctx context.Context, name, postcode string) (*propcrawl.Suburb, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+suburbColumns+` FROM suburbs WHERE name = ? AND postcode = ?`, name, postcode)
	suburb, err := scanSuburb(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, propcrawl.Errorf(propcrawl.ENOTFOUND, "suburb not found")
	}
	return suburb, err
}

// FindSuburbs retrieves suburbs matching the filter ordered by name and postcode.
func (s *SuburbService) FindSuburbs(ctx context.Context, filter propcrawl.SuburbFilter) ([]*propcrawl.Suburb, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + suburbColumns + " FROM suburbs WHERE 1=1")
	if filter.State != nil {
		query.WriteString(" AND state = ?")
		args = append(args, *filter.State)
	}
	query.WriteString(" ORDER BY name, postcode")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suburbs []*propcrawl.Suburb
	for rows.Next() {
		suburb, err := scanSuburb(rows)
		if err != nil {
			return nil, err
		}
		suburbs = append(suburbs, suburb)
	}
	return suburbs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSuburb(row scanner) (*propcrawl.Suburb, error) {
	var s propcrawl.Suburb
	var growth *string
	var createdAt string

	if err := row.Scan(&s.ID, &s.Name, &s.Postcode, &s.State, &s.Region, &s.Area, &s.ProfileURL,
		&s.PropertiesForRent, &s.PropertiesForSale, &s.Population, &s.AvgAgeRange,
		&s.OwnerPercent, &s.RenterPercent, &s.FamilyPercent, &s.SinglePercent,
		&s.MedianPrice, &s.MedianRent, &s.AvgDaysOnMarket, &s.EntryPrice, &s.LuxuryPrice,
		&growth, &createdAt); err != nil {
		return nil, err
	}

	if err := decodeJSON(growth, &s.SalesGrowth, "sales_growth"); err != nil {
		return nil, err
	}
	var err error
	if s.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &s, nil
}
