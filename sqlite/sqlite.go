// Package sqlite provides SQLite-based storage implementations for propcrawl services.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB represents a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the database connection and creates the schema if needed.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	conn.SetMaxOpenConns(1)

	// Verify connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set busy timeout to wait 5 seconds before failing on lock contention.
	// This prevents immediate "database is locked" errors.
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Enable WAL mode for file-based databases for better write performance.
	// WAL is ~7x faster for writes and allows concurrent reads during writes.
	// Trade-off: creates additional -wal and -shm files alongside the database.
	// Note: WAL mode is not supported for in-memory databases.
	if db.path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Enable foreign key constraints
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.db = conn

	// Create schema
	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// Stats returns database statistics.
func (db *DB) Stats() sql.DBStats {
	return db.db.Stats()
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, opts)
}

// createSchema creates the database tables if they don't exist.
func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS suburbs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			postcode TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			area TEXT NOT NULL DEFAULT '',
			profile_url TEXT NOT NULL DEFAULT '',
			properties_for_rent INTEGER NOT NULL DEFAULT 0,
			properties_for_sale INTEGER NOT NULL DEFAULT 0,
			population INTEGER,
			avg_age_range TEXT NOT NULL DEFAULT '',
			owner_percent REAL,
			renter_percent REAL,
			family_percent REAL,
			single_percent REAL,
			median_price REAL,
			median_rent REAL,
			avg_days_on_market REAL,
			entry_price REAL,
			luxury_price REAL,
			sales_growth TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			UNIQUE (name, postcode)
		);

		CREATE TABLE IF NOT EXISTS properties (
			id INTEGER PRIMARY KEY,
			suburb_id TEXT NOT NULL REFERENCES suburbs(id),
			type TEXT NOT NULL,
			category TEXT NOT NULL,
			bedrooms INTEGER NOT NULL DEFAULT 0,
			bathrooms INTEGER NOT NULL DEFAULT 0,
			parking_spaces INTEGER NOT NULL DEFAULT 0,
			land_area REAL NOT NULL DEFAULT 0,
			internal_area REAL NOT NULL DEFAULT 0,
			display_address TEXT NOT NULL DEFAULT '',
			unit_number TEXT NOT NULL DEFAULT '',
			street_number TEXT NOT NULL DEFAULT '',
			street_name TEXT NOT NULL DEFAULT '',
			suburb_name TEXT NOT NULL DEFAULT '',
			postcode TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			latitude REAL,
			longitude REAL,
			listing_url TEXT NOT NULL UNIQUE,
			listing_status TEXT NOT NULL,
			listing_mode TEXT NOT NULL DEFAULT '',
			listing_method TEXT NOT NULL DEFAULT '',
			display_price TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			images TEXT NOT NULL DEFAULT '[]',
			features TEXT NOT NULL DEFAULT '[]',
			structured_features TEXT,
			market_stats TEXT,
			suburb_insights TEXT,
			source_hash TEXT NOT NULL DEFAULT '',
			profile_url TEXT NOT NULL DEFAULT '',
			valuation TEXT,
			surrounding_suburbs TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_properties_suburb_id ON properties(suburb_id);

		CREATE TABLE IF NOT EXISTS schools (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			education_level TEXT NOT NULL DEFAULT '',
			year_range TEXT NOT NULL,
			type TEXT NOT NULL,
			sector TEXT NOT NULL,
			gender TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT '',
			postcode TEXT NOT NULL DEFAULT '',
			suburb_id TEXT REFERENCES suburbs(id)
		);

		CREATE TABLE IF NOT EXISTS property_schools (
			property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
			school_id INTEGER NOT NULL REFERENCES schools(id),
			distance REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (property_id, school_id)
		);

		CREATE INDEX IF NOT EXISTS idx_property_schools_school_id ON property_schools(school_id);

		CREATE TABLE IF NOT EXISTS property_events (
			id TEXT PRIMARY KEY,
			property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
			price REAL NOT NULL DEFAULT 0,
			date TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			agency TEXT NOT NULL DEFAULT '',
			days_on_market INTEGER NOT NULL DEFAULT 0,
			price_description TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_property_events_property_id ON property_events(property_id);
	`

	if _, err := db.db.Exec(schema); err != nil {
		return err
	}
	return db.addPropertyColumns()
}

// propertyColumnsAdded lists properties columns newer than the original table,
// with the definition used to add them to an existing database.
var propertyColumnsAdded = []struct{ name, def string }{
	{"profile_url", "TEXT NOT NULL DEFAULT ''"},
	{"valuation", "TEXT"},
	{"surrounding_suburbs", "TEXT NOT NULL DEFAULT '[]'"},
}

// addPropertyColumns upgrades a properties table created before the profile columns existed.
func (db *DB) addPropertyColumns() error {
	rows, err := db.db.Query(`SELECT name FROM pragma_table_info('properties')`)
	if err != nil {
		return err
	}
	have := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		have[name] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, col := range propertyColumnsAdded {
		if have[col.name] {
			continue
		}
		if _, err := db.db.Exec(`ALTER TABLE properties ADD COLUMN ` + col.name + ` ` + col.def); err != nil {
			return fmt.Errorf("add column %s: %w", col.name, err)
		}
	}
	return nil
}
