package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/propcrawl/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens an in-memory database closed at the end of the test.
func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_Open(t *testing.T) {
	t.Parallel()

	t.Run("creates schema on first open", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		for _, table := range []string{"suburbs", "properties", "schools", "property_schools", "property_events"} {
			var n int
			err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
			require.NoError(t, err, table)
		}
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB("/nonexistent/path/db.sqlite")
		err := db.Open()
		require.Error(t, err)
	})

	t.Run("enables WAL mode for file-based databases", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB(t.TempDir() + "/test.db")
		require.NoError(t, db.Open())
		defer db.Close()

		var journalMode string
		err := db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&journalMode)
		require.NoError(t, err)
		require.Equal(t, "wal", journalMode)
	})

	t.Run("enables foreign keys", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)

		var on int
		err := db.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&on)
		require.NoError(t, err)
		assert.Equal(t, 1, on)
	})

	t.Run("uses a single connection", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)

		assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	})

	t.Run("reopening keeps existing data", func(t *testing.T) {
		t.Parallel()

		path := t.TempDir() + "/reopen.db"
		ctx := context.Background()

		db := sqlite.NewDB(path)
		require.NoError(t, db.Open())
		_, err := db.ExecContext(ctx, `INSERT INTO suburbs (id, name, postcode, created_at) VALUES ('s1', 'Testville', '2000', '2024-01-01T00:00:00Z')`)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		db = sqlite.NewDB(path)
		require.NoError(t, db.Open())
		defer db.Close()

		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM suburbs").Scan(&n))
		assert.Equal(t, 1, n)
	})

	t.Run("adds profile columns to an older properties table", func(t *testing.T) {
		t.Parallel()

		path := t.TempDir() + "/upgrade.db"
		ctx := context.Background()

		db := sqlite.NewDB(path)
		require.NoError(t, db.Open())
		for _, col := range []string{"profile_url", "valuation", "surrounding_suburbs"} {
			_, err := db.ExecContext(ctx, "ALTER TABLE properties DROP COLUMN "+col)
			require.NoError(t, err, col)
		}
		require.NoError(t, db.Close())

		db = sqlite.NewDB(path)
		require.NoError(t, db.Open())
		defer db.Close()

		var n int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pragma_table_info('properties') WHERE name IN ('profile_url', 'valuation', 'surrounding_suburbs')`,
		).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}
