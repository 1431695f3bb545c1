package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/fwojciec/propcrawl"
	"github.com/fwojciec/propcrawl/sqlite"
	"github.com/stretchr/testify/require"
)

// BenchmarkImportListings compares batch import throughput between WAL and
// rollback journal modes. Each record is its own transaction.
func BenchmarkImportListings(b *testing.B) {
	const batchSize = 20

	b.Run("rollback_journal", func(b *testing.B) {
		benchmarkImportListings(b, "DELETE", batchSize)
	})

	b.Run("wal_mode", func(b *testing.B) {
		benchmarkImportListings(b, "WAL", batchSize)
	})
}

func benchmarkImportListings(b *testing.B, journalMode string, batchSize int) {
	b.Helper()

	db := sqlite.NewDB(filepath.Join(b.TempDir(), "bench.db"))
	require.NoError(b, db.Open())
	defer db.Close()

	ctx := context.Background()
	_, err := db.ExecContext(ctx, "PRAGMA journal_mode = "+journalMode)
	require.NoError(b, err)

	svc := sqlite.NewImportService(db)
	next := int64(1_000_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		records := make([]*propcrawl.ListingRecord, batchSize)
		for j := range records {
			next++
			records[j] = &propcrawl.ListingRecord{
				ID:         next,
				ListingURL: fmt.Sprintf("https://www.domain.com.au/bench-%d", next),
				Suburb:     fmt.Sprintf("Suburb %d", j%5),
				Postcode:   "2000",
				Schools:    []propcrawl.SchoolRecord{{ID: int64(j%3 + 1), Name: "Bench School", Distance: 1.5}},
				Timeline:   []propcrawl.TimelineEvent{{Price: 900000, Date: "2020-01-01", Category: "Sale"}},
			}
		}
		result, err := svc.ImportListings(ctx, records)
		if err != nil {
			b.Fatal(err)
		}
		if len(result.Failed) > 0 {
			b.Fatalf("import failed: %v", result.Failed)
		}
	}
}
