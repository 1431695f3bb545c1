package main_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/propcrawl"
	main "github.com/fwojciec/propcrawl/cmd/propcrawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadShards(t *testing.T) {
	t.Parallel()

	t.Run("defaults to the price-band ladder", func(t *testing.T) {
		t.Parallel()

		shards, err := main.LoadShards("")

		require.NoError(t, err)
		require.Len(t, shards, 240)
		assert.Equal(t, "0-50000", shards[0].Key)
	})

	t.Run("reads ladder, bands and suburbs", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "shards.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
price_step: 500000
price_max: 1000000
price_bands:
  - {min: 5000000, max: 6000000}
suburbs:
  - testville-nsw-2000
`), 0o644))

		shards, err := main.LoadShards(path)

		require.NoError(t, err)
		assert.Equal(t, []propcrawl.Shard{
			{Key: "0-500000", MinPrice: 0, MaxPrice: 500000},
			{Key: "500000-1000000", MinPrice: 500000, MaxPrice: 1000000},
			{Key: "5000000-6000000", MinPrice: 5000000, MaxPrice: 6000000},
			{Key: "suburb:testville-nsw-2000", Suburb: "testville-nsw-2000"},
		}, shards)
	})

	t.Run("rejects inverted band", func(t *testing.T) {
		t.Parallel()

		f := &main.ShardsFile{PriceBands: []main.PriceBand{{Min: 10, Max: 5}}}

		_, err := f.Shards()

		assert.Equal(t, propcrawl.EINVALID, propcrawl.ErrorCode(err))
	})

	t.Run("rejects empty file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "shards.yaml")
		require.NoError(t, os.WriteFile(path, []byte("suburbs: []\n"), 0o644))

		_, err := main.LoadShards(path)

		assert.Equal(t, propcrawl.EINVALID, propcrawl.ErrorCode(err))
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "shards.yaml")
		require.NoError(t, os.WriteFile(path, []byte("price_bands: [oops"), 0o644))

		_, err := main.LoadShards(path)

		assert.Equal(t, propcrawl.EINVALID, propcrawl.ErrorCode(err))
	})
}
