package bloom_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/fwojciec/propcrawl/bloom"
	"github.com/fwojciec/propcrawl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = "https://www.domain.com.au/1-a-street-testville-nsw-2000-2019000001"

func TestFilter_AddAndTest(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.False(t, f.Test(listing))

	f.Add(listing)

	assert.True(t, f.Test(listing))
	assert.False(t, f.Test("https://www.domain.com.au/2-b-street-testville-nsw-2000-2019000002"))
}

func TestFilter_EstimatedCount(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.Equal(t, uint(0), f.EstimatedCount())

	for i := 1; i <= 3; i++ {
		f.Add(fmt.Sprintf("https://www.domain.com.au/listing-%d", i))
	}

	count := f.EstimatedCount()
	assert.True(t, count >= 2 && count <= 4, "expected count near 3, got %d", count)
}

func TestFilter_AddIsIdempotent(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	f.Add(listing)
	countAfterFirst := f.EstimatedCount()

	f.Add(listing)
	f.Add(listing)

	assert.Equal(t, countAfterFirst, f.EstimatedCount())
	assert.True(t, f.Test(listing))
}

func TestFilter_FalsePositiveRate(t *testing.T) {
	t.Parallel()

	const (
		numItems   = 10000
		fpRate     = 0.01
		testProbes = 10000
	)

	f := bloom.NewFilter(numItems, fpRate)

	for i := range numItems {
		f.Add(fmt.Sprintf("https://www.domain.com.au/added-%d", i))
	}

	falsePositives := 0
	for i := range testProbes {
		if f.Test(fmt.Sprintf("https://www.domain.com.au/notadded-%d", i)) {
			falsePositives++
		}
	}

	// Allow up to 2% to account for statistical variance.
	actualRate := float64(falsePositives) / float64(testProbes)
	assert.Less(t, actualRate, 0.02, "false positive rate %f exceeds 2%%", actualRate)
}

func TestFilter_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := fmt.Sprintf("https://www.domain.com.au/listing-%d", i)
			f.Add(u)
			assert.True(t, f.Test(u))
		}()
	}
	wg.Wait()
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("seeds the filter with stored urls", func(t *testing.T) {
		t.Parallel()

		svc := &mock.PropertyService{
			ListingURLsFn: func(ctx context.Context) ([]string, error) {
				return []string{listing}, nil
			},
		}

		f, err := bloom.Load(context.Background(), svc)

		require.NoError(t, err)
		assert.True(t, f.Test(listing))
	})

	t.Run("returns lister error", func(t *testing.T) {
		t.Parallel()

		svc := &mock.PropertyService{
			ListingURLsFn: func(ctx context.Context) ([]string, error) {
				return nil, errors.New("db closed")
			},
		}

		_, err := bloom.Load(context.Background(), svc)

		require.ErrorContains(t, err, "db closed")
	})
}
