package crawl_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/propcrawl"
	"github.com/fwojciec/propcrawl/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainLimiter(t *testing.T) {
	t.Parallel()

	t.Run("implements propcrawl.DomainLimiter interface", func(t *testing.T) {
		t.Parallel()
		var _ propcrawl.DomainLimiter = crawl.NewDomainLimiter(1)
	})

	t.Run("allows immediate request when under limit", func(t *testing.T) {
		t.Parallel()

		limiter := crawl.NewDomainLimiter(10)

		start := time.Now()
		err := limiter.Wait(context.Background(), "www.domain.com.au")
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Less(t, elapsed, 50*time.Millisecond, "first request should be immediate")
	})

	t.Run("rate limits requests to same host", func(t *testing.T) {
		t.Parallel()

		limiter := crawl.NewDomainLimiter(10) // 100ms between requests

		err := limiter.Wait(context.Background(), "www.domain.com.au")
		require.NoError(t, err)

		start := time.Now()
		err = limiter.Wait(context.Background(), "www.domain.com.au")
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond, "should wait for rate limit")
	})

	t.Run("different hosts have independent limits", func(t *testing.T) {
		t.Parallel()

		limiter := crawl.NewDomainLimiter(10)

		err := limiter.Wait(context.Background(), "www.domain.com.au")
		require.NoError(t, err)

		start := time.Now()
		err = limiter.Wait(context.Background(), "rimh2.domainstatic.com.au")
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Less(t, elapsed, 50*time.Millisecond, "different host should not wait")
	})

	t.Run("zero rate disables limiting", func(t *testing.T) {
		t.Parallel()

		limiter := crawl.NewDomainLimiter(0)

		start := time.Now()
		for range 5 {
			require.NoError(t, limiter.Wait(context.Background(), "www.domain.com.au"))
		}

		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		limiter := crawl.NewDomainLimiter(1)

		err := limiter.Wait(context.Background(), "www.domain.com.au")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err = limiter.Wait(ctx, "www.domain.com.au")
		assert.Error(t, err, "should fail when context times out")
	})

	t.Run("concurrent requests are serialized per host", func(t *testing.T) {
		t.Parallel()

		limiter := crawl.NewDomainLimiter(100)

		var wg sync.WaitGroup
		var completed atomic.Int32

		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := limiter.Wait(context.Background(), "www.domain.com.au"); err == nil {
					completed.Add(1)
				}
			}()
		}

		wg.Wait()
		assert.Equal(t, int32(5), completed.Load(), "all requests should complete")
	})
}
