// internal/scrape/scraper_test.go
package scrape

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/nullbytefox/posterhound/internal/config"
)

func testScraperConfig() config.ScraperConfig {
	return config.ScraperConfig{
		MaxWorkers:   4,
		MaxUserPages: 5,
	}
}

func TestScraperRunCorrelatesResultsByURL(t *testing.T) {
	defer goleak.VerifyNone(t)

	setHTML := gridPageHTML("Set One | TPDb", tileHTML("Movie", "11", "First (2001)"))
	fetcher := &stubFetcher{pages: map[string]string{
		"https://theposterdb.com/set/1": setHTML,
	}}

	s, err := NewScraper(testScraperConfig(), fetcher, zaptest.NewLogger(t))
	require.NoError(t, err)
	urls := []string{
		"https://theposterdb.com/set/1",
		"https://example.com/nope",
		"https://theposterdb.com/set/404",
	}

	results := s.Run(context.Background(), urls)
	require.Len(t, results, 3)

	// Index-aligned with the input, whatever the completion order.
	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
	}

	require.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].Batch.Len())

	assert.ErrorIs(t, results[1].Err, &ScrapeError{Kind: KindUnsupportedSource})
	assert.ErrorIs(t, results[2].Err, &ScrapeError{Kind: KindNavigationTimeout})
}

func TestScraperRunBoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	const maxWorkers = 2

	var inFlight, peak int64
	var mu sync.Mutex

	fetcher := fetcherFunc(func(ctx context.Context, url string, hint SiteHint) (*RawPage, error) {
		n := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return &RawPage{
			URL:  url,
			HTML: gridPageHTML("S | TPDb", tileHTML("Movie", "1", "M (2000)")),
		}, nil
	})

	cfg := testScraperConfig()
	cfg.MaxWorkers = maxWorkers
	s, err := NewScraper(cfg, fetcher, zaptest.NewLogger(t))
	require.NoError(t, err)

	var urls []string
	for i := 0; i < 8; i++ {
		urls = append(urls, fmt.Sprintf("https://theposterdb.com/set/%d", i))
	}
	s.Run(context.Background(), urls)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int64(maxWorkers))
}

func TestScraperRunCancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	var fetches int64
	fetcher := fetcherFunc(func(ctx context.Context, url string, hint SiteHint) (*RawPage, error) {
		atomic.AddInt64(&fetches, 1)
		return nil, ctx.Err()
	})

	s, err := NewScraper(testScraperConfig(), fetcher, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := s.Run(ctx, []string{"https://theposterdb.com/set/1", "https://theposterdb.com/set/2"})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Zero(t, atomic.LoadInt64(&fetches), "no fetch may start after cancellation")
}

func TestScraperRunLocalFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "saved.html")
	html := gridPageHTML("Saved Grid", tileHTML("Movie", "5", "Archived (1995)"))
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	// A fetcher that fails proves local files never touch the network.
	fetcher := fetcherFunc(func(ctx context.Context, url string, hint SiteHint) (*RawPage, error) {
		return nil, newError(KindNavigationTimeout, url, fmt.Errorf("network used"))
	})

	s, err := NewScraper(testScraperConfig(), fetcher, zaptest.NewLogger(t))
	require.NoError(t, err)
	results := s.Run(context.Background(), []string{path})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Len(t, results[0].Batch.Posters, 1)
	assert.Equal(t, "Archived", results[0].Batch.Posters[0].Title)
}

func TestScraperRunMissingLocalFile(t *testing.T) {
	s, err := NewScraper(testScraperConfig(), &stubFetcher{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	results := s.Run(context.Background(), []string{"/definitely/not/here.html"})

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, &ScrapeError{Kind: KindContentUnavailable})
}

// fetcherFunc adapts a function to the PageFetcher interface.
type fetcherFunc func(ctx context.Context, url string, hint SiteHint) (*RawPage, error)

func (f fetcherFunc) FetchPage(ctx context.Context, url string, hint SiteHint) (*RawPage, error) {
	return f(ctx, url, hint)
}
