// internal/scrape/staticfetch.go
package scrape

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/nullbytefox/posterhound/internal/browser/fingerprint"
	"github.com/nullbytefox/posterhound/internal/pacing"
)

// StaticFetcher retrieves pages over plain HTTP with colly, presenting a
// generated fingerprint's header set. It serves the browserless mode for
// server-rendered sites; hydration-driven pages still need the browser
// orchestrator.
type StaticFetcher struct {
	pacer   *pacing.Pacer
	timeout time.Duration
	logger  *zap.Logger

	mu  sync.Mutex
	gen *fingerprint.Generator
}

// NewStaticFetcher creates a browserless fetcher sharing the run's pacer.
func NewStaticFetcher(pacer *pacing.Pacer, timeout time.Duration, rng *rand.Rand, logger *zap.Logger) *StaticFetcher {
	return &StaticFetcher{
		pacer:   pacer,
		timeout: timeout,
		logger:  logger.Named("static_fetcher"),
		gen:     fingerprint.NewGenerator(rng),
	}
}

// FetchPage implements PageFetcher. Each request draws a fresh fingerprint
// and sends its full ordered header set.
func (f *StaticFetcher) FetchPage(ctx context.Context, pageURL string, _ SiteHint) (*RawPage, error) {
	if err := f.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	profile := f.gen.Generate()
	f.mu.Unlock()

	c := colly.NewCollector(
		colly.UserAgent(profile.UserAgent),
	)
	c.SetRequestTimeout(f.timeout)

	c.OnRequest(func(r *colly.Request) {
		for _, h := range profile.Headers {
			if h.Name == "User-Agent" {
				continue
			}
			r.Headers.Set(h.Name, h.Value)
		}
	})

	var (
		html     string
		status   int
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		html = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, newError(KindContentUnavailable, pageURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, newError(KindContentUnavailable, pageURL, fetchErr)
	}
	if html == "" {
		return nil, newError(KindContentUnavailable, pageURL, fmt.Errorf("empty response body (status %d)", status))
	}

	f.logger.Debug("Fetched page statically",
		zap.String("url", pageURL),
		zap.Int("status", status),
		zap.Int("bytes", len(html)),
	)

	return &RawPage{URL: pageURL, HTML: html, FinalWaitKind: WaitNone}, nil
}
