// internal/scrape/scraper.go
package scrape

import (
	"context"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nullbytefox/posterhound/internal/config"
	"github.com/nullbytefox/posterhound/internal/records"
)

// Result is the outcome of one scrape task. Callers correlate by URL, not by
// completion order.
type Result struct {
	URL   string
	Batch *records.Batch
	Err   error
}

// Scraper runs scrape tasks through a bounded worker pool. Each task owns its
// private browsing context; the browser process, the pacer, and nothing else
// are shared.
type Scraper struct {
	cfg     config.ScraperConfig
	fetcher PageFetcher
	grid    *GridAdapter
	json    *JSONAdapter
	logger  *zap.Logger
}

// NewScraper assembles the pipeline around a fetcher. The asset-kind filter
// and pagination cap come from the configuration; an invalid filter is
// rejected here so the error surfaces before any work starts.
func NewScraper(cfg config.ScraperConfig, fetcher PageFetcher, logger *zap.Logger) (*Scraper, error) {
	filter, err := cfg.AssetFilter()
	if err != nil {
		return nil, err
	}
	return &Scraper{
		cfg:     cfg,
		fetcher: fetcher,
		grid:    NewGridAdapter(fetcher, cfg.MaxUserPages, logger),
		json:    NewJSONAdapter(filter, logger),
		logger:  logger.Named("scraper"),
	}, nil
}

// Run scrapes every URL with at most MaxWorkers tasks in flight and returns
// one Result per input, index-aligned. A cancelled context stops new tasks
// from starting; tasks already navigating run to completion (see
// Orchestrator.FetchPage), so partial results survive cancellation.
func (s *Scraper) Run(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.MaxWorkers)

	for i, u := range urls {
		g.Go(func() error {
			results[i] = s.scrapeOne(ctx, u)
			return nil
		})
	}
	g.Wait()

	return results
}

// scrapeOne runs the full pipeline for a single input: classify, fetch,
// extract, validate.
func (s *Scraper) scrapeOne(ctx context.Context, input string) Result {
	if err := ctx.Err(); err != nil {
		return Result{URL: input, Err: err}
	}

	cls, err := Classify(input)
	if err != nil {
		return Result{URL: input, Err: err}
	}

	var page *RawPage
	if cls.Local {
		page, err = readLocalPage(input)
	} else {
		page, err = s.fetcher.FetchPage(ctx, input, siteHint(cls))
	}
	if err != nil {
		return Result{URL: input, Err: err}
	}

	var batch *records.Batch
	switch cls.Variant {
	case VariantJSON:
		batch, err = s.json.Extract(ctx, page)
	default:
		batch, err = s.grid.Extract(ctx, page)
	}
	if err != nil {
		return Result{URL: input, Err: err}
	}

	if err := batch.Validate(); err != nil {
		return Result{URL: input, Err: newError(KindMalformedRecord, input, err)}
	}

	s.logger.Info("Scrape task finished",
		zap.String("url", input),
		zap.Int("records", batch.Len()),
	)
	return Result{URL: input, Batch: batch}
}

func siteHint(cls Classification) SiteHint {
	if cls.Variant == VariantJSON {
		return HintScriptHeavy
	}
	return HintServerRendered
}

// readLocalPage loads a filesystem HTML input, skipping navigation, timing,
// and interaction entirely.
func readLocalPage(path string) (*RawPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(KindContentUnavailable, path, err)
	}
	return &RawPage{URL: path, HTML: string(data), FinalWaitKind: WaitNone}, nil
}
