// internal/pacing/pacer.go

// Package pacing spaces page requests out the way a person browsing would:
// a uniform random delay between requests, a longer rest at batch
// boundaries, and a hard rate floor underneath it all.
package pacing

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the pacing parameters.
type Config struct {
	// InitialDelay is applied before the very first request.
	InitialDelay time.Duration
	// MinDelay and MaxDelay bound the uniform delay between requests.
	MinDelay time.Duration
	MaxDelay time.Duration
	// BatchDelay is the extra rest taken every BatchSize requests.
	BatchDelay time.Duration
	// BatchSize is the number of requests per batch. Zero disables batch
	// rests.
	BatchSize int
}

// Pacer coordinates request timing across all workers of a scrape run. One
// Pacer is shared per run so batch boundaries are global: the Nth request
// triggers the batch rest no matter which worker issues it.
type Pacer struct {
	cfg     Config
	logger  *zap.Logger
	limiter *rate.Limiter

	mu    sync.Mutex
	rng   *rand.Rand
	count uint64

	// sleepFn is swapped out in tests.
	sleepFn func(ctx context.Context, d time.Duration) error
}

// New creates a Pacer. The rate limiter enforces MinDelay as a floor on the
// average request interval even if the random delays alone would run hotter.
func New(cfg Config, rng *rand.Rand, logger *zap.Logger) *Pacer {
	limit := rate.Inf
	if cfg.MinDelay > 0 {
		limit = rate.Every(cfg.MinDelay)
	}
	return &Pacer{
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
		rng:     rng,
		sleepFn: sleepCtx,
	}
}

// Wait blocks until the caller may issue its next request. The counter
// advance and the batch-boundary check happen as one unit under the lock;
// the sleep itself happens outside it, so concurrent callers serialize only
// the bookkeeping, not the waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.count++
	n := p.count

	var delay time.Duration
	if n == 1 {
		delay = p.cfg.InitialDelay
	} else {
		delay = p.uniformDelayLocked()
	}

	batchRest := p.cfg.BatchSize > 0 && n%uint64(p.cfg.BatchSize) == 0
	if batchRest {
		delay += p.cfg.BatchDelay
	}
	p.mu.Unlock()

	if batchRest && p.logger != nil {
		p.logger.Debug("Batch boundary reached, taking a longer rest",
			zap.Uint64("requests", n),
			zap.Duration("delay", delay),
		)
	}

	if delay > 0 {
		if err := p.sleepFn(ctx, delay); err != nil {
			return err
		}
	}

	return p.limiter.Wait(ctx)
}

// RequestCount reports how many requests have been admitted so far.
func (p *Pacer) RequestCount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func (p *Pacer) uniformDelayLocked() time.Duration {
	span := p.cfg.MaxDelay - p.cfg.MinDelay
	if span <= 0 {
		return p.cfg.MinDelay
	}
	return p.cfg.MinDelay + time.Duration(p.rng.Int63n(int64(span)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
