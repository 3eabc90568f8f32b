// internal/scrape/orchestrator.go
package scrape

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/nullbytefox/posterhound/internal/browser"
	"github.com/nullbytefox/posterhound/internal/config"
	"github.com/nullbytefox/posterhound/internal/humanoid"
	"github.com/nullbytefox/posterhound/internal/pacing"
)

const networkQuietPeriod = 500 * time.Millisecond

// Orchestrator runs the full stealth page-visit pipeline: pace, open an
// isolated tab with a fresh fingerprint, navigate with a randomly chosen wait
// strategy, settle, interact, and capture the rendered DOM.
type Orchestrator struct {
	manager *browser.Manager
	pacer   *pacing.Pacer
	cfg     config.BrowserConfig

	// pageWaitMin and pageWaitMax bound the extra jitter added to the
	// post-load settle.
	pageWaitMin time.Duration
	pageWaitMax time.Duration

	logger *zap.Logger

	// mu guards rng; each fetch derives a private rng from it.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewOrchestrator wires the orchestrator to a running browser manager and a
// shared pacer.
func NewOrchestrator(manager *browser.Manager, pacer *pacing.Pacer, cfg config.BrowserConfig, pageWaitMin, pageWaitMax time.Duration, rng *rand.Rand, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		manager:     manager,
		pacer:       pacer,
		cfg:         cfg,
		pageWaitMin: pageWaitMin,
		pageWaitMax: pageWaitMax,
		logger:      logger.Named("orchestrator"),
		rng:         rng,
	}
}

// FetchPage visits one URL and returns its rendered content. The pacing wait
// honors the caller's cancellation; once navigation begins the visit runs to
// completion under its own timeout, so a cancelled run never abandons a tab
// mid-navigation. A navigation timeout is retried once with a fresh wait
// strategy.
func (o *Orchestrator) FetchPage(ctx context.Context, pageURL string, hint SiteHint) (*RawPage, error) {
	if err := o.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	// Bounded non-cancellability window: detached from the caller's cancel,
	// limited by the navigation timeout.
	navCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.NavigationTimeout)
	defer cancel()

	rng := o.deriveRNG()

	wait := pickWaitKind(rng)
	page, err := o.fetchOnce(navCtx, rng, pageURL, hint, wait)
	if err == nil {
		return page, nil
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		return nil, newError(KindContentUnavailable, pageURL, err)
	}

	o.logger.Warn("Navigation timed out, retrying with a fresh wait strategy",
		zap.String("url", pageURL),
		zap.String("wait", string(wait)),
	)

	retryCtx, cancelRetry := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.NavigationTimeout)
	defer cancelRetry()

	wait = pickWaitKind(rng)
	page, err = o.fetchOnce(retryCtx, rng, pageURL, hint, wait)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(KindNavigationTimeout, pageURL, err)
		}
		return nil, newError(KindContentUnavailable, pageURL, err)
	}
	return page, nil
}

// fetchOnce performs a single navigation attempt in a fresh tab.
func (o *Orchestrator) fetchOnce(ctx context.Context, rng *rand.Rand, pageURL string, hint SiteHint, wait WaitKind) (*RawPage, error) {
	tab, err := o.manager.NewTab()
	if err != nil {
		return nil, err
	}
	defer tab.Close()

	// Bound the tab's context by this attempt's deadline.
	runCtx := tab.Ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancelRun context.CancelFunc
		runCtx, cancelRun = context.WithDeadline(tab.Ctx, deadline)
		defer cancelRun()
	}

	watcher := newNetWatcher(runCtx)
	if err := chromedp.Run(runCtx, network.Enable()); err != nil {
		return nil, err
	}

	if err := chromedp.Run(runCtx, chromedp.Navigate(pageURL)); err != nil {
		return nil, err
	}

	if wait == WaitNetworkIdle {
		idleCtx, cancelIdle := context.WithTimeout(runCtx, o.cfg.SettleTimeout)
		if err := watcher.WaitIdle(idleCtx, networkQuietPeriod); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			cancelIdle()
			return nil, err
		}
		cancelIdle()
	}

	if err := sleepCtx(runCtx, o.settleDelay(rng, hint)); err != nil {
		return nil, err
	}

	// Incidental human activity. Failures are swallowed inside Perform.
	planner := humanoid.NewPlanner(rng, tab.Profile.Viewport.Width, tab.Profile.Viewport.Height)
	humanoid.Perform(runCtx, humanoid.NewCDPExecutor(), planner.Plan(), o.logger)

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, err
	}

	return &RawPage{URL: pageURL, HTML: html, FinalWaitKind: wait}, nil
}

// settleDelay returns the jittered post-load wait for a site. Script-heavy
// pages need longer for hydration; server-rendered ones only need a beat.
// The configured page-wait window adds uniform jitter on top, and the settle
// timeout caps the total.
func (o *Orchestrator) settleDelay(rng *rand.Rand, hint SiteHint) time.Duration {
	var d time.Duration
	switch hint {
	case HintScriptHeavy:
		d = 2*time.Second + time.Duration(rng.Int63n(int64(2*time.Second)))
	default:
		d = 500*time.Millisecond + time.Duration(rng.Int63n(int64(time.Second)))
	}

	if span := o.pageWaitMax - o.pageWaitMin; span > 0 {
		d += o.pageWaitMin + time.Duration(rng.Int63n(int64(span)))
	} else {
		d += o.pageWaitMin
	}

	if d > o.cfg.SettleTimeout {
		d = o.cfg.SettleTimeout
	}
	return d
}

func (o *Orchestrator) deriveRNG() *rand.Rand {
	o.mu.Lock()
	defer o.mu.Unlock()
	return rand.New(rand.NewSource(o.rng.Int63()))
}

func pickWaitKind(rng *rand.Rand) WaitKind {
	if rng.Intn(2) == 0 {
		return WaitDOMContentLoaded
	}
	return WaitNetworkIdle
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// netWatcher tracks in-flight requests from CDP network events so the
// orchestrator can wait for the page to go quiet.
type netWatcher struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
}

func newNetWatcher(ctx context.Context) *netWatcher {
	w := &netWatcher{inflight: make(map[network.RequestID]struct{})}
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			w.mu.Lock()
			w.inflight[e.RequestID] = struct{}{}
			w.mu.Unlock()
		case *network.EventLoadingFinished:
			w.mu.Lock()
			delete(w.inflight, e.RequestID)
			w.mu.Unlock()
		case *network.EventLoadingFailed:
			w.mu.Lock()
			delete(w.inflight, e.RequestID)
			w.mu.Unlock()
		}
	})
	return w
}

// WaitIdle polls until no request has been in flight for quietPeriod.
func (w *netWatcher) WaitIdle(ctx context.Context, quietPeriod time.Duration) error {
	ticker := time.NewTicker(quietPeriod / 2)
	defer ticker.Stop()

	lastActivity := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.mu.Lock()
			busy := len(w.inflight) > 0
			w.mu.Unlock()

			if busy {
				lastActivity = time.Now()
			} else if time.Since(lastActivity) >= quietPeriod {
				return nil
			}
		}
	}
}
