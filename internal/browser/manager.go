// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/nullbytefox/posterhound/internal/browser/fingerprint"
	"github.com/nullbytefox/posterhound/internal/browser/stealth"
	"github.com/nullbytefox/posterhound/internal/config"
)

const launchProbeTimeout = 30 * time.Second

// Manager owns the headless browser process. One process serves the whole
// run; every page visit gets its own isolated tab with a freshly generated
// fingerprint.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx manages the browser process. All tab contexts derive
	// from it.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// gen draws fingerprint profiles; mu guards its rng.
	gen *fingerprint.Generator
	mu  sync.Mutex

	// wg tracks open tabs for a graceful shutdown.
	wg sync.WaitGroup
}

// NewManager launches the browser process and verifies it responds before
// returning.
func NewManager(ctx context.Context, cfg config.BrowserConfig, rng *rand.Rand, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
		gen:    fingerprint.NewGenerator(rng),
	}

	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

// launchBrowser prepares allocator options and starts the headless browser
// process.
func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...")

	allocCtx, cancel := newAllocatorContext(ctx, m.buildAllocatorOptions())
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	// Probe with a throwaway tab to confirm the process is alive.
	probeCtx, cancelProbe := context.WithTimeout(allocCtx, launchProbeTimeout)
	probeCtx, cancelProbeTab := chromedp.NewContext(probeCtx)
	defer cancelProbeTab()
	defer cancelProbe()

	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// newAllocatorContext derives the allocator context detached from the
// caller's cancellation. The browser process is torn down by Shutdown, never
// by the caller's context: a cancellation signal must leave in-flight
// navigations and their tabs intact until they finish.
func newAllocatorContext(ctx context.Context, opts []chromedp.ExecAllocatorOption) (context.Context, context.CancelFunc) {
	return chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
}

// buildAllocatorOptions assembles the flags for a stealthy browser instance.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption

	// Start from the defaults, dropping the flag that advertises automation.
	// Flags live in a map keyed by name, and a bool flag set to false is
	// omitted from the command line, so overriding with false removes it.
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("enable-automation", false))

	opts = append(opts,
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", m.cfg.IgnoreTLSErrors),
		// Keeps navigator.webdriver from being set by the renderer.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Headless),
	)

	// Custom arguments from the config file.
	for _, arg := range m.cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Flags required when running inside containers.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// Tab is an isolated browsing context with its fingerprint already applied.
type Tab struct {
	// Ctx drives chromedp actions against this tab.
	Ctx context.Context
	// Profile is the fingerprint the tab presents.
	Profile fingerprint.Profile

	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// NewTab opens a fresh tab with a newly drawn fingerprint. The caller must
// Close the tab when finished with it.
func (m *Manager) NewTab() (*Tab, error) {
	m.mu.Lock()
	profile := m.gen.Generate()
	m.mu.Unlock()

	tabCtx, cancel := chromedp.NewContext(m.allocatorCtx)

	if err := chromedp.Run(tabCtx, stealth.Apply(profile, m.logger)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to apply fingerprint to new tab: %w", err)
	}

	m.wg.Add(1)
	return &Tab{
		Ctx:     tabCtx,
		Profile: profile,
		cancel:  cancel,
		wg:      &m.wg,
	}, nil
}

// Close tears the tab down. Safe to call more than once.
func (t *Tab) Close() {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.cancel()
	t.wg.Done()
}

// Shutdown waits for open tabs to close and then terminates the browser
// process. The context bounds how long to wait for stragglers.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated. Waiting for open tabs...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All tabs have closed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	if m.allocatorCancel != nil {
		m.logger.Info("Shutting down browser process...")
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
	}
	return nil
}
