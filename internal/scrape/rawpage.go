// internal/scrape/rawpage.go
package scrape

import "context"

// WaitKind names the navigation wait strategy a fetch settled on. The
// orchestrator picks one at random per call so page-load behavior does not
// itself become a fingerprint.
type WaitKind string

const (
	WaitDOMContentLoaded WaitKind = "domcontentloaded"
	WaitNetworkIdle      WaitKind = "networkidle"
	// WaitNone marks pages that were never navigated (local files, static
	// fetches).
	WaitNone WaitKind = "none"
)

// SiteHint tells the fetcher how long a page needs to settle after load.
type SiteHint string

const (
	// HintServerRendered pages carry their content in the initial HTML.
	HintServerRendered SiteHint = "server_rendered"
	// HintScriptHeavy pages hydrate client-side and need a longer settle.
	HintScriptHeavy SiteHint = "script_heavy"
)

// RawPage is the captured final content of one page visit. It is produced by
// a fetcher, consumed by exactly one extraction adapter, and then discarded.
type RawPage struct {
	URL           string
	HTML          string
	FinalWaitKind WaitKind
}

// PageFetcher retrieves fully rendered pages. The browser orchestrator and
// the static fetcher both implement it; the grid adapter depends on it to
// follow set links and walk pagination.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string, hint SiteHint) (*RawPage, error)
}
