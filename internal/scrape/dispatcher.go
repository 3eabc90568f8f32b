// internal/scrape/dispatcher.go
package scrape

import (
	"fmt"
	"net/url"
	"strings"
)

// Variant selects the extraction adapter for an input.
type Variant string

const (
	// VariantGrid is the DOM-grid adapter (ThePosterDB and local HTML).
	VariantGrid Variant = "grid"
	// VariantJSON is the embedded-hydration-payload adapter (MediUX).
	VariantJSON Variant = "json"
)

// GridKind refines VariantGrid by page shape.
type GridKind string

const (
	// GridSet is a set page; every tile belongs to one set.
	GridSet GridKind = "set"
	// GridPoster is a single-poster page; the adapter follows its set link.
	GridPoster GridKind = "poster"
	// GridUser is a paginated user-uploads listing.
	GridUser GridKind = "user"
	// GridLocal is a local HTML file parsed without navigation.
	GridLocal GridKind = ""
)

// Classification is the dispatcher's verdict on one input.
type Classification struct {
	Variant  Variant
	GridKind GridKind
	// Local is true for filesystem inputs, which skip navigation, timing,
	// and interaction entirely.
	Local bool
}

// Classify maps a URL or local path to an adapter variant. Pure string
// matching; no network access, no browser resources.
func Classify(input string) (Classification, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Classification{}, newError(KindUnsupportedSource, input, fmt.Errorf("empty input"))
	}

	if u, err := url.Parse(trimmed); err == nil && u.Host != "" {
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		switch {
		case host == "theposterdb.com":
			return Classification{Variant: VariantGrid, GridKind: posterDBKind(u.Path)}, nil
		case host == "mediux.pro" && strings.Contains(u.Path, "sets"):
			return Classification{Variant: VariantJSON}, nil
		}
	}

	// Local HTML files are parsed as static grid content.
	if strings.HasSuffix(strings.ToLower(trimmed), ".html") && !strings.Contains(trimmed, "://") {
		return Classification{Variant: VariantGrid, GridKind: GridLocal, Local: true}, nil
	}

	return Classification{}, newError(KindUnsupportedSource, input, fmt.Errorf("no adapter for input"))
}

func posterDBKind(path string) GridKind {
	switch {
	case strings.Contains(path, "/user/"):
		return GridUser
	case strings.Contains(path, "/poster/"):
		return GridPoster
	default:
		return GridSet
	}
}

// ParseURLList filters a bulk-import list down to scrapeable lines, skipping
// blanks and comment lines starting with "#" or "//".
func ParseURLList(lines []string) []string {
	var urls []string
	for _, line := range lines {
		u := strings.TrimSpace(line)
		if u == "" || strings.HasPrefix(u, "#") || strings.HasPrefix(u, "//") {
			continue
		}
		urls = append(urls, u)
	}
	return urls
}
