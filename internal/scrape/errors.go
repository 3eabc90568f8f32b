// internal/scrape/errors.go
package scrape

import "fmt"

// Kind classifies a scrape failure.
type Kind string

const (
	// KindUnsupportedSource means the input matched no known site pattern.
	KindUnsupportedSource Kind = "unsupported_source"
	// KindNavigationTimeout means the page did not load, after one retry.
	KindNavigationTimeout Kind = "navigation_timeout"
	// KindContentUnavailable means the page loaded but the expected
	// structure was absent.
	KindContentUnavailable Kind = "content_unavailable"
	// KindMalformedRecord means a single record failed to parse. Individual
	// malformed records are dropped with a warning and never surface as an
	// error; the kind exists for the JSON adapter's payload-level failure
	// path and for diagnostics.
	KindMalformedRecord Kind = "malformed_record"
	// KindRateLimitSuspected is reserved for future detection of blocking
	// responses. It currently surfaces as KindContentUnavailable.
	KindRateLimitSuspected Kind = "rate_limit_suspected"
)

// ScrapeError is a typed per-URL failure. Every failure leaving this package
// is one of these; nothing panics across the package boundary.
type ScrapeError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.URL)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Is matches two ScrapeErrors on Kind alone, so callers can test
// errors.Is(err, &ScrapeError{Kind: KindNavigationTimeout}).
func (e *ScrapeError) Is(target error) bool {
	t, ok := target.(*ScrapeError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.URL == "" || t.URL == e.URL)
}

func newError(kind Kind, url string, err error) *ScrapeError {
	return &ScrapeError{Kind: kind, URL: url, Err: err}
}
