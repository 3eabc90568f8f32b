// internal/browser/fingerprint/fingerprint.go
package fingerprint

import (
	"math/rand"
	"strings"
)

// Viewport is a browser window size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// Geolocation is a latitude/longitude pair reported to the page.
type Geolocation struct {
	Latitude  float64
	Longitude float64
}

// Header is one ordered HTTP header entry. Order matters: header ordering is
// itself a fingerprinting signal, so the set is a slice, not a map.
type Header struct {
	Name  string
	Value string
}

// Profile is a randomized but internally consistent client identity. It is
// immutable once created and owned by exactly one browsing session.
type Profile struct {
	UserAgent           string
	Viewport            Viewport
	Headers             []Header
	Locale              string
	Timezone            string
	Geolocation         Geolocation
	HardwareConcurrency int
	DeviceMemory        int
	Platform            string
	Vendor              string
}

// AcceptLanguage returns the Accept-Language header value carried by the
// profile, or "" if the header set is malformed.
func (p Profile) AcceptLanguage() string {
	for _, h := range p.Headers {
		if h.Name == "Accept-Language" {
			return h.Value
		}
	}
	return ""
}

// userAgents rotates across current desktop Chrome and Firefox builds.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:128.0) Gecko/20100101 Firefox/128.0",
}

// viewports covers the most common desktop resolutions.
var viewports = []Viewport{
	{Width: 1920, Height: 1080},
	{Width: 1366, Height: 768},
	{Width: 1536, Height: 864},
	{Width: 2560, Height: 1440},
	{Width: 1440, Height: 900},
}

// localeEntry binds a locale to a timezone and geolocation that belong together.
type localeEntry struct {
	Locale   string
	Timezone string
	Geo      Geolocation
}

var locales = []localeEntry{
	{Locale: "en-US", Timezone: "America/New_York", Geo: Geolocation{Latitude: 40.7128, Longitude: -74.0060}},
	{Locale: "en-US", Timezone: "America/Chicago", Geo: Geolocation{Latitude: 41.8781, Longitude: -87.6298}},
	{Locale: "en-US", Timezone: "America/Los_Angeles", Geo: Geolocation{Latitude: 34.0522, Longitude: -118.2437}},
}

var hardwareConcurrencies = []int{4, 8, 8, 12, 16}
var deviceMemories = []int{4, 8, 8, 16}

// Generator produces fingerprint profiles from fixed pools. It is pure with
// respect to the supplied random source, so seeded generators are reproducible.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a Generator drawing from the given random source.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Generate draws one internally consistent profile. It is a total function
// over the pools and never fails at runtime.
func (g *Generator) Generate() Profile {
	ua := userAgents[g.rng.Intn(len(userAgents))]
	vp := viewports[g.rng.Intn(len(viewports))]
	loc := locales[g.rng.Intn(len(locales))]

	p := Profile{
		UserAgent:           ua,
		Viewport:            vp,
		Locale:              loc.Locale,
		Timezone:            loc.Timezone,
		Geolocation:         loc.Geo,
		HardwareConcurrency: hardwareConcurrencies[g.rng.Intn(len(hardwareConcurrencies))],
		DeviceMemory:        deviceMemories[g.rng.Intn(len(deviceMemories))],
		Platform:            platformFor(ua),
		Vendor:              vendorFor(ua),
	}
	p.Headers = headerSet(ua, loc.Locale)
	return p
}

// platformFor derives the navigator.platform value consistent with the user agent.
func platformFor(ua string) string {
	switch {
	case strings.Contains(ua, "Windows NT"):
		return "Win32"
	case strings.Contains(ua, "Macintosh"):
		return "MacIntel"
	default:
		return "Linux x86_64"
	}
}

// vendorFor derives navigator.vendor: Chrome reports Google Inc., Firefox an
// empty string.
func vendorFor(ua string) string {
	if strings.Contains(ua, "Firefox") {
		return ""
	}
	return "Google Inc."
}

// headerSet composes the ordered 12-entry header set matching the user agent
// and locale.
func headerSet(ua, locale string) []Header {
	acceptLang := locale + "," + baseLanguage(locale) + ";q=0.9"
	return []Header{
		{Name: "User-Agent", Value: ua},
		{Name: "Accept", Value: "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"},
		{Name: "Accept-Language", Value: acceptLang},
		{Name: "Accept-Encoding", Value: "gzip, deflate, br"},
		{Name: "DNT", Value: "1"},
		{Name: "Connection", Value: "keep-alive"},
		{Name: "Upgrade-Insecure-Requests", Value: "1"},
		{Name: "Sec-Fetch-Dest", Value: "document"},
		{Name: "Sec-Fetch-Mode", Value: "navigate"},
		{Name: "Sec-Fetch-Site", Value: "none"},
		{Name: "Sec-Fetch-User", Value: "?1"},
		{Name: "Cache-Control", Value: "max-age=0"},
	}
}

// baseLanguage strips the region subtag: "en-US" -> "en".
func baseLanguage(locale string) string {
	if i := strings.IndexByte(locale, '-'); i > 0 {
		return locale[:i]
	}
	return locale
}
