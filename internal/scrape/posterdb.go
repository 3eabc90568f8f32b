// internal/scrape/posterdb.go
package scrape

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/nullbytefox/posterhound/internal/records"
)

const (
	posterDBAssetBase = "https://theposterdb.com/api/assets/"
	uploadsPerPage    = 24

	gridSelector    = "div.row.d-flex.flex-wrap.m-0.w-100.mx-n1.mt-n1"
	tileSelector    = "div.col-6.col-lg-2.p-1"
	captionSelector = "p.p-0.mb-1.text-break"
	typeSelector    = `a.text-white[data-toggle="tooltip"][data-placement="top"]`
	setLinkSelector = `a[data-toggle="tooltip"][title="View Set Page"]`
	viewAllSelector = "a.rounded.view_all"
)

var yearSuffixRe = regexp.MustCompile(`\((\d{4})\)`)

// GridAdapter extracts records from ThePosterDB's server-rendered tile grids.
// It handles three page shapes: set pages (parse all tiles), single-poster
// pages (follow the tile's parent-set link, falling back to the page title
// when no set exists), and user-profile pages (walk the uploads pagination).
type GridAdapter struct {
	fetcher      PageFetcher
	maxUserPages int
	logger       *zap.Logger
}

// NewGridAdapter wires the adapter to a fetcher for following set links and
// pagination.
func NewGridAdapter(fetcher PageFetcher, maxUserPages int, logger *zap.Logger) *GridAdapter {
	return &GridAdapter{
		fetcher:      fetcher,
		maxUserPages: maxUserPages,
		logger:       logger.Named("grid_adapter"),
	}
}

// Extract parses a captured page into normalized records. The page shape is
// derived from the page URL; local files are parsed as plain grids.
func (a *GridAdapter) Extract(ctx context.Context, page *RawPage) (*records.Batch, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, newError(KindContentUnavailable, page.URL, err)
	}

	cls, clsErr := Classify(page.URL)
	if clsErr != nil {
		// Adapter invoked directly on unclassifiable content (local HTML
		// handed over by the scraper); treat as a plain grid.
		cls = Classification{Variant: VariantGrid, GridKind: GridLocal, Local: true}
	}

	switch cls.GridKind {
	case GridUser:
		return a.extractUser(ctx, page, doc)
	case GridPoster:
		return a.extractFromPoster(ctx, page, doc)
	default:
		return a.extractSet(page, doc)
	}
}

// extractSet parses a set page (or a local grid) into one SetRecord.
func (a *GridAdapter) extractSet(page *RawPage, doc *goquery.Document) (*records.Batch, error) {
	posters := a.parseGrid(page, doc)
	if len(posters) == 0 {
		return nil, newError(KindContentUnavailable, page.URL, fmt.Errorf("no poster grid found"))
	}

	setID := pathSegmentAfter(page.URL, "/set/")
	if setID == "" {
		// Local grids carry no set identity.
		return &records.Batch{Posters: posters}, nil
	}

	for i := range posters {
		posters[i].SetID = setID
	}

	set := records.SetRecord{
		ID:      setID,
		Title:   pageTitle(doc),
		Posters: posters,
	}

	batch := &records.Batch{Sets: []records.SetRecord{set}}
	for _, p := range posters {
		if p.MediaKind == records.MediaCollection {
			batch.Sets[0].CollectionTitle = p.Title
			batch.Collections = append(batch.Collections, records.CollectionRecord{Title: p.Title})
			break
		}
	}
	return batch, nil
}

// extractFromPoster resolves a single-poster page to its full parent set. A
// poster outside any set falls back to the page-title grammar so the caller
// still gets the one record instead of an orphan error.
func (a *GridAdapter) extractFromPoster(ctx context.Context, page *RawPage, doc *goquery.Document) (*records.Batch, error) {
	setURL := findSetLink(doc)
	if setURL == "" {
		return a.extractSinglePoster(page, doc)
	}

	setURL = absolutePosterDBURL(setURL)
	setPage, err := a.fetcher.FetchPage(ctx, setURL, HintServerRendered)
	if err != nil {
		return nil, err
	}

	setDoc, err := goquery.NewDocumentFromReader(strings.NewReader(setPage.HTML))
	if err != nil {
		return nil, newError(KindContentUnavailable, setURL, err)
	}
	return a.extractSet(setPage, setDoc)
}

// extractUser walks the paginated uploads listing, bounded by the configured
// page cap, and returns the deduplicated union of every page's tiles.
func (a *GridAdapter) extractUser(ctx context.Context, page *RawPage, doc *goquery.Document) (*records.Batch, error) {
	countStr := doc.Find("span.numCount").First().AttrOr("data-count", "")
	count, err := strconv.Atoi(countStr)
	if err != nil || count <= 0 {
		return nil, newError(KindContentUnavailable, page.URL, fmt.Errorf("could not determine upload count"))
	}

	pages := int(math.Ceil(float64(count) / uploadsPerPage))
	if a.maxUserPages > 0 && pages > a.maxUserPages {
		a.logger.Info("Capping user pagination",
			zap.Int("pages", pages),
			zap.Int("cap", a.maxUserPages),
		)
		pages = a.maxUserPages
	}

	baseURL := page.URL
	if i := strings.Index(baseURL, "?"); i >= 0 {
		baseURL = baseURL[:i]
	}

	seen := make(map[string]struct{})
	batch := &records.Batch{}
	for n := 1; n <= pages; n++ {
		pageURL := fmt.Sprintf("%s?section=uploads&page=%d", baseURL, n)
		a.logger.Debug("Scraping user uploads page",
			zap.Int("page", n),
			zap.Int("of", pages),
		)

		raw, err := a.fetcher.FetchPage(ctx, pageURL, HintServerRendered)
		if err != nil {
			return nil, err
		}
		pageDoc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.HTML))
		if err != nil {
			return nil, newError(KindContentUnavailable, pageURL, err)
		}

		for _, p := range a.parseGrid(raw, pageDoc) {
			if _, dup := seen[p.ImageURL]; dup {
				continue
			}
			seen[p.ImageURL] = struct{}{}
			batch.Posters = append(batch.Posters, p)
		}
	}

	if batch.Len() == 0 {
		return nil, newError(KindContentUnavailable, page.URL, fmt.Errorf("no uploads found"))
	}
	return batch, nil
}

// parseGrid extracts every tile of the poster grid. Malformed tiles are
// dropped with a warning; they never abort the page.
func (a *GridAdapter) parseGrid(page *RawPage, doc *goquery.Document) []records.PosterRecord {
	var posters []records.PosterRecord

	doc.Find(gridSelector).First().Find(tileSelector).Each(func(i int, tile *goquery.Selection) {
		rec, err := parseTile(page.URL, tile)
		if err != nil {
			a.logger.Warn("Skipping malformed poster tile",
				zap.String("url", page.URL),
				zap.Int("tile", i),
				zap.Error(err),
			)
			return
		}
		posters = append(posters, rec)
	})

	return posters
}

// parseTile reads one grid tile: media type from the tooltip link, the asset
// id from the overlay, and title/year/season from the caption grammar.
func parseTile(sourceURL string, tile *goquery.Selection) (records.PosterRecord, error) {
	mediaType := tile.Find(typeSelector).First().AttrOr("title", "")
	if mediaType == "" {
		return records.PosterRecord{}, newError(KindMalformedRecord, sourceURL, fmt.Errorf("tile has no media type"))
	}

	posterID := tile.Find("div.overlay").First().AttrOr("data-poster-id", "")
	if posterID == "" {
		return records.PosterRecord{}, newError(KindMalformedRecord, sourceURL, fmt.Errorf("tile has no poster id"))
	}

	caption := strings.TrimSpace(tile.Find(captionSelector).First().Text())
	if caption == "" {
		return records.PosterRecord{}, newError(KindMalformedRecord, sourceURL, fmt.Errorf("tile has no caption"))
	}

	rec := captionToRecord(mediaType, caption)
	rec.SourceURL = sourceURL
	rec.ImageURL = posterDBAssetBase + posterID
	return rec, nil
}

// captionToRecord applies the caption grammar. A malformed year or season
// yields nil fields, not an error.
func captionToRecord(mediaType, caption string) records.PosterRecord {
	switch mediaType {
	case "Show":
		return showCaption(caption)
	case "Collection":
		return records.PosterRecord{
			Title:     caption,
			MediaKind: records.MediaCollection,
			AssetKind: records.AssetPoster,
		}
	default:
		return movieCaption(caption)
	}
}

// showCaption parses `"Title (Year)"`, `"Title (Year) - Season N"`, and
// `"Title (Year) - Specials"`. A bare title is the show cover.
func showCaption(caption string) records.PosterRecord {
	rec := records.PosterRecord{
		MediaKind: records.MediaShow,
		AssetKind: records.AssetShowCover,
	}

	rec.Title = strings.TrimSpace(strings.SplitN(caption, " (", 2)[0])
	rec.Year = captionYear(caption)

	if strings.Contains(caption, " - ") {
		parts := strings.Split(caption, " - ")
		suffix := strings.TrimSpace(parts[len(parts)-1])
		switch {
		case suffix == "Specials":
			rec.Season = records.IntPtr(0)
			rec.AssetKind = records.AssetSeasonCover
		case strings.HasPrefix(suffix, "Season "):
			if n, err := strconv.Atoi(strings.TrimPrefix(suffix, "Season ")); err == nil {
				rec.Season = records.IntPtr(n)
				rec.AssetKind = records.AssetSeasonCover
			}
		}
	}

	return rec
}

// movieCaption parses `"Title (Year)"`, keeping parenthesized subtitles that
// are not years as part of the title.
func movieCaption(caption string) records.PosterRecord {
	rec := records.PosterRecord{
		MediaKind: records.MediaMovie,
		AssetKind: records.AssetPoster,
		Title:     caption,
	}

	matches := yearSuffixRe.FindAllStringSubmatchIndex(caption, -1)
	if len(matches) == 0 {
		return rec
	}

	// The year is the last (YYYY) group; everything before it is the title.
	last := matches[len(matches)-1]
	if y, err := strconv.Atoi(caption[last[2]:last[3]]); err == nil {
		rec.Year = records.IntPtr(y)
	}
	rec.Title = strings.TrimSpace(caption[:last[0]])
	return rec
}

// extractSinglePoster handles a poster detail page with no parent set,
// using the document title grammar:
//
//	"Title (Year) - uploader | The Poster Database (TPDb)"
//	"Title (Year) Poster | TPDb"
func (a *GridAdapter) extractSinglePoster(page *RawPage, doc *goquery.Document) (*records.Batch, error) {
	posterID := pathSegmentAfter(page.URL, "/poster/")
	if posterID == "" {
		return nil, newError(KindContentUnavailable, page.URL, fmt.Errorf("no poster id in url"))
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return nil, newError(KindContentUnavailable, page.URL, fmt.Errorf("page has no title"))
	}
	caption := cleanDetailTitle(title)

	mediaType := detailMediaType(doc)
	if mediaType == "" {
		return nil, newError(KindContentUnavailable, page.URL, fmt.Errorf("could not determine media type"))
	}

	rec := captionToRecord(mediaType, caption)
	rec.SourceURL = page.URL
	rec.ImageURL = posterDBAssetBase + posterID
	return &records.Batch{Posters: []records.PosterRecord{rec}}, nil
}

// cleanDetailTitle strips the site suffixes from a poster detail page title.
func cleanDetailTitle(pageTitle string) string {
	title := pageTitle
	if idx := strings.Index(title, " | "); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
		// Drop a trailing " - uploader" segment; uploader handles carry no
		// digits, unlike subtitles and season markers.
		if strings.Contains(title, " - ") {
			parts := strings.Split(title, " - ")
			last := parts[len(parts)-1]
			if !strings.ContainsAny(last, "0123456789") {
				title = strings.TrimSpace(strings.Join(parts[:len(parts)-1], " - "))
			}
		}
	} else if idx := strings.Index(title, " - The Poster Database"); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
	}
	return strings.TrimSpace(strings.TrimSuffix(title, " Poster"))
}

// detailMediaType finds the "Type:" label on a poster detail page.
func detailMediaType(doc *goquery.Document) string {
	mediaType := ""
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if idx := strings.Index(text, "Type:"); idx >= 0 {
			mediaType = strings.TrimSpace(text[idx+len("Type:"):])
			return false
		}
		return true
	})
	return mediaType
}

func findSetLink(doc *goquery.Document) string {
	if href := doc.Find(setLinkSelector).First().AttrOr("href", ""); href != "" {
		return href
	}
	return doc.Find(viewAllSelector).First().AttrOr("href", "")
}

func absolutePosterDBURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return "https://theposterdb.com" + href
}

func captionYear(caption string) *int {
	m := yearSuffixRe.FindStringSubmatch(caption)
	if m == nil {
		return nil
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return records.IntPtr(y)
}

// pathSegmentAfter returns the path segment following marker, e.g. the set
// id from "/set/12345".
func pathSegmentAfter(rawURL, marker string) string {
	idx := strings.Index(rawURL, marker)
	if idx < 0 {
		return ""
	}
	rest := rawURL[idx+len(marker):]
	for i, r := range rest {
		if r == '/' || r == '?' || r == '#' {
			return rest[:i]
		}
	}
	return rest
}

func pageTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if idx := strings.Index(title, " | "); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
	}
	return title
}
