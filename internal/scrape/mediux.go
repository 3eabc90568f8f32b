// internal/scrape/mediux.go
package scrape

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/nullbytefox/posterhound/internal/records"
)

// mediuxAssetBase is the direct-asset endpoint. Records always resolve to it,
// never to the page's Next.js image proxy, so every ImageURL is the original
// full-quality file.
const mediuxAssetBase = "https://api.mediux.pro/assets/"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONAdapter extracts records from MediUX's embedded hydration payload. The
// payload is the single script tag carrying the set's full state; a missing
// or unparseable payload is fatal for the page since JSON structure cannot be
// partially recovered.
type JSONAdapter struct {
	filter map[records.AssetKind]struct{}
	logger *zap.Logger
}

// NewJSONAdapter creates the adapter with an asset-kind filter. A nil or
// empty filter admits every kind.
func NewJSONAdapter(filter map[records.AssetKind]struct{}, logger *zap.Logger) *JSONAdapter {
	return &JSONAdapter{filter: filter, logger: logger.Named("json_adapter")}
}

// flexID tolerates the payload's mix of string and numeric identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexID(s)
	return nil
}

type hydrationRef struct {
	ID flexID `json:"id"`
}

type hydrationEpisodeRef struct {
	ID       flexID `json:"id"`
	SeasonID struct {
		SeasonNumber int `json:"season_number"`
	} `json:"season_id"`
}

type hydrationFile struct {
	ID           flexID               `json:"id"`
	FileType     string               `json:"fileType"`
	Title        string               `json:"title"`
	MovieID      *hydrationRef        `json:"movie_id"`
	ShowID       *hydrationRef        `json:"show_id"`
	ShowBackdrop *hydrationRef        `json:"show_id_backdrop"`
	SeasonID     *hydrationRef        `json:"season_id"`
	EpisodeID    *hydrationEpisodeRef `json:"episode_id"`
	CollectionID *hydrationRef        `json:"collection_id"`
}

type hydrationSeason struct {
	ID           flexID `json:"id"`
	SeasonNumber int    `json:"season_number"`
}

type hydrationShow struct {
	Name         string            `json:"name"`
	FirstAirDate string            `json:"first_air_date"`
	Seasons      []hydrationSeason `json:"seasons"`
}

type hydrationMovie struct {
	ID          flexID `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

type hydrationCollection struct {
	CollectionName string           `json:"collection_name"`
	Movies         []hydrationMovie `json:"movies"`
}

type hydrationSet struct {
	ID         flexID               `json:"id"`
	SetTitle   string               `json:"set_title"`
	Files      []hydrationFile      `json:"files"`
	Show       *hydrationShow       `json:"show"`
	Movie      *hydrationMovie      `json:"movie"`
	Collection *hydrationCollection `json:"collection"`
}

type hydrationPayload struct {
	Set hydrationSet `json:"set"`
}

// Extract locates the hydration payload and walks it into records, applying
// the asset-kind filter before records are constructed.
func (a *JSONAdapter) Extract(_ context.Context, page *RawPage) (*records.Batch, error) {
	payload, err := findHydrationPayload(page)
	if err != nil {
		return nil, err
	}
	if len(payload.Set.Files) == 0 {
		return nil, newError(KindContentUnavailable, page.URL, fmt.Errorf("hydration payload has no files"))
	}

	isShow := false
	for _, f := range payload.Set.Files {
		if f.ShowID != nil || f.ShowBackdrop != nil || f.SeasonID != nil || f.EpisodeID != nil {
			isShow = true
			break
		}
	}

	batch := &records.Batch{}
	for _, file := range payload.Set.Files {
		var (
			rec records.PosterRecord
			err error
		)
		if isShow {
			rec, err = a.showRecord(file, &payload.Set)
		} else {
			rec, err = a.movieRecord(file, &payload.Set)
		}
		if err != nil {
			a.logger.Warn("Skipping malformed asset entry",
				zap.String("url", page.URL),
				zap.String("asset", string(file.ID)),
				zap.Error(err),
			)
			continue
		}

		if !a.admit(rec.AssetKind) {
			a.logger.Debug("Asset kind filtered out",
				zap.String("title", rec.Title),
				zap.String("kind", string(rec.AssetKind)),
			)
			continue
		}

		rec.SourceURL = page.URL
		rec.ImageURL = mediuxAssetBase + string(file.ID)
		batch.Posters = append(batch.Posters, rec)
	}

	if payload.Set.Collection != nil {
		coll := records.CollectionRecord{Title: payload.Set.Collection.CollectionName}
		for _, m := range payload.Set.Collection.Movies {
			coll.Members = append(coll.Members, records.CollectionMember{
				Title: m.Title,
				Year:  yearOf(m.ReleaseDate),
			})
		}
		batch.Collections = append(batch.Collections, coll)
	}

	return batch, nil
}

func (a *JSONAdapter) admit(kind records.AssetKind) bool {
	if len(a.filter) == 0 {
		return true
	}
	_, ok := a.filter[kind]
	return ok
}

// showRecord maps one file of a show set: title cards (per episode),
// backdrops, season covers, and the show cover.
func (a *JSONAdapter) showRecord(file hydrationFile, set *hydrationSet) (records.PosterRecord, error) {
	if set.Show == nil {
		return records.PosterRecord{}, fmt.Errorf("show file without show metadata")
	}

	rec := records.PosterRecord{
		Title:     set.Show.Name,
		Year:      yearOf(set.Show.FirstAirDate),
		MediaKind: records.MediaShow,
	}

	switch {
	case file.FileType == "title_card":
		if file.EpisodeID == nil {
			return records.PosterRecord{}, fmt.Errorf("title card without episode reference")
		}
		rec.AssetKind = records.AssetTitleCard
		rec.Season = records.IntPtr(file.EpisodeID.SeasonID.SeasonNumber)
		rec.Episode = episodeNumber(file.Title)

	case file.FileType == "backdrop":
		rec.AssetKind = records.AssetBackdrop

	case file.SeasonID != nil:
		num, ok := seasonNumber(set.Show.Seasons, file.SeasonID.ID)
		if !ok {
			return records.PosterRecord{}, fmt.Errorf("season %s not found in show metadata", file.SeasonID.ID)
		}
		rec.AssetKind = records.AssetSeasonCover
		rec.Season = records.IntPtr(num)

	default:
		rec.AssetKind = records.AssetShowCover
	}

	return rec, nil
}

// movieRecord maps one file of a movie or collection set.
func (a *JSONAdapter) movieRecord(file hydrationFile, set *hydrationSet) (records.PosterRecord, error) {
	rec := records.PosterRecord{
		MediaKind: records.MediaMovie,
		AssetKind: movieAssetKind(file.FileType),
	}

	switch {
	case file.MovieID != nil && set.Movie != nil:
		rec.Title = set.Movie.Title
		rec.Year = yearOf(set.Movie.ReleaseDate)

	case file.MovieID != nil && set.Collection != nil:
		found := false
		for _, m := range set.Collection.Movies {
			if m.ID == file.MovieID.ID {
				rec.Title = m.Title
				rec.Year = yearOf(m.ReleaseDate)
				found = true
				break
			}
		}
		if !found {
			return records.PosterRecord{}, fmt.Errorf("movie %s not found in collection", file.MovieID.ID)
		}

	case file.CollectionID != nil && set.Collection != nil:
		rec.Title = set.Collection.CollectionName
		rec.MediaKind = records.MediaCollection

	default:
		return records.PosterRecord{}, fmt.Errorf("file references neither movie nor collection")
	}

	return rec, nil
}

func movieAssetKind(fileType string) records.AssetKind {
	switch fileType {
	case "backdrop":
		return records.AssetBackdrop
	case "background":
		return records.AssetBackground
	default:
		return records.AssetPoster
	}
}

// findHydrationPayload scans script tags for the one carrying the set state,
// sanitizes the framework's escaping, and decodes it.
func findHydrationPayload(page *RawPage) (*hydrationPayload, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, newError(KindContentUnavailable, page.URL, err)
	}

	var payload *hydrationPayload
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "files") || !strings.Contains(text, "set") {
			return true
		}
		if strings.Contains(text, `Set Link\`) {
			return true
		}

		decoded, err := decodeHydration(text)
		if err != nil {
			return true
		}
		if len(decoded.Set.Files) > 0 {
			payload = decoded
			return false
		}
		return true
	})

	if payload == nil {
		return nil, newError(KindContentUnavailable, page.URL, fmt.Errorf("hydration payload missing or unparseable"))
	}
	return payload, nil
}

// decodeHydration recovers the JSON object from a framework-escaped script
// body: strip the escaping, then cut from the first "{" to the last "}".
func decodeHydration(text string) (*hydrationPayload, error) {
	cleaned := strings.ReplaceAll(text, `\\\"`, "")
	cleaned = strings.ReplaceAll(cleaned, `\`, "")
	cleaned = strings.ReplaceAll(cleaned, "u0026", "&")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in script body")
	}

	var payload hydrationPayload
	if err := json.UnmarshalFromString(cleaned[start:end+1], &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// episodeNumber pulls the trailing episode marker out of a title card label
// like "S01 E04".
func episodeNumber(title string) *int {
	idx := strings.LastIndex(title, " E")
	if idx < 0 {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(title[idx+2:]))
	if err != nil {
		return nil
	}
	return records.IntPtr(n)
}

func seasonNumber(seasons []hydrationSeason, id flexID) (int, bool) {
	for _, s := range seasons {
		if s.ID == id {
			return s.SeasonNumber, true
		}
	}
	return 0, false
}

func yearOf(date string) *int {
	if len(date) < 4 {
		return nil
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return records.IntPtr(y)
}
