// internal/scrape/mediux_test.go
package scrape

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nullbytefox/posterhound/internal/records"
)

func hydrationPage(payload string) *RawPage {
	return &RawPage{
		URL: "https://mediux.pro/sets/42",
		HTML: fmt.Sprintf(`<html><body>
			<script>var analytics = {};</script>
			<script>%s</script>
		</body></html>`, payload),
	}
}

const showPayload = `self.__next_f.push({"set":{"id":"42","set_title":"Severance Set","files":[
	{"id":"aaa1","fileType":"poster","title":"Severance","show_id":{"id":"s1"}},
	{"id":"aaa2","fileType":"backdrop","title":"Severance Backdrop","show_id_backdrop":{"id":"s1"}},
	{"id":"aaa3","fileType":"title_card","title":"Severance S01 E04","episode_id":{"id":"e4","season_id":{"season_number":1}}},
	{"id":"aaa4","fileType":"poster","title":"Season 1","season_id":{"id":"sea1"}}
],"show":{"name":"Severance","first_air_date":"2022-02-18","seasons":[{"id":"sea1","season_number":1}]}}})`

func TestJSONAdapterShowSet(t *testing.T) {
	adapter := NewJSONAdapter(nil, zaptest.NewLogger(t))

	batch, err := adapter.Extract(context.Background(), hydrationPage(showPayload))
	require.NoError(t, err)
	require.NoError(t, batch.Validate())
	require.Len(t, batch.Posters, 4)

	byKind := map[records.AssetKind]records.PosterRecord{}
	for _, p := range batch.Posters {
		byKind[p.AssetKind] = p
		assert.Equal(t, "Severance", p.Title)
		require.NotNil(t, p.Year)
		assert.Equal(t, 2022, *p.Year)
		assert.Regexp(t, `^https://api\.mediux\.pro/assets/aaa\d$`, p.ImageURL)
	}

	tc := byKind[records.AssetTitleCard]
	require.NotNil(t, tc.Season)
	assert.Equal(t, 1, *tc.Season)
	require.NotNil(t, tc.Episode)
	assert.Equal(t, 4, *tc.Episode)

	sc := byKind[records.AssetSeasonCover]
	require.NotNil(t, sc.Season)
	assert.Equal(t, 1, *sc.Season)

	assert.Contains(t, byKind, records.AssetShowCover)
	assert.Contains(t, byKind, records.AssetBackdrop)
}

func TestJSONAdapterAppliesAssetKindFilter(t *testing.T) {
	filter := map[records.AssetKind]struct{}{
		records.AssetShowCover: {},
		records.AssetTitleCard: {},
	}
	adapter := NewJSONAdapter(filter, zaptest.NewLogger(t))

	batch, err := adapter.Extract(context.Background(), hydrationPage(showPayload))
	require.NoError(t, err)

	require.Len(t, batch.Posters, 2)
	for _, p := range batch.Posters {
		assert.NotEqual(t, records.AssetBackdrop, p.AssetKind)
		assert.NotEqual(t, records.AssetSeasonCover, p.AssetKind)
	}
}

func TestJSONAdapterMovieCollection(t *testing.T) {
	payload := `{"set":{"id":"7","files":[
		{"id":"m1","fileType":"poster","movie_id":{"id":"10"}},
		{"id":"m2","fileType":"poster","movie_id":{"id":"11"}},
		{"id":"c1","fileType":"poster","collection_id":{"id":"77"}}
	],"collection":{"collection_name":"Alien Collection","movies":[
		{"id":"10","title":"Alien","release_date":"1979-05-25"},
		{"id":"11","title":"Aliens","release_date":"1986-07-18"}
	]}}}`

	adapter := NewJSONAdapter(nil, zaptest.NewLogger(t))
	batch, err := adapter.Extract(context.Background(), hydrationPage(payload))
	require.NoError(t, err)

	require.Len(t, batch.Posters, 3)
	assert.Equal(t, "Alien", batch.Posters[0].Title)
	require.NotNil(t, batch.Posters[0].Year)
	assert.Equal(t, 1979, *batch.Posters[0].Year)
	assert.Equal(t, records.MediaCollection, batch.Posters[2].MediaKind)
	assert.Equal(t, "Alien Collection", batch.Posters[2].Title)
	assert.Nil(t, batch.Posters[2].Year)

	require.Len(t, batch.Collections, 1)
	assert.Len(t, batch.Collections[0].Members, 2)
}

func TestJSONAdapterEscapedPayload(t *testing.T) {
	// Framework escaping: backslashes and u0026 entities inside the script.
	payload := `self.__next_f.push("{\"set\":{\"id\":\"9\",\"files\":[{\"id\":\"x1\",\"fileType\":\"poster\",\"movie_id\":{\"id\":\"20\"}}],\"movie\":{\"id\":\"20\",\"title\":\"Up u0026 Away\",\"release_date\":\"2010-01-01\"}}}")`

	adapter := NewJSONAdapter(nil, zaptest.NewLogger(t))
	batch, err := adapter.Extract(context.Background(), hydrationPage(payload))
	require.NoError(t, err)

	require.Len(t, batch.Posters, 1)
	assert.Equal(t, "Up & Away", batch.Posters[0].Title)
	assert.Equal(t, "https://api.mediux.pro/assets/x1", batch.Posters[0].ImageURL)
}

func TestJSONAdapterMissingPayloadIsPageFatal(t *testing.T) {
	page := &RawPage{
		URL:  "https://mediux.pro/sets/404",
		HTML: "<html><body><script>var nothing = 1;</script></body></html>",
	}

	adapter := NewJSONAdapter(nil, zaptest.NewLogger(t))
	_, err := adapter.Extract(context.Background(), page)
	assert.ErrorIs(t, err, &ScrapeError{Kind: KindContentUnavailable})
}

func TestJSONAdapterSkipsSetLinkScript(t *testing.T) {
	page := &RawPage{
		URL: "https://mediux.pro/sets/8",
		HTML: `<html><body>
			<script>var menu = {"set": 1, "files": 2, "label": "Set Link "};</script>
		</body></html>`,
	}
	// Only a decoy script mentioning set+files; no real payload.
	adapter := NewJSONAdapter(nil, zaptest.NewLogger(t))
	_, err := adapter.Extract(context.Background(), page)
	assert.ErrorIs(t, err, &ScrapeError{Kind: KindContentUnavailable})
}
