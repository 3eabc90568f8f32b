// internal/records/records_test.go
package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssetKind(t *testing.T) {
	for _, s := range []string{"poster", "backdrop", "title_card", "season_cover", "show_cover", "background"} {
		k, err := ParseAssetKind(s)
		require.NoError(t, err)
		assert.Equal(t, AssetKind(s), k)
		assert.True(t, k.Valid())
	}

	for _, s := range []string{"", "Poster", "titlecard", "cover"} {
		_, err := ParseAssetKind(s)
		assert.Error(t, err, "expected %q to be rejected", s)
	}
}

func TestBatchLenCountsNestedPosters(t *testing.T) {
	b := Batch{
		Posters: []PosterRecord{{Title: "A"}, {Title: "B"}},
		Sets: []SetRecord{
			{ID: "1", Posters: []PosterRecord{{Title: "C"}}},
			{ID: "2", Posters: []PosterRecord{{Title: "D"}, {Title: "E"}}},
		},
	}
	assert.Equal(t, 5, b.Len())
}

func TestBatchMerge(t *testing.T) {
	a := Batch{Posters: []PosterRecord{{Title: "A"}}}
	a.Merge(Batch{
		Posters:     []PosterRecord{{Title: "B"}},
		Sets:        []SetRecord{{ID: "1"}},
		Collections: []CollectionRecord{{Title: "Trilogy"}},
	})

	assert.Len(t, a.Posters, 2)
	assert.Len(t, a.Sets, 1)
	assert.Len(t, a.Collections, 1)
}

func TestBatchValidate(t *testing.T) {
	valid := Batch{
		Posters: []PosterRecord{
			{Title: "Loose", AssetKind: AssetPoster},
			{Title: "Member", AssetKind: AssetPoster, SetID: "10"},
		},
		Sets: []SetRecord{{
			ID:      "10",
			Posters: []PosterRecord{{Title: "Nested", AssetKind: AssetSeasonCover}},
		}},
	}
	require.NoError(t, valid.Validate())

	badKind := Batch{Posters: []PosterRecord{{Title: "X", AssetKind: "thumbnail"}}}
	assert.ErrorContains(t, badKind.Validate(), "invalid asset kind")

	badNested := Batch{Sets: []SetRecord{{
		ID:      "1",
		Posters: []PosterRecord{{Title: "Y", AssetKind: ""}},
	}}}
	assert.ErrorContains(t, badNested.Validate(), "invalid asset kind")

	danglingRef := Batch{Posters: []PosterRecord{{Title: "Z", AssetKind: AssetPoster, SetID: "99"}}}
	assert.ErrorContains(t, danglingRef.Validate(), "unknown set")
}
