// internal/records/records.go
package records

import "fmt"

// AssetKind is the enumerated category of a downloadable image.
type AssetKind string

const (
	AssetPoster      AssetKind = "poster"
	AssetBackdrop    AssetKind = "backdrop"
	AssetTitleCard   AssetKind = "title_card"
	AssetSeasonCover AssetKind = "season_cover"
	AssetShowCover   AssetKind = "show_cover"
	AssetBackground  AssetKind = "background"
)

// allAssetKinds is the closed set of valid asset kinds.
var allAssetKinds = map[AssetKind]struct{}{
	AssetPoster:      {},
	AssetBackdrop:    {},
	AssetTitleCard:   {},
	AssetSeasonCover: {},
	AssetShowCover:   {},
	AssetBackground:  {},
}

// Valid reports whether k is a member of the fixed asset-kind set.
func (k AssetKind) Valid() bool {
	_, ok := allAssetKinds[k]
	return ok
}

// ParseAssetKind converts a string into an AssetKind, rejecting unknown values.
func ParseAssetKind(s string) (AssetKind, error) {
	k := AssetKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown asset kind %q", s)
	}
	return k, nil
}

// MediaKind classifies what a poster record depicts.
type MediaKind string

const (
	MediaMovie      MediaKind = "movie"
	MediaShow       MediaKind = "show"
	MediaCollection MediaKind = "collection"
)

// PosterRecord is one normalized artwork asset. ImageURL always points at the
// canonical, maximum-quality asset endpoint, never at a proxied or compressed
// variant.
type PosterRecord struct {
	SourceURL string    `json:"source_url" yaml:"source_url"`
	ImageURL  string    `json:"image_url" yaml:"image_url"`
	Title     string    `json:"title" yaml:"title"`
	Year      *int      `json:"year,omitempty" yaml:"year,omitempty"`
	MediaKind MediaKind `json:"media_kind" yaml:"media_kind"`
	Season    *int      `json:"season,omitempty" yaml:"season,omitempty"`
	Episode   *int      `json:"episode,omitempty" yaml:"episode,omitempty"`
	AssetKind AssetKind `json:"asset_kind" yaml:"asset_kind"`
	// SetID links the record to a SetRecord in the same extraction batch, if any.
	SetID string `json:"set_id,omitempty" yaml:"set_id,omitempty"`
}

// SetRecord groups poster records that were published together as one set.
type SetRecord struct {
	ID      string         `json:"id" yaml:"id"`
	Title   string         `json:"title" yaml:"title"`
	Posters []PosterRecord `json:"posters" yaml:"posters"`
	// CollectionTitle references a CollectionRecord in the same batch, if the
	// set covers a movie collection.
	CollectionTitle string `json:"collection_title,omitempty" yaml:"collection_title,omitempty"`
}

// CollectionMember is one title inside a movie collection.
type CollectionMember struct {
	Title string `json:"title" yaml:"title"`
	Year  *int   `json:"year,omitempty" yaml:"year,omitempty"`
}

// CollectionRecord describes a movie collection referenced by poster sets.
type CollectionRecord struct {
	Title   string             `json:"title" yaml:"title"`
	Members []CollectionMember `json:"members" yaml:"members"`
}

// Batch is the normalized output of one extraction. Order within each slice
// follows page order; no ordering is guaranteed between batches of concurrent
// scrape tasks.
type Batch struct {
	Posters     []PosterRecord     `json:"posters" yaml:"posters"`
	Sets        []SetRecord        `json:"sets,omitempty" yaml:"sets,omitempty"`
	Collections []CollectionRecord `json:"collections,omitempty" yaml:"collections,omitempty"`
}

// Merge appends the contents of other into b.
func (b *Batch) Merge(other Batch) {
	b.Posters = append(b.Posters, other.Posters...)
	b.Sets = append(b.Sets, other.Sets...)
	b.Collections = append(b.Collections, other.Collections...)
}

// Len returns the total number of poster records, including those nested in sets.
func (b Batch) Len() int {
	n := len(b.Posters)
	for _, s := range b.Sets {
		n += len(s.Posters)
	}
	return n
}

// Validate enforces the batch invariants: every asset kind is a member of the
// fixed set, and set membership is referentially consistent within the batch.
func (b Batch) Validate() error {
	setIDs := make(map[string]struct{}, len(b.Sets))
	for _, s := range b.Sets {
		setIDs[s.ID] = struct{}{}
		for _, p := range s.Posters {
			if !p.AssetKind.Valid() {
				return fmt.Errorf("set %s: record %q has invalid asset kind %q", s.ID, p.Title, p.AssetKind)
			}
		}
	}
	for _, p := range b.Posters {
		if !p.AssetKind.Valid() {
			return fmt.Errorf("record %q has invalid asset kind %q", p.Title, p.AssetKind)
		}
		if p.SetID != "" {
			if _, ok := setIDs[p.SetID]; !ok {
				return fmt.Errorf("record %q references unknown set %q", p.Title, p.SetID)
			}
		}
	}
	return nil
}

// IntPtr is a convenience for building optional year/season/episode fields.
func IntPtr(v int) *int { return &v }
