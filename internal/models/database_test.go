package models

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timshannon/bolthold"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testMediaItem(ratingKey string) MediaItem {
	return MediaItem{
		RatingKey:    ratingKey,
		Type:         ItemTypeMovie,
		Title:        "Movie " + ratingKey,
		Year:         2020,
		LibraryTitle: "Movies",
		Guids:        []Guid{{Provider: "tmdb", ID: "603"}},
	}
}

func TestSavedItemCRUD(t *testing.T) {
	db := newTestDatabase(t)

	item := &SavedItem{
		RatingKey: "m1",
		MediaItem: testMediaItem("m1"),
		Sets:      []SavedSet{{Set: PosterSet{ID: "s1"}}},
	}
	require.NoError(t, db.CreateSavedItem(item))
	assert.NotZero(t, item.ID)
	assert.False(t, item.CreatedAt.IsZero())

	got, err := db.GetSavedItemByRatingKey("m1")
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, "Movie m1", got.MediaItem.Title)

	got.Sets[0].AutoDownload = true
	require.NoError(t, db.UpdateSavedItem(got))

	byID, err := db.GetSavedItemByID(got.ID)
	require.NoError(t, err)
	assert.True(t, byID.Sets[0].AutoDownload)

	require.NoError(t, db.DeleteSavedItem(got.ID))
	_, err = db.GetSavedItemByRatingKey("m1")
	assert.Equal(t, bolthold.ErrNotFound, err)
}

func TestUpsertSavedSet(t *testing.T) {
	db := newTestDatabase(t)
	media := testMediaItem("m1")

	// First upsert creates the record
	set := SavedSet{
		Set:           PosterSet{ID: "s1", DateUpdated: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		SelectedTypes: []AssetType{AssetPoster},
	}
	require.NoError(t, db.UpsertSavedSet(media, set))

	item, err := db.GetSavedItemByRatingKey("m1")
	require.NoError(t, err)
	require.Len(t, item.Sets, 1)

	// Same set ID replaces the snapshot instead of appending
	set.Set.DateUpdated = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	set.SelectedTypes = []AssetType{AssetPoster, AssetBackdrop}
	require.NoError(t, db.UpsertSavedSet(media, set))

	item, err = db.GetSavedItemByRatingKey("m1")
	require.NoError(t, err)
	require.Len(t, item.Sets, 1)
	assert.Equal(t, 2024, item.Sets[0].Set.DateUpdated.Year())
	assert.Equal(t, time.June, item.Sets[0].Set.DateUpdated.Month())
	assert.Len(t, item.Sets[0].SelectedTypes, 2)

	// A different set ID appends
	require.NoError(t, db.UpsertSavedSet(media, SavedSet{Set: PosterSet{ID: "s2"}}))
	item, err = db.GetSavedItemByRatingKey("m1")
	require.NoError(t, err)
	assert.Len(t, item.Sets, 2)
}

func TestGetAutoDownloadItems(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.UpsertSavedSet(testMediaItem("m1"), SavedSet{Set: PosterSet{ID: "s1"}, AutoDownload: true}))
	require.NoError(t, db.UpsertSavedSet(testMediaItem("m2"), SavedSet{Set: PosterSet{ID: "s2"}}))

	items, err := db.GetAutoDownloadItems()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "m1", items[0].RatingKey)
}

func TestSectionCache(t *testing.T) {
	db := newTestDatabase(t)

	cache := &SectionCache{
		Title:   "Movies",
		Section: LibrarySection{ID: "1", Title: "Movies", Type: ItemTypeMovie},
		Items:   []MediaItem{testMediaItem("m1"), testMediaItem("m2")},
	}
	require.NoError(t, db.UpsertSection(cache))
	assert.False(t, cache.CachedAt.IsZero())

	got, err := db.GetSection("Movies")
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
	assert.False(t, got.Expired(time.Hour))
	assert.True(t, got.Expired(0))

	all, err := db.GetAllSections()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, db.DeleteSection("Movies"))
	_, err = db.GetSection("Movies")
	assert.Error(t, err)
}

func TestSetItemInDatabase(t *testing.T) {
	db := newTestDatabase(t)

	// The same item cached in two sections gets flipped in both
	for _, title := range []string{"Movies", "Favourites"} {
		require.NoError(t, db.UpsertSection(&SectionCache{
			Title:   title,
			Section: LibrarySection{ID: title, Title: title, Type: ItemTypeMovie},
			Items:   []MediaItem{testMediaItem("m1"), testMediaItem("m2")},
		}))
	}

	require.NoError(t, db.SetItemInDatabase("m1", true))

	for _, title := range []string{"Movies", "Favourites"} {
		got, err := db.GetSection(title)
		require.NoError(t, err)
		assert.True(t, got.Items[0].ExistInDatabase, title)
		assert.False(t, got.Items[1].ExistInDatabase, title)
	}
}
