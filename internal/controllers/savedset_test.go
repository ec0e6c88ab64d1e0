package controllers

import (
	"path/filepath"
	"testing"

	"github.com/posterarr/posterarr/internal/models"
	"github.com/posterarr/posterarr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timshannon/bolthold"
)

func newSavedSetController(t *testing.T) (*SavedSetController, *models.Database) {
	t.Helper()
	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSavedSetController(db, utils.NewLogger("error")), db
}

func savedSet(id string, types ...models.AssetType) models.SavedSet {
	return models.SavedSet{
		Set:           models.PosterSet{ID: id, Title: "Set " + id, User: models.SetUser{Name: "alice"}},
		SelectedTypes: types,
	}
}

func movieItem(ratingKey string) models.MediaItem {
	return models.MediaItem{
		RatingKey:    ratingKey,
		Type:         models.ItemTypeMovie,
		Title:        "Movie " + ratingKey,
		LibraryTitle: "Movies",
	}
}

func TestEditUpdatesSelection(t *testing.T) {
	ctrl, db := newSavedSetController(t)
	require.NoError(t, ctrl.Add(movieItem("m1"), savedSet("s1", models.AssetPoster)))

	err := ctrl.Edit(EditRequest{
		RatingKey: "m1",
		Sets: []SetEdit{
			{SetID: "s1", SelectedTypes: []models.AssetType{models.AssetPoster, models.AssetBackdrop}, AutoDownload: true},
		},
	})
	require.NoError(t, err)

	item, err := db.GetSavedItemByRatingKey("m1")
	require.NoError(t, err)
	require.Len(t, item.Sets, 1)
	assert.Equal(t, []models.AssetType{models.AssetPoster, models.AssetBackdrop}, item.Sets[0].SelectedTypes)
	assert.True(t, item.Sets[0].AutoDownload)
}

func TestEditRejectsTypeConflicts(t *testing.T) {
	ctrl, db := newSavedSetController(t)
	require.NoError(t, ctrl.Add(movieItem("m1"), savedSet("s1", models.AssetPoster)))
	require.NoError(t, ctrl.Add(movieItem("m1"), savedSet("s2", models.AssetBackdrop)))

	// Claiming the poster for s2 while s1 still owns it must fail
	err := ctrl.Edit(EditRequest{
		RatingKey: "m1",
		Sets: []SetEdit{
			{SetID: "s2", SelectedTypes: []models.AssetType{models.AssetPoster}},
		},
	})
	require.Error(t, err)

	// The record is unchanged
	item, err := db.GetSavedItemByRatingKey("m1")
	require.NoError(t, err)
	set := item.SetByID("s2")
	require.NotNil(t, set)
	assert.Equal(t, []models.AssetType{models.AssetBackdrop}, set.SelectedTypes)
}

func TestEditReassignsTypeAcrossSets(t *testing.T) {
	ctrl, _ := newSavedSetController(t)
	require.NoError(t, ctrl.Add(movieItem("m1"), savedSet("s1", models.AssetPoster)))
	require.NoError(t, ctrl.Add(movieItem("m1"), savedSet("s2", models.AssetBackdrop)))

	// Moving the poster from s1 to s2 in one edit is fine
	err := ctrl.Edit(EditRequest{
		RatingKey: "m1",
		Sets: []SetEdit{
			{SetID: "s1", SelectedTypes: []models.AssetType{}},
			{SetID: "s2", SelectedTypes: []models.AssetType{models.AssetPoster, models.AssetBackdrop}},
		},
	})
	require.NoError(t, err)
}

func TestEditAllMarkedDeletesRecord(t *testing.T) {
	ctrl, db := newSavedSetController(t)

	item := movieItem("m1")
	require.NoError(t, ctrl.Add(item, savedSet("s1", models.AssetPoster)))
	require.NoError(t, ctrl.Add(item, savedSet("s2", models.AssetBackdrop)))

	flagged := item
	flagged.ExistInDatabase = true
	require.NoError(t, db.UpsertSection(&models.SectionCache{
		Title:   "Movies",
		Section: models.LibrarySection{ID: "1", Title: "Movies", Type: models.ItemTypeMovie},
		Items:   []models.MediaItem{flagged},
	}))

	err := ctrl.Edit(EditRequest{
		RatingKey: "m1",
		Sets: []SetEdit{
			{SetID: "s1", MarkedForDeletion: true},
			{SetID: "s2", MarkedForDeletion: true},
		},
	})
	require.NoError(t, err)

	_, err = db.GetSavedItemByRatingKey("m1")
	assert.Equal(t, bolthold.ErrNotFound, err)

	// The cached item's flag was reset
	cached, err := db.GetSection("Movies")
	require.NoError(t, err)
	require.Len(t, cached.Items, 1)
	assert.False(t, cached.Items[0].ExistInDatabase)
}

func TestEditPartialDeletionKeepsRecord(t *testing.T) {
	ctrl, db := newSavedSetController(t)
	require.NoError(t, ctrl.Add(movieItem("m1"), savedSet("s1", models.AssetPoster)))
	require.NoError(t, ctrl.Add(movieItem("m1"), savedSet("s2", models.AssetBackdrop)))

	err := ctrl.Edit(EditRequest{
		RatingKey: "m1",
		Sets: []SetEdit{
			{SetID: "s1", MarkedForDeletion: true},
		},
	})
	require.NoError(t, err)

	item, err := db.GetSavedItemByRatingKey("m1")
	require.NoError(t, err)
	require.Len(t, item.Sets, 1)
	assert.Equal(t, "s2", item.Sets[0].Set.ID)
}

func TestEditUnknownItem(t *testing.T) {
	ctrl, _ := newSavedSetController(t)
	err := ctrl.Edit(EditRequest{RatingKey: "nope"})
	assert.Error(t, err)
}

func TestDeleteUnknownItem(t *testing.T) {
	ctrl, _ := newSavedSetController(t)
	assert.Error(t, ctrl.Delete("nope"))
}

func TestTypeConflicts(t *testing.T) {
	ctrl, _ := newSavedSetController(t)
	require.NoError(t, ctrl.Add(movieItem("m1"), savedSet("s1", models.AssetPoster, models.AssetBackdrop)))
	require.NoError(t, ctrl.Add(movieItem("m1"), savedSet("s2", models.AssetTitleCard)))

	conflicts, err := ctrl.TypeConflicts("m1", "s2")
	require.NoError(t, err)
	assert.Equal(t, map[models.AssetType]string{
		models.AssetPoster:   "s1",
		models.AssetBackdrop: "s1",
	}, conflicts)
}
