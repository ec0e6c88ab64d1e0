package controllers

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/posterarr/posterarr/internal/models"
	"github.com/posterarr/posterarr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubServer is an in-memory media server with a switchable failure mode
type stubServer struct {
	sections []models.LibrarySection
	items    map[string][]models.MediaItem
	down     bool
	calls    int
}

func (s *stubServer) GetSections(ctx context.Context) ([]models.LibrarySection, error) {
	s.calls++
	if s.down {
		return nil, fmt.Errorf("connection refused")
	}
	return s.sections, nil
}

func (s *stubServer) GetSectionItems(ctx context.Context, section models.LibrarySection) ([]models.MediaItem, error) {
	if s.down {
		return nil, fmt.Errorf("connection refused")
	}
	return s.items[section.Title], nil
}

func (s *stubServer) GetItem(ctx context.Context, ratingKey string) (*models.MediaItem, error) {
	if s.down {
		return nil, fmt.Errorf("connection refused")
	}
	for _, items := range s.items {
		for _, item := range items {
			if item.RatingKey == ratingKey {
				return &item, nil
			}
		}
	}
	return nil, fmt.Errorf("item %s not found", ratingKey)
}

func (s *stubServer) UploadAsset(ctx context.Context, ratingKey string, kind models.AssetType, data []byte) error {
	return nil
}

func newLibraryController(t *testing.T, server *stubServer, ttl time.Duration) (*LibraryController, *models.Database) {
	t.Helper()
	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLibraryController(db, server, ttl, utils.NewLogger("error")), db
}

func stubLibrary() *stubServer {
	return &stubServer{
		sections: []models.LibrarySection{
			{ID: "1", Title: "Movies", Type: models.ItemTypeMovie},
		},
		items: map[string][]models.MediaItem{
			"Movies": {
				{RatingKey: "m1", Type: models.ItemTypeMovie, Title: "One"},
				{RatingKey: "m2", Type: models.ItemTypeMovie, Title: "Two"},
			},
		},
	}
}

func TestGetSectionsCachesUpstream(t *testing.T) {
	server := stubLibrary()
	ctrl, _ := newLibraryController(t, server, time.Hour)

	sections, err := ctrl.GetSections(context.Background())
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, 1, server.calls)

	// Fresh cache answers without touching the server
	_, err = ctrl.GetSections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, server.calls)
}

func TestGetSectionsServesStaleOnFailure(t *testing.T) {
	server := stubLibrary()
	ctrl, _ := newLibraryController(t, server, 0) // every entry is instantly stale

	_, err := ctrl.GetSections(context.Background())
	require.NoError(t, err)

	server.down = true
	sections, err := ctrl.GetSections(context.Background())
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Movies", sections[0].Title)
}

func TestGetSectionsFailsWithEmptyCache(t *testing.T) {
	server := stubLibrary()
	server.down = true
	ctrl, _ := newLibraryController(t, server, time.Hour)

	_, err := ctrl.GetSections(context.Background())
	assert.Error(t, err)
}

func TestGetSectionItemsAnnotatesSavedItems(t *testing.T) {
	server := stubLibrary()
	ctrl, db := newLibraryController(t, server, time.Hour)

	require.NoError(t, db.UpsertSavedSet(
		models.MediaItem{RatingKey: "m2", Type: models.ItemTypeMovie, Title: "Two"},
		models.SavedSet{Set: models.PosterSet{ID: "s1"}},
	))

	items, err := ctrl.GetSectionItems(context.Background(), "Movies")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.False(t, items[0].ExistInDatabase)
	assert.True(t, items[1].ExistInDatabase)
}

func TestGetSectionItemsUnknownSection(t *testing.T) {
	server := stubLibrary()
	ctrl, _ := newLibraryController(t, server, time.Hour)

	_, err := ctrl.GetSectionItems(context.Background(), "Music")
	assert.Error(t, err)
}

func TestGetItemMarksSavedStatus(t *testing.T) {
	server := stubLibrary()
	ctrl, db := newLibraryController(t, server, time.Hour)

	item, err := ctrl.GetItem(context.Background(), "m1")
	require.NoError(t, err)
	assert.False(t, item.ExistInDatabase)

	require.NoError(t, db.UpsertSavedSet(
		models.MediaItem{RatingKey: "m1", Type: models.ItemTypeMovie, Title: "One"},
		models.SavedSet{Set: models.PosterSet{ID: "s1"}},
	))

	item, err = ctrl.GetItem(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, item.ExistInDatabase)
}
