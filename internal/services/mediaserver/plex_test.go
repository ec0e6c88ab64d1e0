package mediaserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/posterarr/posterarr/internal/config"
	"github.com/posterarr/posterarr/internal/models"
	"github.com/posterarr/posterarr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlexTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewClient(&config.Config{
		MediaServerURL:   ts.URL,
		MediaServerToken: "plex-token",
		MediaServerType:  "plex",
	}, utils.NewLogger("error"))
	require.NoError(t, err)
	return client
}

func TestNewClientValidation(t *testing.T) {
	logger := utils.NewLogger("error")

	_, err := NewClient(&config.Config{MediaServerToken: "t", MediaServerType: "plex"}, logger)
	assert.Error(t, err)

	_, err = NewClient(&config.Config{MediaServerURL: "http://localhost", MediaServerToken: "t", MediaServerType: "kodi"}, logger)
	assert.Error(t, err)
}

func TestPlexGetSections(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /library/sections", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "plex-token", r.Header.Get("X-Plex-Token"))
		fmt.Fprint(w, `{"MediaContainer":{"Directory":[
			{"key":"1","title":"Movies","type":"movie"},
			{"key":"2","title":"Shows","type":"show"},
			{"key":"3","title":"Music","type":"artist"}]}}`)
	})

	client := newPlexTestClient(t, mux)

	sections, err := client.GetSections(context.Background())
	require.NoError(t, err)

	// Music libraries are not supported and dropped
	require.Len(t, sections, 2)
	assert.Equal(t, models.ItemTypeMovie, sections[0].Type)
	assert.Equal(t, "Shows", sections[1].Title)
}

func TestPlexGetSectionItems(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /library/sections/1/all", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("includeGuids"))
		fmt.Fprint(w, `{"MediaContainer":{"Metadata":[
			{"ratingKey":"10","type":"movie","title":"The Matrix","year":1999,
			 "Guid":[{"id":"tmdb://603"},{"id":"imdb://tt0133093"},{"id":"broken"}]}]}}`)
	})

	client := newPlexTestClient(t, mux)

	items, err := client.GetSectionItems(context.Background(), models.LibrarySection{ID: "1", Title: "Movies", Type: models.ItemTypeMovie})
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "The Matrix", item.Title)
	assert.Equal(t, 1999, item.Year)
	assert.Equal(t, "Movies", item.LibraryTitle)
	assert.Equal(t, "603", item.GuidID("tmdb"))
	assert.Equal(t, "tt0133093", item.GuidID("imdb"))
	assert.Equal(t, "", item.GuidID("tvdb"))
}

func TestPlexGetItemShow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /library/metadata/20", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"MediaContainer":{"Metadata":[
			{"ratingKey":"20","type":"show","title":"Test Show","year":2020,"Guid":[{"id":"tmdb://4242"}]}]}}`)
	})
	mux.HandleFunc("GET /library/metadata/20/children", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"MediaContainer":{"Metadata":[
			{"ratingKey":"s0","type":"season","title":"Specials","index":0},
			{"ratingKey":"s1","type":"season","title":"Season 1","index":1}]}}`)
	})
	mux.HandleFunc("GET /library/metadata/20/allLeaves", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"MediaContainer":{"Metadata":[
			{"ratingKey":"e1","type":"episode","title":"Pilot","parentIndex":1,"index":1},
			{"ratingKey":"e2","type":"episode","title":"Two","parentIndex":1,"index":2}]}}`)
	})

	client := newPlexTestClient(t, mux)

	item, err := client.GetItem(context.Background(), "20")
	require.NoError(t, err)
	assert.Equal(t, models.ItemTypeShow, item.Type)
	require.NotNil(t, item.Series)
	assert.Equal(t, 2, item.Series.SeasonCount)
	assert.Equal(t, 2, item.Series.EpisodeCount)

	season := item.FindSeason(1)
	require.NotNil(t, season)
	assert.Equal(t, "s1", season.RatingKey)
	assert.True(t, item.HasSeason(0))
	assert.False(t, item.HasSeason(2))

	episode := item.FindEpisode(1, 2)
	require.NotNil(t, episode)
	assert.Equal(t, "e2", episode.RatingKey)
	assert.Nil(t, item.FindEpisode(1, 3))
}

func TestPlexGetItemNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /library/metadata/99", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"MediaContainer":{"Metadata":[]}}`)
	})

	client := newPlexTestClient(t, mux)

	_, err := client.GetItem(context.Background(), "99")
	assert.Error(t, err)
}

func TestPlexUploadAsset(t *testing.T) {
	var posterBody, artBody []byte
	mux := http.NewServeMux()
	mux.HandleFunc("POST /library/metadata/10/posters", func(w http.ResponseWriter, r *http.Request) {
		posterBody, _ = io.ReadAll(r.Body)
	})
	mux.HandleFunc("POST /library/metadata/10/arts", func(w http.ResponseWriter, r *http.Request) {
		artBody, _ = io.ReadAll(r.Body)
	})

	client := newPlexTestClient(t, mux)

	require.NoError(t, client.UploadAsset(context.Background(), "10", models.AssetPoster, []byte("poster-bytes")))
	require.NoError(t, client.UploadAsset(context.Background(), "10", models.AssetBackdrop, []byte("art-bytes")))

	assert.Equal(t, []byte("poster-bytes"), posterBody)
	assert.Equal(t, []byte("art-bytes"), artBody)
}
