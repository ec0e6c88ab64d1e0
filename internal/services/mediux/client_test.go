package mediux

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/posterarr/posterarr/internal/config"
	"github.com/posterarr/posterarr/internal/models"
	"github.com/posterarr/posterarr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewClient(&config.Config{
		MediuxURL:   ts.URL,
		MediuxToken: "test-token",
	}, utils.NewLogger("error"))
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(&config.Config{MediuxURL: "http://localhost"}, utils.NewLogger("error"))
	assert.Error(t, err)
}

func TestGetSetsForItem(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sets/item/show/4242", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"sets":[
			{"id":"s1","title":"First","type":"show","user":{"name":"alice"},
			 "poster":{"id":"p1","type":"poster"},
			 "seasonPosters":[{"id":"sp1","type":"seasonPoster","season":{"number":1}}],
			 "titleCards":[{"id":"t1","type":"titlecard","episode":{"seasonNumber":1,"episodeNumber":1}}]},
			{"id":"s2","title":"Second","type":"show","user":{"name":"bob"}}]}`)
	})

	client := newTestClient(t, mux)

	sets, err := client.GetSetsForItem(context.Background(), models.ItemTypeShow, "4242")
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "alice", sets[0].User.Name)
	require.NotNil(t, sets[0].Poster)
	assert.Equal(t, "p1", sets[0].Poster.ID)
	require.Len(t, sets[0].SeasonPosters, 1)
	assert.Equal(t, 1, sets[0].SeasonPosters[0].Season.Number)
	assert.True(t, sets[0].HasTitleCards())
	assert.False(t, sets[1].HasTitleCards())

	// Second lookup is served from the cache
	_, err = client.GetSetsForItem(context.Background(), models.ItemTypeShow, "4242")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetSetsForItemRequiresID(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())
	_, err := client.GetSetsForItem(context.Background(), models.ItemTypeMovie, "")
	assert.Error(t, err)
}

func TestGetUserSets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sets/user/alice", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sets":[{"id":"s1","title":"First"}],
			"boxsets":[{"id":"b1","title":"Trilogy","sets":[{"id":"s2"},{"id":"s3"}]}]}`)
	})

	client := newTestClient(t, mux)

	user, err := client.GetUserSets(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, user.Sets, 1)
	require.Len(t, user.Boxsets, 1)
	assert.Equal(t, "Trilogy", user.Boxsets[0].Title)
	assert.Len(t, user.Boxsets[0].Sets, 2)
}

func TestGetSet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sets/s1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"set":{"id":"s1","title":"First","dateUpdated":"2024-06-01T00:00:00Z"}}`)
	})

	client := newTestClient(t, mux)

	set, err := client.GetSet(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", set.ID)
	assert.Equal(t, 2024, set.DateUpdated.Year())
}

func TestGetSetUpstreamError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))

	_, err := client.GetSet(context.Background(), "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestDownloadAsset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /assets/p1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte("image-bytes"))
	})

	client := newTestClient(t, mux)

	data, err := client.DownloadAsset(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)

	_, err = client.DownloadAsset(context.Background(), "missing")
	assert.Error(t, err)
}
