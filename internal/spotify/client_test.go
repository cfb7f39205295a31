package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ossia/internal/provider"
	"ossia/internal/song"
)

func newTestClient(t *testing.T, apiHandler http.HandlerFunc) (*Client, *int64) {
	t.Helper()

	var tokenCalls int64
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&tokenCalls, 1)
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	}))
	t.Cleanup(tokenSrv.Close)

	apiSrv := httptest.NewServer(apiHandler)
	t.Cleanup(apiSrv.Close)

	c := New("id", "secret")
	c.SetBaseURLs(apiSrv.URL, tokenSrv.URL)
	return c, &tokenCalls
}

func TestCrossValidateMatch(t *testing.T) {
	c, tokenCalls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "track:Imagine artist:John Lennon", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"tracks":{"items":[
			{"id":"t1","name":"imagine","artists":[{"id":"a1","name":"john lennon"}]}
		]}}`))
	})

	id, err := c.CrossValidate(context.Background(), song.Track{Title: "Imagine", Artist: "John Lennon"})
	require.NoError(t, err)
	assert.Equal(t, "t1", id.CanonicalID)
	assert.Equal(t, "a1", id.ArtistCanonicalID)
	assert.EqualValues(t, 1, atomic.LoadInt64(tokenCalls))
}

func TestCrossValidateMismatch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tracks":{"items":[
			{"id":"t9","name":"Imagine (Live)","artists":[{"id":"a9","name":"John Lennon"}]}
		]}}`))
	})

	_, err := c.CrossValidate(context.Background(), song.Track{Title: "Imagine", Artist: "John Lennon"})
	assert.ErrorIs(t, err, provider.ErrValidationMismatch)
}

func TestCrossValidateNoHits(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tracks":{"items":[]}}`))
	})

	_, err := c.CrossValidate(context.Background(), song.Track{Title: "x", Artist: "y"})
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestTokenReusedAcrossRequests(t *testing.T) {
	c, tokenCalls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tracks":{"items":[
			{"id":"t1","name":"a","artists":[{"id":"a1","name":"b"}]}
		]}}`))
	})

	for i := 0; i < 3; i++ {
		_, err := c.CrossValidate(context.Background(), song.Track{Title: "a", Artist: "b"})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt64(tokenCalls))
}

func TestRelatedByTrack(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recommendations", r.URL.Path)
		assert.Equal(t, "t1", r.URL.Query().Get("seed_tracks"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"tracks":[
			{"id":"r1","name":"Jealous Guy","duration_ms":258000,
			 "artists":[{"id":"a1","name":"John Lennon"}],
			 "album":{"images":[{"url":"http://img/big","width":640,"height":640}]}}
		]}`))
	})

	tracks, err := c.RelatedByTrack(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Jealous Guy", tracks[0].Title)
	assert.Equal(t, "John Lennon", tracks[0].Artist)
	assert.Equal(t, "r1", tracks[0].CanonicalID)
	assert.Equal(t, "a1", tracks[0].ArtistCanonicalID)
	assert.Equal(t, "http://img/big", tracks[0].ArtworkURL)
}

func TestFeatures(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio-features/t1", r.URL.Path)
		_, _ = w.Write([]byte(`{"energy":0.52,"tempo":75.3,"key":0,"mode":1}`))
	})

	f, err := c.Features(context.Background(), "t1")
	require.NoError(t, err)
	assert.InDelta(t, 0.52, f.Energy, 1e-9)
	assert.InDelta(t, 75.3, f.Tempo, 1e-9)
	assert.Equal(t, 1, f.Mode)
}

func TestRateLimitedStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Features(context.Background(), "t1")
	assert.ErrorIs(t, err, provider.ErrRateLimited)
}
