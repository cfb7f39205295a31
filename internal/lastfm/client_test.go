package lastfm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ossia/internal/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("test-key")
	c.SetBaseURL(srv.URL)
	return c
}

func TestSearch_ParsesMatches(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "track.search", r.URL.Query().Get("method"))
		assert.Equal(t, "imagine", r.URL.Query().Get("track"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": {"trackmatches": {"track": [
				{"name": "Imagine", "artist": "John Lennon",
				 "url": "https://www.last.fm/music/john/imagine",
				 "image": [
					{"#text": "small.jpg", "size": "small"},
					{"#text": "large.jpg", "size": "extralarge"}
				 ]},
				{"name": "Imagine", "artist": "Ariana Grande",
				 "url": "https://www.last.fm/music/ariana/imagine",
				 "image": [{"#text": "", "size": "small"}]}
			]}}}`))
	})

	tracks, err := c.Search(context.Background(), "imagine")
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, "Imagine", tracks[0].Title)
	assert.Equal(t, "John Lennon", tracks[0].Artist)
	assert.Equal(t, "large.jpg", tracks[0].ArtworkURL)
	assert.Equal(t, "https://www.last.fm/music/john/imagine", tracks[0].ListenURL)
	assert.Empty(t, tracks[0].CanonicalID, "search results must not carry canonical ids")

	assert.Equal(t, "Ariana Grande", tracks[1].Artist)
	assert.Empty(t, tracks[1].ArtworkURL)
}

func TestSearch_EmptyResultIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": {"trackmatches": {"track": []}}}`))
	})

	tracks, err := c.Search(context.Background(), "zzzzz")
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestSearch_RateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Search(context.Background(), "imagine")
	assert.ErrorIs(t, err, provider.ErrRateLimited)
}

func TestSearch_APIErrorCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": 29, "message": "Rate limit exceeded"}`))
	})

	_, err := c.Search(context.Background(), "imagine")
	assert.ErrorIs(t, err, provider.ErrRateLimited)
}

func TestSearch_CancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Search(ctx, "imagine")
	assert.ErrorIs(t, err, context.Canceled)
}
