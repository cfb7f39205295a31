package piped

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ossia/internal/provider"
	"ossia/internal/song"
)

func TestResolveStreamURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "videos", r.URL.Query().Get("filter"))
			assert.Equal(t, "John Lennon Imagine", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`{"items":[
				{"url":"/watch?v=vid123","title":"Imagine","uploaderName":"John Lennon","duration":183}
			]}`))
		case "/streams/vid123":
			_, _ = w.Write([]byte(`{"audioStreams":[
				{"url":"http://cdn/audio.m4a","format":"M4A","quality":"128 kbps"},
				{"url":"http://cdn/audio-low.m4a","format":"M4A","quality":"48 kbps"}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	u, err := c.ResolveStreamURL(context.Background(), song.Track{Title: "Imagine", Artist: "John Lennon"})
	require.NoError(t, err)
	assert.Equal(t, "http://cdn/audio.m4a", u)
}

func TestResolveStreamURLNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ResolveStreamURL(context.Background(), song.Track{Title: "x", Artist: "y"})
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestResolveStreamURLNoAudioStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			_, _ = w.Write([]byte(`{"items":[{"url":"/watch?v=vid123","title":"x"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"audioStreams":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ResolveStreamURL(context.Background(), song.Track{Title: "x", Artist: "y"})
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestRetryOnServerError(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	items, err := c.search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 2, calls)
}

func TestVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"/watch?v=abc123", "abc123"},
		{"/watch?v=abc123&list=pl1", "abc123"},
		{"/playlist?list=pl1", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, searchItem{URL: tt.url}.videoID(), tt.url)
	}
}

func TestRateLimitedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ResolveStreamURL(context.Background(), song.Track{Title: "x", Artist: "y"})
	assert.ErrorIs(t, err, provider.ErrRateLimited)
}
