package artwork

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ossia/internal/song"
)

// twoToneImage is two thirds red, one third blue.
func twoToneImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			if x < 20 {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDominantColors(t *testing.T) {
	img, _, err := image.Decode(bytes.NewReader(twoToneImage(t)))
	require.NoError(t, err)

	colors := DominantColors(img, 5)
	require.GreaterOrEqual(t, len(colors), 2)
	assert.Equal(t, "#ff0000", colors[0])
	assert.Contains(t, colors, "#0000ff")
}

func TestColorsFetchesArtwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(twoToneImage(t))
	}))
	defer srv.Close()

	e := NewExtractor(nil, nil)
	colors, err := e.Colors(context.Background(), song.Track{
		Title: "Imagine", Artist: "John Lennon", ArtworkURL: srv.URL + "/cover.png",
	})
	require.NoError(t, err)
	require.NotEmpty(t, colors)
	assert.Equal(t, "#ff0000", colors[0])
}

func TestColorsNoArtworkIsNotAnError(t *testing.T) {
	e := NewExtractor(nil, nil)
	colors, err := e.Colors(context.Background(), song.Track{Title: "x", Artist: "y"})
	require.NoError(t, err)
	assert.Empty(t, colors)
}

type staticURLSource struct{ url string }

func (s staticURLSource) ArtworkURL(_ context.Context, _ song.Track) (string, error) {
	return s.url, nil
}

func TestColorsUsesFallbackSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(twoToneImage(t))
	}))
	defer srv.Close()

	e := NewExtractor(staticURLSource{url: srv.URL}, nil)
	colors, err := e.Colors(context.Background(), song.Track{Title: "x", Artist: "y"})
	require.NoError(t, err)
	assert.NotEmpty(t, colors)
}
