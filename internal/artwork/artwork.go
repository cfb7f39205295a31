// Package artwork turns a track's cover art into a small ordered list of
// dominant colors for the visualization gradient.
package artwork

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder for album art
	_ "image/png"  // PNG decoder for album art
	"net/http"
	"sort"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"ossia/internal/song"
)

const (
	// Artwork is shrunk before sampling; dominant colors survive the loss.
	thumbSize = 64

	maxColors    = 5
	fetchTimeout = 15 * time.Second
)

// URLSource supplies an artwork URL for tracks that arrived without one.
type URLSource interface {
	ArtworkURL(ctx context.Context, t song.Track) (string, error)
}

// Extractor fetches artwork and extracts dominant colors.
type Extractor struct {
	httpClient *http.Client
	fallback   URLSource
	log        *zap.Logger
}

// NewExtractor creates an extractor. Fallback may be nil; a nil logger
// disables logging.
func NewExtractor(fallback URLSource, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{
		httpClient: &http.Client{Timeout: fetchTimeout},
		fallback:   fallback,
		log:        log,
	}
}

// Colors returns the dominant artwork colors as hex strings, most dominant
// first. A track without artwork yields an empty list, not an error.
func (e *Extractor) Colors(ctx context.Context, t song.Track) ([]string, error) {
	url := t.ArtworkURL
	if url == "" && e.fallback != nil {
		resolved, err := e.fallback.ArtworkURL(ctx, t)
		if err != nil {
			e.log.Debug("artwork lookup failed",
				zap.String("title", t.Title), zap.Error(err))
			return nil, nil
		}
		url = resolved
	}
	if url == "" {
		return nil, nil
	}

	img, err := e.fetchImage(ctx, url)
	if err != nil {
		return nil, err
	}

	return DominantColors(img, maxColors), nil
}

func (e *Extractor) fetchImage(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch artwork: status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode artwork: %w", err)
	}
	return img, nil
}

// DominantColors quantizes the image into coarse RGB buckets and returns the
// averages of the most populated ones, hex encoded, largest bucket first.
func DominantColors(img image.Image, n int) []string {
	thumb := resize.Thumbnail(thumbSize, thumbSize, img, resize.Lanczos3)

	type bucket struct {
		count   int
		r, g, b float64
	}
	buckets := make(map[uint16]*bucket)

	bounds := thumb.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c, ok := colorful.MakeColor(thumb.At(x, y))
			if !ok {
				continue // fully transparent pixel
			}
			// 4 bits per channel: 4096 possible buckets.
			key := uint16(c.R*15)<<8 | uint16(c.G*15)<<4 | uint16(c.B*15)
			bk := buckets[key]
			if bk == nil {
				bk = &bucket{}
				buckets[key] = bk
			}
			bk.count++
			bk.r += c.R
			bk.g += c.G
			bk.b += c.B
		}
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, bk := range buckets {
		ordered = append(ordered, bk)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].count > ordered[j].count })

	if len(ordered) > n {
		ordered = ordered[:n]
	}

	colors := make([]string, 0, len(ordered))
	for _, bk := range ordered {
		avg := colorful.Color{
			R: bk.r / float64(bk.count),
			G: bk.g / float64(bk.count),
			B: bk.b / float64(bk.count),
		}
		colors = append(colors, avg.Hex())
	}
	return colors
}
