// Package lastfm provides the scrobble-database adapter: ranked track search
// via the audioscrobbler REST API, and scrobbling of played tracks.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ossia/internal/provider"
	"ossia/internal/song"
)

const (
	apiRoot       = "https://ws.audioscrobbler.com/2.0/"
	searchLimit   = 30
	clientTimeout = 15 * time.Second

	// Last.fm API error codes relevant to the taxonomy.
	codeInvalidParams = 6
	codeRateLimited   = 29
)

// Client searches the Last.fm track database.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a search client with the given API key.
func New(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    apiRoot,
		httpClient: &http.Client{Timeout: clientTimeout},
	}
}

// SetBaseURL overrides the API root. Used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// Search resolves a free-text query into ranked track candidates. The
// returned tracks carry no canonical ids; cross-validation assigns them.
func (c *Client) Search(ctx context.Context, query string) ([]song.Track, error) {
	params := url.Values{}
	params.Set("method", "track.search")
	params.Set("track", query)
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	params.Set("limit", fmt.Sprintf("%d", searchLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, provider.E("lastfm", "search", provider.KindNetwork, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, provider.E("lastfm", "search", provider.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, provider.E("lastfm", "search", provider.KindFromStatus(resp.StatusCode),
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, provider.E("lastfm", "search", provider.KindNetwork, err)
	}

	if result.ErrorCode != 0 {
		kind := provider.KindNetwork
		switch result.ErrorCode {
		case codeRateLimited:
			kind = provider.KindRateLimited
		case codeInvalidParams:
			kind = provider.KindNotFound
		}
		return nil, provider.E("lastfm", "search", kind,
			fmt.Errorf("api error %d: %s", result.ErrorCode, result.Message))
	}

	matches := result.Results.TrackMatches.Track
	tracks := make([]song.Track, 0, len(matches))
	for _, m := range matches {
		tracks = append(tracks, song.Track{
			Title:      m.Name,
			Artist:     m.Artist,
			ListenURL:  m.URL,
			ArtworkURL: m.largestImage(),
		})
	}
	return tracks, nil
}

type searchResponse struct {
	ErrorCode int    `json:"error"`
	Message   string `json:"message"`
	Results   struct {
		TrackMatches struct {
			Track []searchTrack `json:"track"`
		} `json:"trackmatches"`
	} `json:"results"`
}

type searchTrack struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	URL    string `json:"url"`
	MBID   string `json:"mbid"`
	Image  []struct {
		URL  string `json:"#text"`
		Size string `json:"size"`
	} `json:"image"`
}

// largestImage picks the biggest artwork variant Last.fm offers. The image
// list is ordered small to large; entries are frequently empty strings.
func (t searchTrack) largestImage() string {
	for i := len(t.Image) - 1; i >= 0; i-- {
		if t.Image[i].URL != "" {
			return t.Image[i].URL
		}
	}
	return ""
}
