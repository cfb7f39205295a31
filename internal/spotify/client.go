// Package spotify provides the canonical-metadata adapter: cross-validation
// of search candidates, recommendation sets and acoustic features. Auth is a
// client-credentials bearer-token exchange with expiry-aware caching.
package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"ossia/internal/provider"
	"ossia/internal/song"
)

const (
	apiRoot       = "https://api.spotify.com/v1"
	tokenURL      = "https://accounts.spotify.com/api/token"
	clientTimeout = 15 * time.Second

	// The token endpoint reports expiry in seconds; refresh a little early
	// so an in-flight request never carries a token about to lapse.
	tokenSlack = 30 * time.Second

	recommendationLimit = 25
)

// Client talks to the Spotify Web API.
type Client struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client

	baseURL  string
	tokenURL string

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// New creates a client with the given client-credentials pair.
func New(clientID, clientSecret string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: clientTimeout},
		baseURL:      apiRoot,
		tokenURL:     tokenURL,
	}
}

// SetBaseURLs overrides the API and token endpoints. Used by tests.
func (c *Client) SetBaseURLs(api, token string) {
	c.baseURL = api
	c.tokenURL = token
}

// CrossValidate confirms a candidate against Spotify's catalog. The top
// search hit must match artist and title exactly (case-insensitive);
// anything looser would accept the provider's unrelated "best guess".
func (c *Client) CrossValidate(ctx context.Context, t song.Track) (provider.Identity, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("track:%s artist:%s", t.Title, t.Artist))
	params.Set("type", "track")
	params.Set("limit", "1")

	var payload searchResponse
	if err := c.get(ctx, "cross_validate", "/search?"+params.Encode(), &payload); err != nil {
		return provider.Identity{}, err
	}

	if len(payload.Tracks.Items) == 0 {
		return provider.Identity{}, provider.E("spotify", "cross_validate", provider.KindNotFound, nil)
	}

	hit := payload.Tracks.Items[0]
	if len(hit.Artists) == 0 ||
		!strings.EqualFold(hit.Artists[0].Name, t.Artist) ||
		!strings.EqualFold(hit.Name, t.Title) {
		return provider.Identity{}, provider.E("spotify", "cross_validate", provider.KindValidationMismatch,
			fmt.Errorf("top hit %q by %q does not match", hit.Name, hit.artistName()))
	}

	return provider.Identity{
		CanonicalID:       hit.ID,
		ArtistCanonicalID: hit.Artists[0].ID,
	}, nil
}

// RelatedByTrack fetches recommendations seeded by a canonical track id.
func (c *Client) RelatedByTrack(ctx context.Context, canonicalID string) ([]song.Track, error) {
	return c.recommendations(ctx, url.Values{"seed_tracks": {canonicalID}})
}

// RelatedByArtist fetches recommendations seeded by a canonical artist id.
func (c *Client) RelatedByArtist(ctx context.Context, artistCanonicalID string) ([]song.Track, error) {
	return c.recommendations(ctx, url.Values{"seed_artists": {artistCanonicalID}})
}

func (c *Client) recommendations(ctx context.Context, seeds url.Values) ([]song.Track, error) {
	seeds.Set("limit", fmt.Sprintf("%d", recommendationLimit))

	var payload recommendationsResponse
	if err := c.get(ctx, "recommendations", "/recommendations?"+seeds.Encode(), &payload); err != nil {
		return nil, err
	}

	tracks := make([]song.Track, 0, len(payload.Tracks))
	for _, item := range payload.Tracks {
		tracks = append(tracks, item.toTrack())
	}
	return tracks, nil
}

// Features fetches the acoustic feature snapshot for a canonical track id.
func (c *Client) Features(ctx context.Context, canonicalID string) (*song.AcousticFeatures, error) {
	var payload featuresResponse
	if err := c.get(ctx, "features", "/audio-features/"+canonicalID, &payload); err != nil {
		return nil, err
	}

	return &song.AcousticFeatures{
		Acousticness:     payload.Acousticness,
		Danceability:     payload.Danceability,
		Energy:           payload.Energy,
		Instrumentalness: payload.Instrumentalness,
		Key:              payload.Key,
		Liveness:         payload.Liveness,
		Loudness:         payload.Loudness,
		Mode:             payload.Mode,
		Speechiness:      payload.Speechiness,
		Tempo:            payload.Tempo,
		Valence:          payload.Valence,
	}, nil
}

// ArtworkURL returns the album artwork for the top catalog hit of a track.
func (c *Client) ArtworkURL(ctx context.Context, t song.Track) (string, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("track:%s artist:%s", t.Title, t.Artist))
	params.Set("type", "track")
	params.Set("limit", "1")

	var payload searchResponse
	if err := c.get(ctx, "artwork", "/search?"+params.Encode(), &payload); err != nil {
		return "", err
	}
	if len(payload.Tracks.Items) == 0 || payload.Tracks.Items[0].albumImageURL() == "" {
		return "", provider.E("spotify", "artwork", provider.KindNotFound, nil)
	}
	return payload.Tracks.Items[0].albumImageURL(), nil
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, op, path string, out any) error {
	token, err := c.accessTokenFor(ctx, op)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return provider.E("spotify", op, provider.KindNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return provider.E("spotify", op, provider.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return provider.E("spotify", op, provider.KindFromStatus(resp.StatusCode),
			fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return provider.E("spotify", op, provider.KindNetwork, err)
	}
	return nil
}

func (c *Client) accessTokenFor(ctx context.Context, op string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		return "", provider.E("spotify", op, provider.KindNetwork,
			fmt.Errorf("missing client credentials"))
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", provider.E("spotify", op, provider.KindNetwork, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+basicAuth(c.clientID, c.clientSecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", provider.E("spotify", op, provider.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", provider.E("spotify", op, provider.KindFromStatus(resp.StatusCode),
			fmt.Errorf("token status %d", resp.StatusCode))
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", provider.E("spotify", op, provider.KindNetwork, err)
	}
	if payload.AccessToken == "" {
		return "", provider.E("spotify", op, provider.KindNetwork,
			fmt.Errorf("empty access token"))
	}

	c.accessToken = payload.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - tokenSlack)
	return c.accessToken, nil
}

func basicAuth(clientID, clientSecret string) string {
	return base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
}
