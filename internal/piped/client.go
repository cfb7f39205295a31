// Package piped resolves playable audio stream URLs through a Piped
// instance. Public instances throttle aggressively, so requests are spaced
// out and retried with exponential backoff on server errors.
package piped

import (
	"context"
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
	defaultInstance = "https://pipedapi.kavin.rocks"
	rateLimitDur    = 500 * time.Millisecond

	maxRetries   = 3
	initialDelay = time.Second
	maxDelay     = 10 * time.Second
)

// Client talks to a Piped API instance.
type Client struct {
	instance   string
	httpClient *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

// New creates a client against the given instance URL. An empty instance
// falls back to the default public one.
func New(instance string) *Client {
	if instance == "" {
		instance = defaultInstance
	}
	return &Client{
		instance:   strings.TrimRight(instance, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ResolveStreamURL finds a playable audio URL for a track: top search hit,
// first audio stream.
func (c *Client) ResolveStreamURL(ctx context.Context, t song.Track) (string, error) {
	items, err := c.search(ctx, song.SearchKey(t))
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", provider.E("piped", "resolve", provider.KindNotFound,
			fmt.Errorf("no results for %q by %q", t.Title, t.Artist))
	}

	videoID := items[0].videoID()
	if videoID == "" {
		return "", provider.E("piped", "resolve", provider.KindNotFound,
			fmt.Errorf("result without video id"))
	}

	streams, err := c.streams(ctx, videoID)
	if err != nil {
		return "", err
	}
	if len(streams.AudioStreams) == 0 {
		return "", provider.E("piped", "resolve", provider.KindNotFound,
			fmt.Errorf("no audio streams for %s", videoID))
	}
	return streams.AudioStreams[0].URL, nil
}

func (c *Client) search(ctx context.Context, query string) ([]searchItem, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("filter", "videos")

	var payload searchResponse
	if err := c.get(ctx, "search", "/search?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

func (c *Client) streams(ctx context.Context, videoID string) (*streamsResponse, error) {
	var payload streamsResponse
	if err := c.get(ctx, "streams", "/streams/"+videoID, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.instance+path, http.NoBody)
	if err != nil {
		return provider.E("piped", op, provider.KindNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return provider.E("piped", op, provider.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return provider.E("piped", op, provider.KindFromStatus(resp.StatusCode),
			fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return provider.E("piped", op, provider.KindNetwork, err)
	}
	return nil
}

// waitForRateLimit spaces requests out so a shared public instance does not
// start refusing us.
func (c *Client) waitForRateLimit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < rateLimitDur {
		time.Sleep(rateLimitDur - elapsed)
	}
	c.lastRequest = time.Now()
}

// doRequestWithRetry executes a request with exponential backoff. Retries on
// 5xx and network errors; 4xx returns immediately.
func (c *Client) doRequestWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay = min(delay*2, maxDelay)
		}
		c.waitForRateLimit()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode < 500 {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries+1, lastErr)
}
