package lastfm

import (
	"errors"
	"fmt"
	"time"

	"github.com/shkh/lastfm-go/lastfm"
)

// ErrNotAuthenticated is returned when an operation requires a session key.
var ErrNotAuthenticated = errors.New("not authenticated")

// ScrobbleTrack contains track metadata for scrobbling.
type ScrobbleTrack struct {
	Artist    string
	Track     string
	Duration  time.Duration
	Timestamp time.Time // when playback started
}

// Scrobbler submits plays to the user's Last.fm profile. It is optional:
// the engine works without one.
type Scrobbler struct {
	api        *lastfm.Api
	apiKey     string
	sessionKey string
}

// NewScrobbler creates a scrobbler with the given API credentials.
func NewScrobbler(apiKey, apiSecret string) *Scrobbler {
	return &Scrobbler{
		api:    lastfm.New(apiKey, apiSecret),
		apiKey: apiKey,
	}
}

// SetSessionKey sets the authenticated session key.
func (s *Scrobbler) SetSessionKey(key string) {
	s.sessionKey = key
	s.api.SetSession(key)
}

// IsAuthenticated returns true if a session key is set.
func (s *Scrobbler) IsAuthenticated() bool {
	return s.sessionKey != ""
}

// GetToken requests an authentication token from Last.fm.
func (s *Scrobbler) GetToken() (string, error) {
	token, err := s.api.GetToken()
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

// AuthURL returns the URL for user authorization (desktop auth flow).
func (s *Scrobbler) AuthURL(token string) string {
	return fmt.Sprintf("https://www.last.fm/api/auth/?api_key=%s&token=%s", s.apiKey, token)
}

// GetSession exchanges an authorized token for a session key.
func (s *Scrobbler) GetSession(token string) (string, error) {
	if err := s.api.LoginWithToken(token); err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	s.sessionKey = s.api.GetSessionKey()
	return s.sessionKey, nil
}

// UpdateNowPlaying sends a "now playing" notification to Last.fm.
func (s *Scrobbler) UpdateNowPlaying(track ScrobbleTrack) error {
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	params := lastfm.P{
		"artist": track.Artist,
		"track":  track.Track,
	}
	if track.Duration > 0 {
		params["duration"] = int(track.Duration.Seconds())
	}

	if _, err := s.api.Track.UpdateNowPlaying(params); err != nil {
		return fmt.Errorf("update now playing: %w", err)
	}
	return nil
}

// Scrobble submits a track play to Last.fm.
func (s *Scrobbler) Scrobble(track ScrobbleTrack) error {
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	params := lastfm.P{
		"artist":    track.Artist,
		"track":     track.Track,
		"timestamp": track.Timestamp.Unix(),
	}
	if track.Duration > 0 {
		params["duration"] = int(track.Duration.Seconds())
	}

	if _, err := s.api.Track.Scrobble(params); err != nil {
		return fmt.Errorf("scrobble: %w", err)
	}
	return nil
}
