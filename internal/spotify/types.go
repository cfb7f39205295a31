package spotify

import (
	"time"

	"ossia/internal/song"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type searchResponse struct {
	Tracks struct {
		Items []trackItem `json:"items"`
	} `json:"tracks"`
}

type recommendationsResponse struct {
	Tracks []trackItem `json:"tracks"`
}

type trackItem struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	DurationMS int          `json:"duration_ms"`
	Artists    []artistItem `json:"artists"`
	Album      struct {
		Images []imageItem `json:"images"`
	} `json:"album"`
}

type artistItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type imageItem struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (t trackItem) artistName() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// albumImageURL returns the first album image, which the API orders
// largest first.
func (t trackItem) albumImageURL() string {
	if len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[0].URL
}

func (t trackItem) toTrack() song.Track {
	track := song.Track{
		Title:       t.Name,
		Artist:      t.artistName(),
		CanonicalID: t.ID,
		ArtworkURL:  t.albumImageURL(),
		Duration:    time.Duration(t.DurationMS) * time.Millisecond,
	}
	if len(t.Artists) > 0 {
		track.ArtistCanonicalID = t.Artists[0].ID
	}
	return track
}

type featuresResponse struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Key              int     `json:"key"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
}
