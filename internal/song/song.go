// Package song defines the track model shared by providers, the resolution
// pipeline and the playback engine.
package song

import (
	"regexp"
	"strings"
	"time"
)

// Track identifies a playable song candidate.
//
// Title and Artist are the display identity and are not guaranteed unique
// across providers. CanonicalID and ArtistCanonicalID come from the
// authoritative metadata provider; both are empty for candidates that only
// exist in the scrobble-search flow until cross-validation assigns them.
// A Track is immutable after creation.
type Track struct {
	Title             string
	Artist            string
	CanonicalID       string
	ArtistCanonicalID string
	ArtworkURL        string
	ListenURL         string
	Duration          time.Duration
}

// Validated returns true if the track carries a canonical id.
func (t Track) Validated() bool {
	return t.CanonicalID != ""
}

// WithIdentity returns a copy of the track with canonical ids assigned.
func (t Track) WithIdentity(canonicalID, artistCanonicalID string) Track {
	t.CanonicalID = canonicalID
	t.ArtistCanonicalID = artistCanonicalID
	return t
}

// AcousticFeatures is a best-effort acoustic snapshot of a track, keyed by
// canonical id.
type AcousticFeatures struct {
	Acousticness     float64
	Danceability     float64
	Energy           float64
	Instrumentalness float64
	Key              int
	Liveness         float64
	Loudness         float64
	Mode             int
	Speechiness      float64
	Tempo            float64
	Valence          float64
}

var (
	punctuationRe   = regexp.MustCompile(`[^\w\s]`)
	multipleSpaceRe = regexp.MustCompile(`\s+`)
	searchKeyRe     = regexp.MustCompile(`[^\p{L}\p{N}-]+`)
)

// Normalize normalizes a title or artist string for comparison by:
// - Converting to lowercase
// - Replacing punctuation with spaces
// - Normalizing whitespace
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = punctuationRe.ReplaceAllString(s, " ")
	s = multipleSpaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return s
}

// artistKey strips everything but letters and digits so that artist strings
// from different providers ("John Lennon", "john_lennon") collapse to a
// comparable form.
func artistKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SameSong reports whether two tracks are the same song for de-duplication
// purposes: normalized titles match and the normalized artist strings
// overlap. This is deliberately looser than strict equality because the
// search provider and the metadata provider disagree on canonicalization.
func SameSong(a, b Track) bool {
	if Normalize(a.Title) != Normalize(b.Title) {
		return false
	}
	ka, kb := artistKey(a.Artist), artistKey(b.Artist)
	if ka == "" || kb == "" {
		return ka == kb
	}
	return strings.Contains(ka, kb) || strings.Contains(kb, ka)
}

// SearchKey builds the free-text query used against the video index:
// "{artist} {title}" restricted to letters (including accented ones), digits
// and hyphens. Every other run of characters collapses to a single space.
func SearchKey(t Track) string {
	q := t.Artist + " " + t.Title
	q = searchKeyRe.ReplaceAllString(q, " ")
	q = multipleSpaceRe.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}
