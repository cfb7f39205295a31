// Package provider defines the contract every song-resolution backend
// adapter implements, plus the shared error taxonomy.
//
// The interfaces are defined here, where they are consumed by the resolution
// pipeline and the playback engine; each adapter package (lastfm, spotify,
// piped) implements the subset its backend supports. Every call takes a
// context.Context: cancelling it is how the engine withdraws a request whose
// target track is no longer current.
package provider

import (
	"context"

	"ossia/internal/song"
)

// Searcher resolves a free-text query into ranked track candidates.
type Searcher interface {
	Search(ctx context.Context, query string) ([]song.Track, error)
}

// StreamResolver turns a track into a playable audio stream URL.
type StreamResolver interface {
	ResolveStreamURL(ctx context.Context, t song.Track) (string, error)
}

// Identity is the authoritative identity of a cross-validated track.
type Identity struct {
	CanonicalID       string
	ArtistCanonicalID string
}

// CrossValidator confirms a track against the authoritative metadata
// provider. It fails with ErrNotFound unless the provider's top hit matches
// the track's artist and title exactly (case-insensitive).
type CrossValidator interface {
	CrossValidate(ctx context.Context, t song.Track) (Identity, error)
}

// RelatedSource fetches recommendation sets seeded by canonical ids.
type RelatedSource interface {
	RelatedByTrack(ctx context.Context, canonicalID string) ([]song.Track, error)
	RelatedByArtist(ctx context.Context, artistCanonicalID string) ([]song.Track, error)
}

// FeatureSource fetches the acoustic feature snapshot for a canonical id.
type FeatureSource interface {
	Features(ctx context.Context, canonicalID string) (*song.AcousticFeatures, error)
}
