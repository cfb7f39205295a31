package related

import (
	"context"

	"go.uber.org/zap"

	"ossia/internal/provider"
	"ossia/internal/song"
)

const (
	kindTrack  = "track"
	kindArtist = "artist"
)

// CachingSource decorates a recommendation source with the SQLite cache.
// Cache failures fall through to the upstream; a recommendation is never
// lost to a broken cache.
type CachingSource struct {
	upstream provider.RelatedSource
	cache    *Cache
	log      *zap.Logger
}

// NewCachingSource wraps upstream with cache. A nil logger disables logging.
func NewCachingSource(upstream provider.RelatedSource, cache *Cache, log *zap.Logger) *CachingSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachingSource{upstream: upstream, cache: cache, log: log}
}

var _ provider.RelatedSource = (*CachingSource)(nil)

// RelatedByTrack returns recommendations seeded by a canonical track id.
func (s *CachingSource) RelatedByTrack(ctx context.Context, canonicalID string) ([]song.Track, error) {
	return s.fetch(ctx, kindTrack, canonicalID, s.upstream.RelatedByTrack)
}

// RelatedByArtist returns recommendations seeded by a canonical artist id.
func (s *CachingSource) RelatedByArtist(ctx context.Context, artistCanonicalID string) ([]song.Track, error) {
	return s.fetch(ctx, kindArtist, artistCanonicalID, s.upstream.RelatedByArtist)
}

func (s *CachingSource) fetch(
	ctx context.Context,
	kind, seedID string,
	upstream func(context.Context, string) ([]song.Track, error),
) ([]song.Track, error) {
	if cached, ok, err := s.cache.Get(kind, seedID); err != nil {
		s.log.Warn("recommendation cache read failed", zap.String("seed", seedID), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	tracks, err := upstream(ctx, seedID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(kind, seedID, tracks); err != nil {
		s.log.Warn("recommendation cache write failed", zap.String("seed", seedID), zap.Error(err))
	}
	return tracks, nil
}
