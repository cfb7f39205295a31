package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ossia/internal/song"
)

// resolveAndStart resolves the stream URL for a track and hands it to the
// sink. Every step re-checks that the originating track change is still the
// newest one; a superseded result is dropped in silence.
func (e *Engine) resolveAndStart(ctx context.Context, gen uint64, t song.Track) {
	rctx, cancel := context.WithTimeout(ctx, e.resolveTimeout)
	defer cancel()

	url, err := e.resolver.ResolveStreamURL(rctx, t)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.resolveFailed(gen, t, err)
		return
	}

	// Serialize sink handoff: a stale resolution must never land on the
	// sink after a newer one.
	e.playMu.Lock()
	defer e.playMu.Unlock()

	if e.staleGen(gen) {
		return
	}

	if err := e.snk.Play(ctx, url); err != nil {
		if ctx.Err() != nil {
			return
		}
		e.resolveFailed(gen, t, err)
		return
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.loading = false
	e.playing = true
	e.failures = 0
	if e.current != nil {
		e.current.ListenURL = url
	}
	e.mu.Unlock()

	e.publishState()
}

func (e *Engine) resolveFailed(gen uint64, t song.Track, err error) {
	e.mu.Lock()
	if gen != e.gen || e.closed {
		e.mu.Unlock()
		return
	}
	e.loading = false
	e.playing = false
	e.mu.Unlock()

	e.log.Warn("stream resolution failed",
		zap.String("title", t.Title),
		zap.String("artist", t.Artist),
		zap.Error(err))
	e.emit(func(s *Subscription) {
		s.sendError(ErrorEvent{Operation: "resolve", Track: &t, Err: err})
	})
	e.publishState()
	e.advanceAfterFailure()
}

func (e *Engine) staleGen(gen uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return gen != e.gen
}

// fetchRelated fills both recommendation pools concurrently. Best-effort: a
// failed fetch leaves that pool empty.
func (e *Engine) fetchRelated(ctx context.Context, gen uint64, t song.Track) {
	if e.related == nil || (t.CanonicalID == "" && t.ArtistCanonicalID == "") {
		return
	}

	var byTrack, byArtist []song.Track
	var wg sync.WaitGroup

	if t.CanonicalID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracks, err := e.related.RelatedByTrack(ctx, t.CanonicalID)
			if err != nil {
				e.log.Debug("related by track failed", zap.Error(err))
				return
			}
			byTrack = tracks
		}()
	}
	if t.ArtistCanonicalID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracks, err := e.related.RelatedByArtist(ctx, t.ArtistCanonicalID)
			if err != nil {
				e.log.Debug("related by artist failed", zap.Error(err))
				return
			}
			byArtist = tracks
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.pools[LensTrack] = byTrack
	e.pools[LensArtist] = byArtist
	lens := e.lens
	exposed := append([]song.Track(nil), e.pools[lens]...)
	e.mu.Unlock()

	e.emit(func(s *Subscription) {
		s.sendRelated(RelatedChange{Lens: lens, Tracks: exposed})
	})
}

// fetchFeatures loads the acoustic feature snapshot. Best-effort.
func (e *Engine) fetchFeatures(ctx context.Context, gen uint64, t song.Track) {
	if e.features == nil || t.CanonicalID == "" {
		return
	}

	feats, err := e.features.Features(ctx, t.CanonicalID)
	if err != nil || ctx.Err() != nil {
		if err != nil && ctx.Err() == nil {
			e.log.Debug("features fetch failed", zap.Error(err))
		}
		return
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.feats = feats
	e.mu.Unlock()

	e.emit(func(s *Subscription) {
		s.sendFeatures(FeaturesChange{Features: feats})
	})
}

// fetchColors extracts artwork colors. Best-effort; no colors means the
// default gradient.
func (e *Engine) fetchColors(ctx context.Context, gen uint64, t song.Track) {
	if e.colors == nil {
		return
	}

	colors, err := e.colors.Colors(ctx, t)
	if err != nil || ctx.Err() != nil {
		if err != nil && ctx.Err() == nil {
			e.log.Debug("color extraction failed", zap.Error(err))
		}
		return
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.colorList = colors
	e.mu.Unlock()

	e.emit(func(s *Subscription) {
		s.sendColors(ColorsChange{Colors: colors})
	})
}
