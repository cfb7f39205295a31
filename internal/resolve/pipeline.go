// Package resolve turns a free-text query into an ordered list of
// cross-validated track candidates.
package resolve

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"ossia/internal/provider"
	"ossia/internal/song"
)

const memoTTL = 5 * time.Minute

// Pipeline runs search, de-duplication and cross-validation. Results are
// memoized per query so repeated searches within a session do not hit the
// network again.
type Pipeline struct {
	searcher  provider.Searcher
	validator provider.CrossValidator
	log       *zap.Logger

	mu   sync.RWMutex
	memo map[string]memoEntry
}

type memoEntry struct {
	tracks    []song.Track
	expiresAt time.Time
}

// New creates a pipeline. Passing a nil logger disables logging.
func New(searcher provider.Searcher, validator provider.CrossValidator, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		searcher:  searcher,
		validator: validator,
		log:       log,
		memo:      make(map[string]memoEntry),
	}
}

// Resolve searches for the query and returns validated candidates in the
// search provider's ranking order. Search failure propagates; a candidate
// that fails validation is dropped, it simply has no authoritative match.
// An empty result is valid, not an error.
func (p *Pipeline) Resolve(ctx context.Context, query string) ([]song.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	if cached, ok := p.memoized(query); ok {
		return cached, nil
	}

	candidates, err := p.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates = dedupeBySong(candidates)
	validated := p.validate(ctx, candidates)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Near-duplicate display names can validate to the same catalog entry.
	validated = lo.UniqBy(validated, func(t song.Track) string { return t.CanonicalID })

	p.memoize(query, validated)
	return validated, nil
}

// dedupeBySong keeps the first occurrence of each song, preserving order.
// The equality predicate is fuzzy, so this is a pairwise scan rather than a
// map lookup.
func dedupeBySong(tracks []song.Track) []song.Track {
	unique := make([]song.Track, 0, len(tracks))
	for _, t := range tracks {
		seen := false
		for _, u := range unique {
			if song.SameSong(t, u) {
				seen = true
				break
			}
		}
		if !seen {
			unique = append(unique, t)
		}
	}
	return unique
}

// validate cross-validates all candidates concurrently, keeping the input
// order for the survivors.
func (p *Pipeline) validate(ctx context.Context, candidates []song.Track) []song.Track {
	results := make([]*song.Track, len(candidates))

	var wg sync.WaitGroup
	for i, c := range candidates {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()

			id, err := p.validator.CrossValidate(ctx, c)
			if err != nil {
				p.log.Debug("candidate dropped",
					zap.String("title", c.Title),
					zap.String("artist", c.Artist),
					zap.Error(err))
				return
			}
			v := c.WithIdentity(id.CanonicalID, id.ArtistCanonicalID)
			results[i] = &v
		}()
	}
	wg.Wait()

	validated := make([]song.Track, 0, len(candidates))
	for _, r := range results {
		if r != nil {
			validated = append(validated, *r)
		}
	}
	return validated
}

func (p *Pipeline) memoized(query string) ([]song.Track, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.memo[query]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.tracks, true
}

func (p *Pipeline) memoize(query string, tracks []song.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.memo[query] = memoEntry{tracks: tracks, expiresAt: time.Now().Add(memoTTL)}
}
