package resolve

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ossia/internal/provider"
	"ossia/internal/song"
)

type fakeSearcher struct {
	mu      sync.Mutex
	calls   int
	results []song.Track
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string) ([]song.Track, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// fakeValidator assigns identities keyed by "artist|title", lowercased.
// Unknown tracks fail validation.
type fakeValidator struct {
	identities map[string]provider.Identity
}

func (f *fakeValidator) CrossValidate(_ context.Context, t song.Track) (provider.Identity, error) {
	id, ok := f.identities[song.Normalize(t.Artist)+"|"+song.Normalize(t.Title)]
	if !ok {
		return provider.Identity{}, provider.E("fake", "cross_validate", provider.KindValidationMismatch, nil)
	}
	return id, nil
}

func TestResolveDeduplicatesAndValidates(t *testing.T) {
	searcher := &fakeSearcher{results: []song.Track{
		{Title: "Imagine", Artist: "John Lennon"},
		{Title: "imagine.", Artist: "John_Lennon"}, // same song, different spelling
		{Title: "Imagine", Artist: "A Perfect Circle"},
	}}
	validator := &fakeValidator{identities: map[string]provider.Identity{
		"john lennon|imagine":      {CanonicalID: "jl-1", ArtistCanonicalID: "jl"},
		"a perfect circle|imagine": {CanonicalID: "apc-1", ArtistCanonicalID: "apc"},
	}}

	p := New(searcher, validator, nil)
	got, err := p.Resolve(context.Background(), "imagine")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "John Lennon", got[0].Artist)
	assert.Equal(t, "jl-1", got[0].CanonicalID)
	assert.Equal(t, "A Perfect Circle", got[1].Artist)
	assert.Equal(t, "apc-1", got[1].CanonicalID)
}

func TestResolveDeduplicatesByCanonicalID(t *testing.T) {
	// Distinct display identities that the catalog maps to one entry.
	searcher := &fakeSearcher{results: []song.Track{
		{Title: "Song 2", Artist: "Blur"},
		{Title: "Song Two", Artist: "Blur"},
	}}
	validator := &fakeValidator{identities: map[string]provider.Identity{
		"blur|song 2":   {CanonicalID: "b-1", ArtistCanonicalID: "b"},
		"blur|song two": {CanonicalID: "b-1", ArtistCanonicalID: "b"},
	}}

	p := New(searcher, validator, nil)
	got, err := p.Resolve(context.Background(), "song 2")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Song 2", got[0].Title)
}

func TestResolveDropsFailedCandidatesSilently(t *testing.T) {
	searcher := &fakeSearcher{results: []song.Track{
		{Title: "Unknown", Artist: "Nobody"},
	}}
	validator := &fakeValidator{identities: map[string]provider.Identity{}}

	p := New(searcher, validator, nil)
	got, err := p.Resolve(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolvePropagatesSearchError(t *testing.T) {
	cause := provider.E("lastfm", "search", provider.KindRateLimited, nil)
	p := New(&fakeSearcher{err: cause}, &fakeValidator{}, nil)

	_, err := p.Resolve(context.Background(), "anything")
	assert.ErrorIs(t, err, provider.ErrRateLimited)
}

func TestResolveMemoizesResults(t *testing.T) {
	searcher := &fakeSearcher{results: []song.Track{
		{Title: "Imagine", Artist: "John Lennon"},
	}}
	validator := &fakeValidator{identities: map[string]provider.Identity{
		"john lennon|imagine": {CanonicalID: "jl-1", ArtistCanonicalID: "jl"},
	}}

	p := New(searcher, validator, nil)
	for i := 0; i < 3; i++ {
		got, err := p.Resolve(context.Background(), "imagine")
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 1, searcher.calls)
}

func TestResolveEmptyQuery(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("should not be called")}
	p := New(searcher, &fakeValidator{}, nil)

	got, err := p.Resolve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, searcher.calls)
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	searcher := &fakeSearcher{results: []song.Track{{Title: "a", Artist: "b"}}}
	p := New(searcher, &fakeValidator{identities: map[string]provider.Identity{}}, nil)

	_, err := p.Resolve(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}
