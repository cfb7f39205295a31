package engine

import (
	"time"

	"ossia/internal/song"
)

// Percentage projects playback progress into [0, 1]. A zero duration always
// maps to 0, whatever the position claims.
func Percentage(pos, dur time.Duration) float64 {
	if dur == 0 {
		return 0
	}
	p := float64(pos) / float64(dur)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Snapshot is a consistent copy of the observable session state.
type Snapshot struct {
	Current       *song.Track
	State         State
	Playing       bool
	Loading       bool
	Volume        float64
	Position      time.Duration
	Duration      time.Duration
	Percentage    float64
	Queue         []song.Track
	QueuePosition int
	History       []song.Track
	Repeat        bool
	Lens          Lens
	RelatedTracks []song.Track
	Features      *song.AcousticFeatures
	Colors        []string
}

// Snapshot returns a copy of the current session state.
func (e *Engine) Snapshot() Snapshot {
	pos, dur := e.snk.Position(), e.snk.Duration()

	e.mu.RLock()
	defer e.mu.RUnlock()

	var current *song.Track
	if e.current != nil {
		c := *e.current
		current = &c
	}

	return Snapshot{
		Current:       current,
		State:         e.stateLocked(),
		Playing:       e.playing,
		Loading:       e.loading,
		Volume:        e.volume,
		Position:      pos,
		Duration:      dur,
		Percentage:    Percentage(pos, dur),
		Queue:         append([]song.Track(nil), e.queue...),
		QueuePosition: e.position,
		History:       append([]song.Track(nil), e.history...),
		Repeat:        e.repeat,
		Lens:          e.lens,
		RelatedTracks: append([]song.Track(nil), e.pools[e.lens]...),
		Features:      e.feats,
		Colors:        append([]string(nil), e.colorList...),
	}
}

// Current returns the current track, or nil when idle.
func (e *Engine) Current() *song.Track {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.current == nil {
		return nil
	}
	c := *e.current
	return &c
}

// State returns the derived session state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked()
}

// IsPlaying reports whether the session intends to produce audio, including
// while a stream is still resolving.
func (e *Engine) IsPlaying() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.playing
}

// IsLoading reports whether a stream resolution is in flight.
func (e *Engine) IsLoading() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loading
}

// Volume returns the session volume in [0, 1].
func (e *Engine) Volume() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.volume
}

// Position returns the sink position.
func (e *Engine) Position() time.Duration {
	return e.snk.Position()
}

// Duration returns the sink duration.
func (e *Engine) Duration() time.Duration {
	return e.snk.Duration()
}

// Queue returns a copy of the queue.
func (e *Engine) Queue() []song.Track {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]song.Track(nil), e.queue...)
}

// QueuePosition returns the current queue index.
func (e *Engine) QueuePosition() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.position
}

// History returns a copy of the play history.
func (e *Engine) History() []song.Track {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]song.Track(nil), e.history...)
}

// Repeat reports whether single-track repeat is on.
func (e *Engine) Repeat() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.repeat
}

// RelationLens returns the active lens.
func (e *Engine) RelationLens() Lens {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lens
}

// RelatedTracks projects the recommendation pool selected by the lens.
func (e *Engine) RelatedTracks() []song.Track {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]song.Track(nil), e.pools[e.lens]...)
}

// Features returns the acoustic features of the current track, or nil.
func (e *Engine) Features() *song.AcousticFeatures {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.feats
}

// Colors returns the artwork colors of the current track. Empty means the
// default gradient.
func (e *Engine) Colors() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.colorList...)
}
