package engine

import (
	"time"

	"ossia/internal/song"
)

// StateChange is emitted when the session state changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when the current track changes, including to nil
// when the session goes idle.
//
// Consumers handle all track side effects (now-playing metadata, desktop
// notification, scrobble, colors) in response to this event; the engine
// itself never talks to the desktop.
type TrackChange struct {
	Previous *song.Track
	Current  *song.Track
}

// QueueChange is emitted when the queue contents or position change.
type QueueChange struct {
	Tracks   []song.Track
	Position int
}

// ModeChange is emitted when repeat or the relation lens changes.
type ModeChange struct {
	Repeat bool
	Lens   Lens
}

// PositionChange carries the telemetry projection, emitted on every
// progress tick and on seeks.
type PositionChange struct {
	Position   time.Duration
	Duration   time.Duration
	Percentage float64
}

// RelatedChange is emitted when the exposed recommendation pool changes,
// either because a fetch completed or because the lens switched.
type RelatedChange struct {
	Lens   Lens
	Tracks []song.Track
}

// FeaturesChange is emitted when acoustic features arrive for the current
// track. Features may be nil when the track has none.
type FeaturesChange struct {
	Features *song.AcousticFeatures
}

// ColorsChange is emitted when artwork colors arrive for the current track.
// An empty list is valid; visualization falls back to a default gradient.
type ColorsChange struct {
	Colors []string
}

// ErrorEvent is emitted when an operation fails in a way the session
// survives.
type ErrorEvent struct {
	Operation string // e.g. "resolve", "sink"
	Track     *song.Track
	Err       error
}
