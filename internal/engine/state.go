package engine

// State is the session state exposed to subscribers.
//
// Valid transitions:
//   - Idle      → Resolving (via Play)
//   - Resolving → Playing   (stream resolved, output started)
//   - Resolving → Idle      (resolution failed and nothing left to advance to)
//   - Playing   ↔ Paused    (via Pause toggle)
//   - Playing   → Resolving (track ended, advancing) or Idle (queue exhausted)
//
// Ended is not a visible state: end of stream transitions straight to
// Resolving or Idle.
type State int

const (
	Idle State = iota
	Resolving
	Playing
	Paused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Resolving:
		return "Resolving"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// IsActive returns true if a track is loaded (anything but Idle).
func (s State) IsActive() bool {
	return s != Idle
}

// Lens selects which recommendation pool is exposed.
type Lens string

const (
	LensTrack  Lens = "track"
	LensArtist Lens = "artist"
)

// Valid returns true for a known lens value.
func (l Lens) Valid() bool {
	return l == LensTrack || l == LensArtist
}
