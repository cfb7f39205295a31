// Package sink is the audio output boundary: it takes a resolved stream URL
// and drives the speaker. Everything above it deals in tracks and queries,
// never in samples.
package sink

import (
	"context"
	"time"
)

// Interface defines the sink contract for dependency injection and testing.
type Interface interface {
	// Play fetches the stream and starts output, replacing whatever was
	// playing. The context bounds the fetch only, not playback.
	Play(ctx context.Context, url string) error
	Stop()
	Pause()
	Resume()
	Toggle()
	State() State
	Position() time.Duration
	Duration() time.Duration
	// SeekTo moves to an absolute position, clamped to [0, Duration].
	SeekTo(pos time.Duration)
	// SetVolume sets the output level in [0, 1]; the analyser observes the
	// post-gain signal.
	SetVolume(level float64)
	Volume() float64
	// Levels reports the current post-gain RMS and peak in [0, 1].
	Levels() (rms, peak float64)
	// FinishedChan signals natural end of stream.
	FinishedChan() <-chan struct{}
	// ErrorChan signals mid-playback failures.
	ErrorChan() <-chan error
	Close() error
}

// Verify implementations at compile time.
var (
	_ Interface = (*Beep)(nil)
	_ Interface = (*Mock)(nil)
)
