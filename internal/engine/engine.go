// Package engine is the playback session: one current track, a queue, a
// history, recommendation pools and a single audio sink. Commands mutate
// session state synchronously; everything that touches the network runs as a
// cancellable background operation scoped to the track that started it.
package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"ossia/internal/provider"
	"ossia/internal/sink"
	"ossia/internal/song"
)

const (
	defaultMaxFailures    = 5
	defaultResolveTimeout = 30 * time.Second
	progressTickInterval  = 500 * time.Millisecond
)

// ColorSource extracts an ordered list of dominant colors from a track's
// artwork.
type ColorSource interface {
	Colors(ctx context.Context, t song.Track) ([]string, error)
}

// Deps are the engine's collaborators. Sink and Resolver are required;
// Related, Features and Colors are optional enrichment sources.
type Deps struct {
	Sink     sink.Interface
	Resolver provider.StreamResolver
	Related  provider.RelatedSource
	Features provider.FeatureSource
	Colors   ColorSource
	Log      *zap.Logger
}

// Options tune session policies. Zero values select defaults.
type Options struct {
	// MaxConsecutiveFailures bounds the auto-advance chain: after this many
	// failed tracks in a row the session goes idle instead of skipping
	// forever.
	MaxConsecutiveFailures int

	// ResolveTimeout bounds a single stream resolution so a hung request
	// cannot leave the session loading indefinitely.
	ResolveTimeout time.Duration
}

// Engine owns the playback session.
type Engine struct {
	mu sync.RWMutex

	snk      sink.Interface
	resolver provider.StreamResolver
	related  provider.RelatedSource
	features provider.FeatureSource
	colors   ColorSource
	log      *zap.Logger

	current   *song.Track
	playing   bool
	loading   bool
	volume    float64
	queue     []song.Track
	position  int
	history   []song.Track
	repeat    bool
	lens      Lens
	pools     map[Lens][]song.Track
	feats     *song.AcousticFeatures
	colorList []string

	// gen tags every background operation with the track change that
	// started it; results arriving with a stale gen are discarded.
	gen           uint64
	cancelCurrent context.CancelFunc
	failures      int

	maxFailures    int
	resolveTimeout time.Duration

	// playMu serializes sink.Play calls so a stale resolution can never
	// out-race the newest one onto the sink.
	playMu sync.Mutex

	lastState State

	subs   []*Subscription
	subsMu sync.RWMutex

	rng *rand.Rand

	done   chan struct{}
	closed bool
}

// New creates an engine and starts its sink event loop.
func New(deps Deps, opts Options) *Engine {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = defaultMaxFailures
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = defaultResolveTimeout
	}

	e := &Engine{
		snk:            deps.Sink,
		resolver:       deps.Resolver,
		related:        deps.Related,
		features:       deps.Features,
		colors:         deps.Colors,
		log:            deps.Log,
		volume:         1,
		lens:           LensTrack,
		pools:          make(map[Lens][]song.Track),
		maxFailures:    opts.MaxConsecutiveFailures,
		resolveTimeout: opts.ResolveTimeout,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		done:           make(chan struct{}),
	}
	go e.sinkLoop()
	return e
}

// Subscribe creates a new event subscription. Subscriptions live until the
// engine closes.
func (e *Engine) Subscribe() *Subscription {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	sub := newSubscription()
	e.subs = append(e.subs, sub)
	return sub
}

// Close cancels all in-flight work, stops the sink and closes every
// subscription.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.gen++
	if e.cancelCurrent != nil {
		e.cancelCurrent()
		e.cancelCurrent = nil
	}
	close(e.done)
	e.mu.Unlock()

	e.snk.Stop()

	e.subsMu.Lock()
	for _, sub := range e.subs {
		sub.close()
	}
	e.subs = nil
	e.subsMu.Unlock()

	return nil
}

// sinkLoop translates sink events into session transitions: end of stream
// advances, a sink error counts against the failure budget.
func (e *Engine) sinkLoop() {
	ticker := time.NewTicker(progressTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-e.snk.FinishedChan():
			e.Next()
		case err := <-e.snk.ErrorChan():
			e.sinkFailed(err)
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *Engine) tick() {
	e.mu.RLock()
	active := e.current != nil && e.playing && !e.loading
	e.mu.RUnlock()
	if !active {
		return
	}

	pos, dur := e.snk.Position(), e.snk.Duration()
	e.emit(func(s *Subscription) {
		s.sendPosition(PositionChange{
			Position:   pos,
			Duration:   dur,
			Percentage: Percentage(pos, dur),
		})
	})
}

func (e *Engine) sinkFailed(err error) {
	e.mu.Lock()
	if e.closed || e.current == nil {
		e.mu.Unlock()
		return
	}
	t := *e.current
	e.playing = false
	e.mu.Unlock()

	e.log.Warn("sink error", zap.String("title", t.Title), zap.Error(err))
	e.emit(func(s *Subscription) {
		s.sendError(ErrorEvent{Operation: "sink", Track: &t, Err: err})
	})
	e.advanceAfterFailure()
}

// stateLocked derives the visible state. Caller holds mu.
func (e *Engine) stateLocked() State {
	switch {
	case e.current == nil:
		return Idle
	case e.loading:
		return Resolving
	case e.playing:
		return Playing
	default:
		return Paused
	}
}

// publishState emits a StateChange if the derived state moved.
func (e *Engine) publishState() {
	e.mu.Lock()
	current := e.stateLocked()
	previous := e.lastState
	e.lastState = current
	e.mu.Unlock()

	if current == previous {
		return
	}
	e.emit(func(s *Subscription) {
		s.sendState(StateChange{Previous: previous, Current: current})
	})
}

func (e *Engine) emit(fn func(*Subscription)) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		fn(sub)
	}
}

// Levels exposes the sink's post-gain analyser for visualization.
func (e *Engine) Levels() (rms, peak float64) {
	return e.snk.Levels()
}
