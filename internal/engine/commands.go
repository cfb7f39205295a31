package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"ossia/internal/song"
)

// ErrTooManyFailures reports that the auto-advance chain hit its budget and
// the session went idle.
var ErrTooManyFailures = errors.New("too many consecutive playback failures")

// Play makes t the current track and starts resolving its stream. Any
// in-flight work for the previous track is cancelled. Playback state is set
// optimistically; if resolution fails the session auto-advances.
func (e *Engine) Play(t song.Track) {
	e.mu.Lock()
	e.failures = 0
	e.mu.Unlock()
	e.playTrack(t)
}

func (e *Engine) playTrack(t song.Track) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if e.cancelCurrent != nil {
		e.cancelCurrent()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancelCurrent = cancel
	e.gen++
	gen := e.gen

	prev := e.current
	cur := t
	e.current = &cur
	e.loading = true
	e.playing = true
	e.feats = nil
	e.colorList = nil
	e.pools = make(map[Lens][]song.Track)
	e.history = append(e.history, cur)
	lens := e.lens
	e.mu.Unlock()

	e.emit(func(s *Subscription) {
		s.sendTrack(TrackChange{Previous: prev, Current: &cur})
		s.sendRelated(RelatedChange{Lens: lens})
		s.sendFeatures(FeaturesChange{})
		s.sendColors(ColorsChange{})
	})
	e.publishState()

	go e.resolveAndStart(ctx, gen, cur)
	go e.fetchRelated(ctx, gen, cur)
	go e.fetchFeatures(ctx, gen, cur)
	go e.fetchColors(ctx, gen, cur)
}

// Pause toggles: playing pauses, paused (or still loading) resumes. A no-op
// with no current track.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.closed || e.current == nil {
		e.mu.Unlock()
		return
	}
	resuming := !e.playing
	e.playing = resuming
	e.mu.Unlock()

	if resuming {
		e.snk.Resume()
	} else {
		e.snk.Pause()
	}
	e.publishState()
}

// SeekTo moves to an absolute position, clamped to [0, duration]. A no-op
// with no current track.
func (e *Engine) SeekTo(pos time.Duration) {
	e.mu.RLock()
	ok := !e.closed && e.current != nil
	e.mu.RUnlock()
	if !ok {
		return
	}

	dur := e.snk.Duration()
	pos = max(pos, 0)
	pos = min(pos, dur)
	e.snk.SeekTo(pos)

	e.emit(func(s *Subscription) {
		s.sendPosition(PositionChange{
			Position:   pos,
			Duration:   dur,
			Percentage: Percentage(pos, dur),
		})
	})
}

// Next advances: repeat replays the current track from the start, then the
// queue, then a random pick from the track-lens recommendation pool, then
// the session goes idle.
func (e *Engine) Next() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	if e.repeat && e.current != nil {
		t := *e.current
		e.mu.Unlock()
		e.playTrack(t)
		return
	}

	if e.position+1 < len(e.queue) {
		e.position++
		t := e.queue[e.position]
		ev := e.queueChangeLocked()
		e.mu.Unlock()
		e.emit(func(s *Subscription) { s.sendQueue(ev) })
		e.playTrack(t)
		return
	}

	// Infinite-radio fallback.
	if pool := e.pools[LensTrack]; len(pool) > 0 {
		t := pool[e.rng.Intn(len(pool))]
		e.mu.Unlock()
		e.playTrack(t)
		return
	}

	e.mu.Unlock()
	e.goIdle()
}

// Previous steps back in the queue. A no-op at the front.
func (e *Engine) Previous() {
	e.mu.Lock()
	if e.closed || e.position == 0 || len(e.queue) == 0 {
		e.mu.Unlock()
		return
	}
	e.position--
	t := e.queue[e.position]
	ev := e.queueChangeLocked()
	e.mu.Unlock()

	e.emit(func(s *Subscription) { s.sendQueue(ev) })
	e.playTrack(t)
}

// SetVolume sets the output level, clamped to [0, 1].
func (e *Engine) SetVolume(level float64) {
	level = max(level, 0)
	level = min(level, 1)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.volume = level
	e.mu.Unlock()

	e.snk.SetVolume(level)
}

// SetRepeat switches single-track repeat on or off.
func (e *Engine) SetRepeat(repeat bool) {
	e.mu.Lock()
	if e.closed || e.repeat == repeat {
		e.mu.Unlock()
		return
	}
	e.repeat = repeat
	ev := ModeChange{Repeat: repeat, Lens: e.lens}
	e.mu.Unlock()

	e.emit(func(s *Subscription) { s.sendMode(ev) })
}

// SetRelationLens switches which recommendation pool is exposed. Unknown
// lens values are ignored.
func (e *Engine) SetRelationLens(lens Lens) {
	if !lens.Valid() {
		return
	}
	e.mu.Lock()
	if e.closed || e.lens == lens {
		e.mu.Unlock()
		return
	}
	e.lens = lens
	mode := ModeChange{Repeat: e.repeat, Lens: lens}
	related := RelatedChange{Lens: lens, Tracks: append([]song.Track(nil), e.pools[lens]...)}
	e.mu.Unlock()

	e.emit(func(s *Subscription) {
		s.sendMode(mode)
		s.sendRelated(related)
	})
}

// AddToQueue appends a track to the queue.
func (e *Engine) AddToQueue(t song.Track) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, t)
	ev := e.queueChangeLocked()
	e.mu.Unlock()

	e.emit(func(s *Subscription) { s.sendQueue(ev) })
}

// AddToHistory appends a track to the history without touching playback.
func (e *Engine) AddToHistory(t song.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.history = append(e.history, t)
}

// ClearQueue empties the queue. The current track keeps playing.
func (e *Engine) ClearQueue() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.queue = nil
	e.position = 0
	ev := e.queueChangeLocked()
	e.mu.Unlock()

	e.emit(func(s *Subscription) { s.sendQueue(ev) })
}

// ClearHistory empties the history.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.history = nil
}

// SetQueuePosition jumps to a queue index and plays the track there. Out of
// range indexes clamp; an empty queue sends the session idle.
func (e *Engine) SetQueuePosition(i int) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if len(e.queue) == 0 {
		e.mu.Unlock()
		e.goIdle()
		return
	}
	i = max(i, 0)
	i = min(i, len(e.queue)-1)
	e.position = i
	t := e.queue[i]
	ev := e.queueChangeLocked()
	e.mu.Unlock()

	e.emit(func(s *Subscription) { s.sendQueue(ev) })
	e.playTrack(t)
}

// Drop resets the session: queue cleared, playback stopped, no current
// track. History survives; ClearHistory is separate.
func (e *Engine) Drop() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.queue = nil
	e.position = 0
	ev := e.queueChangeLocked()
	e.mu.Unlock()

	e.emit(func(s *Subscription) { s.sendQueue(ev) })
	e.goIdle()
}

// queueChangeLocked builds a queue event from current state. Caller holds mu.
func (e *Engine) queueChangeLocked() QueueChange {
	return QueueChange{
		Tracks:   append([]song.Track(nil), e.queue...),
		Position: e.position,
	}
}

// goIdle stops output and clears the current track and its derived state.
func (e *Engine) goIdle() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if e.cancelCurrent != nil {
		e.cancelCurrent()
		e.cancelCurrent = nil
	}
	e.gen++
	prev := e.current
	e.current = nil
	e.playing = false
	e.loading = false
	e.feats = nil
	e.colorList = nil
	e.pools = make(map[Lens][]song.Track)
	e.mu.Unlock()

	e.snk.Stop()

	if prev != nil {
		e.emit(func(s *Subscription) {
			s.sendTrack(TrackChange{Previous: prev, Current: nil})
		})
	}
	e.publishState()
}

// advanceAfterFailure moves on from a dead track, bounded so a chain of
// failing tracks cannot loop forever.
func (e *Engine) advanceAfterFailure() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.failures++
	exhausted := e.failures >= e.maxFailures
	e.mu.Unlock()

	if exhausted {
		e.log.Warn("giving up after repeated failures", zap.Int("failures", e.maxFailures))
		e.emit(func(s *Subscription) {
			s.sendError(ErrorEvent{Operation: "advance", Err: ErrTooManyFailures})
		})
		e.goIdle()
		return
	}
	e.Next()
}
