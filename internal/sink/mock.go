package sink

import (
	"context"
	"sync"
	"time"
)

// Mock is a test double for the audio sink.
type Mock struct {
	mu          sync.Mutex
	state       State
	position    time.Duration
	duration    time.Duration
	volumeLevel float64
	rms, peak   float64
	playErr     error
	playDelay   time.Duration
	playCalls   []string
	seekCalls   []time.Duration
	finishedCh  chan struct{}
	errCh       chan error
}

// NewMock creates a mock sink for testing.
func NewMock() *Mock {
	return &Mock{
		state:       Stopped,
		volumeLevel: 1,
		finishedCh:  make(chan struct{}, 1),
		errCh:       make(chan error, 1),
	}
}

func (m *Mock) Play(ctx context.Context, url string) error {
	m.mu.Lock()
	delay := m.playDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCalls = append(m.playCalls, url)
	if m.playErr != nil {
		return m.playErr
	}
	m.state = Playing
	m.position = 0
	return nil
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Stopped
	m.position = 0
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Playing {
		m.state = Paused
	}
}

func (m *Mock) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Paused {
		m.state = Playing
	}
}

func (m *Mock) Toggle() {
	switch m.State() {
	case Playing:
		m.Pause()
	case Paused:
		m.Resume()
	case Stopped:
		// Nothing to toggle when stopped
	}
}

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) SeekTo(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, pos)
	m.position = pos
}

func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumeLevel = level
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volumeLevel
}

func (m *Mock) Levels() (rms, peak float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rms, m.peak
}

func (m *Mock) FinishedChan() <-chan struct{} { return m.finishedCh }

func (m *Mock) ErrorChan() <-chan error { return m.errCh }

func (m *Mock) Close() error {
	m.Stop()
	return nil
}

// Test helpers

func (m *Mock) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

// SetPlayDelay makes Play block, so tests can race it against cancellation.
func (m *Mock) SetPlayDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playDelay = d
}

func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

func (m *Mock) SetPosition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = d
}

func (m *Mock) SetLevels(rms, peak float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rms, m.peak = rms, peak
}

func (m *Mock) PlayCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.playCalls...)
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

// SimulateFinished signals a natural end of stream.
func (m *Mock) SimulateFinished() {
	m.mu.Lock()
	m.state = Stopped
	m.mu.Unlock()
	select {
	case m.finishedCh <- struct{}{}:
	default:
	}
}

// SimulateError signals a mid-playback failure.
func (m *Mock) SimulateError(err error) {
	m.mu.Lock()
	m.state = Stopped
	m.mu.Unlock()
	select {
	case m.errCh <- err:
	default:
	}
}
