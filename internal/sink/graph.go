package sink

import (
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
)

// swapStreamer is the mount point of the output graph: the graph stays
// attached to the speaker for the sink's lifetime and only the source under
// this streamer changes. With no source it produces silence so the graph
// never terminates.
type swapStreamer struct {
	mu        sync.Mutex
	inner     beep.Streamer
	onDrained func(beep.Streamer)
}

// Set replaces the current source. A nil source detaches without notifying.
func (s *swapStreamer) Set(inner beep.Streamer) {
	s.mu.Lock()
	s.inner = inner
	s.mu.Unlock()
}

func (s *swapStreamer) Stream(samples [][2]float64) (int, bool) {
	s.mu.Lock()
	inner := s.inner
	s.mu.Unlock()

	if inner == nil {
		silence(samples)
		return len(samples), true
	}

	n, ok := inner.Stream(samples)
	if ok && n == len(samples) {
		return n, true
	}

	// Source drained. Detach it, unless a newer one was swapped in while we
	// were streaming.
	s.mu.Lock()
	drained := s.inner == inner
	if drained {
		s.inner = nil
	}
	cb := s.onDrained
	s.mu.Unlock()

	silence(samples[n:])
	if drained && cb != nil {
		cb(inner)
	}
	return len(samples), true
}

func (s *swapStreamer) Err() error { return nil }

func silence(samples [][2]float64) {
	for i := range samples {
		samples[i] = [2]float64{}
	}
}

// analyser sits at the end of the graph and keeps running RMS and peak
// figures of the post-gain signal for visualization.
type analyser struct {
	streamer beep.Streamer

	mu   sync.Mutex
	rms  float64
	peak float64
}

func (a *analyser) Stream(samples [][2]float64) (int, bool) {
	n, ok := a.streamer.Stream(samples)

	var sumSquares, peak float64
	for i := range n {
		for _, ch := range samples[i] {
			v := math.Abs(ch)
			sumSquares += ch * ch
			peak = math.Max(peak, v)
		}
	}

	var rms float64
	if n > 0 {
		rms = math.Sqrt(sumSquares / float64(2*n))
	}

	a.mu.Lock()
	a.rms = rms
	a.peak = math.Min(peak, 1)
	a.mu.Unlock()

	return n, ok
}

func (a *analyser) Err() error { return a.streamer.Err() }

// Levels reports the RMS and peak of the most recent buffer.
func (a *analyser) Levels() (rms, peak float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rms, a.peak
}
