package sink

import (
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constStreamer produces a fixed value for a fixed number of samples.
type constStreamer struct {
	value     float64
	remaining int
}

func (c *constStreamer) Stream(samples [][2]float64) (int, bool) {
	if c.remaining <= 0 {
		return 0, false
	}
	n := min(len(samples), c.remaining)
	for i := range n {
		samples[i] = [2]float64{c.value, c.value}
	}
	c.remaining -= n
	return n, n > 0
}

func (c *constStreamer) Err() error { return nil }

func TestSwapStreamerSilenceWhenEmpty(t *testing.T) {
	s := &swapStreamer{}
	samples := make([][2]float64, 64)
	samples[0] = [2]float64{0.7, 0.7}

	n, ok := s.Stream(samples)
	assert.Equal(t, 64, n)
	assert.True(t, ok)
	assert.Equal(t, [2]float64{}, samples[0])
}

func TestSwapStreamerNotifiesOnDrain(t *testing.T) {
	var drained []beep.Streamer
	s := &swapStreamer{onDrained: func(src beep.Streamer) {
		drained = append(drained, src)
	}}

	src := &constStreamer{value: 0.5, remaining: 10}
	s.Set(src)

	samples := make([][2]float64, 64)
	n, ok := s.Stream(samples)
	require.Equal(t, 64, n)
	require.True(t, ok)

	assert.Equal(t, [2]float64{0.5, 0.5}, samples[9])
	assert.Equal(t, [2]float64{}, samples[10], "tail past the source is silence")
	require.Len(t, drained, 1)
	assert.Same(t, src, drained[0])

	// Once drained the source is detached; no second notification.
	_, _ = s.Stream(samples)
	assert.Len(t, drained, 1)
}

func TestSwapStreamerReplaceDropsOldSource(t *testing.T) {
	var drained int
	s := &swapStreamer{onDrained: func(beep.Streamer) { drained++ }}

	s.Set(&constStreamer{value: 0.1, remaining: 1000})
	s.Set(&constStreamer{value: 0.9, remaining: 1000})

	samples := make([][2]float64, 8)
	_, _ = s.Stream(samples)
	assert.Equal(t, [2]float64{0.9, 0.9}, samples[0])
	assert.Zero(t, drained)
}

func TestAnalyserLevels(t *testing.T) {
	src := &constStreamer{value: 0.5, remaining: 1 << 20}
	a := &analyser{streamer: src}

	samples := make([][2]float64, 256)
	n, ok := a.Stream(samples)
	require.Equal(t, 256, n)
	require.True(t, ok)

	rms, peak := a.Levels()
	assert.InDelta(t, 0.5, rms, 1e-9)
	assert.InDelta(t, 0.5, peak, 1e-9)
}

func TestLevelToVolume(t *testing.T) {
	assert.Equal(t, 0.0, levelToVolume(1))
	assert.Equal(t, -1.0, levelToVolume(0.5))
	assert.Equal(t, -2.0, levelToVolume(0.25))
	assert.Equal(t, -10.0, levelToVolume(0))
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		contentType string
		url         string
		want        string
	}{
		{"audio/ogg", "http://cdn/a", "ogg"},
		{"audio/mpeg", "http://cdn/a.ogg", "mp3"},
		{"", "http://cdn/a.ogg?x=1", "ogg"},
		{"", "http://cdn/a.flac", "flac"},
		{"application/octet-stream", "http://cdn/a", "mp3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeFormat(tt.contentType, tt.url), tt.url)
	}
}
