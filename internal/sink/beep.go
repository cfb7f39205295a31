package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
)

const (
	// All tracks are resampled to one speaker rate so the output graph
	// survives track changes.
	speakerSampleRate = beep.SampleRate(44100)
	speakerBufferSize = time.Second / 10

	fetchTimeout = 2 * time.Minute
	maxStreamMB  = 256
)

var speakerOnce sync.Once

// Beep plays remote audio streams through the gopxl/beep speaker.
//
// The output graph (gain then analyser) is built once per instance and kept
// running; Play only swaps the decoded source underneath it. Volume drives
// the gain stage rather than the source so the analyser sees the post-gain
// signal.
type Beep struct {
	httpClient *http.Client

	mu       sync.Mutex
	state    State
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl

	swap     *swapStreamer
	volume   *effects.Volume
	analyser *analyser

	volumeLevel float64

	finishedCh chan struct{}
	errCh      chan error
	closed     bool
}

// NewBeep creates a sink and starts the persistent output graph.
func NewBeep() (*Beep, error) {
	var initErr error
	speakerOnce.Do(func() {
		initErr = speaker.Init(speakerSampleRate, speakerSampleRate.N(speakerBufferSize))
	})
	if initErr != nil {
		return nil, fmt.Errorf("init speaker: %w", initErr)
	}

	b := &Beep{
		httpClient:  &http.Client{Timeout: fetchTimeout},
		state:       Stopped,
		volumeLevel: 1,
		finishedCh:  make(chan struct{}, 1),
		errCh:       make(chan error, 1),
	}
	b.swap = &swapStreamer{onDrained: b.sourceDrained}
	b.volume = &effects.Volume{Streamer: b.swap, Base: 2, Volume: 0, Silent: false}
	b.analyser = &analyser{streamer: b.volume}

	speaker.Play(b.analyser)
	return b, nil
}

// Play fetches the stream, decodes it and routes it into the output graph.
func (b *Beep) Play(ctx context.Context, streamURL string) error {
	b.Stop()

	body, contentType, err := b.fetch(ctx, streamURL)
	if err != nil {
		return err
	}

	streamer, format, err := decode(body, contentType, streamURL)
	if err != nil {
		return err
	}

	var source beep.Streamer = streamer
	if format.SampleRate != speakerSampleRate {
		source = beep.Resample(4, format.SampleRate, speakerSampleRate, streamer)
	}
	ctrl := &beep.Ctrl{Streamer: source, Paused: false}

	b.mu.Lock()
	// Drain a stale finish signal from the previous track.
	select {
	case <-b.finishedCh:
	default:
	}
	b.streamer = streamer
	b.format = format
	b.ctrl = ctrl
	b.state = Playing
	b.mu.Unlock()

	b.swap.Set(ctrl)
	return nil
}

// fetch downloads the whole stream into memory. Decoders need a seekable
// reader and buffering up front keeps playback immune to network stalls.
func (b *Beep) fetch(ctx context.Context, streamURL string) (io.ReadSeeker, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", fmt.Errorf("fetch stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch stream: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxStreamMB<<20))
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", fmt.Errorf("read stream: %w", err)
	}

	return bytes.NewReader(data), resp.Header.Get("Content-Type"), nil
}

// decode picks a decoder from the content type, falling back to the URL
// extension, then to MP3.
func decode(r io.ReadSeeker, contentType, streamURL string) (beep.StreamSeekCloser, beep.Format, error) {
	rc := readSeekNopCloser{r}

	switch normalizeFormat(contentType, streamURL) {
	case "ogg":
		return vorbis.Decode(rc)
	case "flac":
		return flac.Decode(rc)
	default:
		return mp3.Decode(rc)
	}
}

func normalizeFormat(contentType, streamURL string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "audio/ogg", "application/ogg", "audio/vorbis":
			return "ogg"
		case "audio/flac", "audio/x-flac":
			return "flac"
		case "audio/mpeg", "audio/mp3":
			return "mp3"
		}
	}
	if u, err := url.Parse(streamURL); err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".ogg", ".oga":
			return "ogg"
		case ".flac":
			return "flac"
		}
	}
	return "mp3"
}

// Stop detaches the current source and releases it. The output graph keeps
// running on silence.
func (b *Beep) Stop() {
	b.mu.Lock()
	if b.state == Stopped {
		b.mu.Unlock()
		return
	}
	streamer := b.streamer
	b.streamer = nil
	b.ctrl = nil
	b.state = Stopped
	b.mu.Unlock()

	b.swap.Set(nil)
	if streamer != nil {
		streamer.Close()
	}
}

func (b *Beep) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Playing || b.ctrl == nil {
		return
	}
	speaker.Lock()
	b.ctrl.Paused = true
	speaker.Unlock()
	b.state = Paused
}

func (b *Beep) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Paused || b.ctrl == nil {
		return
	}
	speaker.Lock()
	b.ctrl.Paused = false
	speaker.Unlock()
	b.state = Playing
}

func (b *Beep) Toggle() {
	switch b.State() {
	case Playing:
		b.Pause()
	case Paused:
		b.Resume()
	case Stopped:
		// Nothing to toggle when stopped
	}
}

func (b *Beep) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Beep) Position() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := b.format.SampleRate.D(b.streamer.Position())
	speaker.Unlock()
	return pos
}

func (b *Beep) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return 0
	}
	return b.format.SampleRate.D(b.streamer.Len())
}

// SeekTo moves to an absolute position, clamped to the track bounds.
func (b *Beep) SeekTo(pos time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil || b.state == Stopped {
		return
	}

	target := b.format.SampleRate.N(pos)
	target = max(target, 0)
	target = min(target, b.streamer.Len())

	speaker.Lock()
	_ = b.streamer.Seek(target)
	speaker.Unlock()
}

// SetVolume sets the output level (0.0 to 1.0) on the gain stage.
func (b *Beep) SetVolume(level float64) {
	level = math.Min(math.Max(level, 0), 1)

	b.mu.Lock()
	b.volumeLevel = level
	b.mu.Unlock()

	speaker.Lock()
	b.volume.Volume = levelToVolume(level)
	b.volume.Silent = level <= 0
	speaker.Unlock()
}

func (b *Beep) Volume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volumeLevel
}

func (b *Beep) Levels() (rms, peak float64) {
	return b.analyser.Levels()
}

func (b *Beep) FinishedChan() <-chan struct{} { return b.finishedCh }

func (b *Beep) ErrorChan() <-chan error { return b.errCh }

// Close stops playback and silences the graph. The speaker itself stays
// initialized for the process lifetime.
func (b *Beep) Close() error {
	b.Stop()
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// sourceDrained runs when the current source stops producing samples. Called
// from the speaker's streaming goroutine, so it must not block or touch the
// speaker lock.
func (b *Beep) sourceDrained(src beep.Streamer) {
	b.mu.Lock()
	current := b.ctrl != nil && beep.Streamer(b.ctrl) == src
	var err error
	if current {
		if b.streamer != nil {
			err = b.streamer.Err()
		}
		b.streamer = nil
		b.ctrl = nil
		b.state = Stopped
	}
	b.mu.Unlock()

	if !current {
		return
	}
	if err != nil {
		select {
		case b.errCh <- err:
		default:
		}
		return
	}
	select {
	case b.finishedCh <- struct{}{}:
	default:
	}
}

// levelToVolume converts a 0.0-1.0 level to beep's logarithmic Volume value.
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2; 0 is handled with Silent.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}

type readSeekNopCloser struct {
	io.ReadSeeker
}

func (readSeekNopCloser) Close() error { return nil }
