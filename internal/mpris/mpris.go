//go:build linux

package mpris

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"ossia/internal/engine"
)

// Adapter exposes the engine over MPRIS on the session D-Bus.
type Adapter struct {
	engine *engine.Engine
	server *server.Server
	done   chan struct{}
}

// New creates and starts a new MPRIS adapter.
func New(eng *engine.Engine) (*Adapter, error) {
	a := &Adapter{
		engine: eng,
		done:   make(chan struct{}),
	}

	rootAdapter := &rootAdapter{}
	playerAdapter := &playerAdapter{engine: eng}

	a.server = server.NewServer("ossia", rootAdapter, playerAdapter)

	go func() {
		_ = a.server.Listen()
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	close(a.done)
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil // Track list interface not implemented
}

func (r *rootAdapter) Identity() (string, error) {
	return "Ossia", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/ogg"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and optional interfaces.
type playerAdapter struct {
	engine *engine.Engine
}

func (p *playerAdapter) Next() error {
	p.engine.Next()
	return nil
}

func (p *playerAdapter) Previous() error {
	p.engine.Previous()
	return nil
}

func (p *playerAdapter) Pause() error {
	if p.engine.State() == engine.StatePlaying {
		p.engine.Pause()
	}
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.engine.Pause()
	return nil
}

func (p *playerAdapter) Stop() error {
	p.engine.Drop()
	return nil
}

func (p *playerAdapter) Play() error {
	if p.engine.State() == engine.StatePaused {
		p.engine.Pause()
	}
	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	p.engine.SeekTo(p.engine.Position() + time.Duration(offset)*time.Microsecond)
	return nil
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	p.engine.SeekTo(time.Duration(position) * time.Microsecond)
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.engine.State() {
	case engine.StatePlaying, engine.StateResolving:
		return types.PlaybackStatusPlaying, nil
	case engine.StatePaused:
		return types.PlaybackStatusPaused, nil
	case engine.StateIdle:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	track := p.engine.Current()
	if track == nil {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(track.CanonicalID, track.Title, track.Artist)),
		Length:  types.Microseconds(track.Duration.Microseconds()),
		Title:   track.Title,
		Artist:  []string{track.Artist},
	}

	if track.ArtworkURL != "" {
		meta.ArtUrl = track.ArtworkURL
	}

	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.engine.Volume(), nil
}

func (p *playerAdapter) SetVolume(level float64) error {
	p.engine.SetVolume(level)
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.engine.Position().Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return p.engine.Current() != nil, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.engine.QueuePosition() > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.engine.Current() != nil, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	if p.engine.Repeat() {
		return types.LoopStatusTrack, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	p.engine.SetRepeat(status == types.LoopStatusTrack)
	return nil
}

func formatTrackID(canonicalID, title, artist string) string {
	h := fnv.New64a()
	if canonicalID != "" {
		h.Write([]byte(canonicalID))
	} else {
		h.Write([]byte(artist + "\x00" + title))
	}
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
