//go:build linux

package mpris

import (
	"strings"
	"testing"
)

func TestFormatTrackID(t *testing.T) {
	id := formatTrackID("spotify-1", "Imagine", "John Lennon")
	if !strings.HasPrefix(id, "/org/mpris/MediaPlayer2/Track/") {
		t.Errorf("track id %q missing object path prefix", id)
	}

	if formatTrackID("spotify-1", "", "") != id {
		t.Error("track id should depend only on canonical id when present")
	}

	if formatTrackID("spotify-2", "Imagine", "John Lennon") == id {
		t.Error("different canonical ids should produce different track ids")
	}

	fallback := formatTrackID("", "Imagine", "John Lennon")
	if fallback == formatTrackID("", "Imagine (Live)", "John Lennon") {
		t.Error("fallback track id should depend on title")
	}
}
