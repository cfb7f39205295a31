// Package notify provides desktop notifications via D-Bus.
package notify

import "ossia/internal/song"

// Urgency represents notification priority levels per freedesktop spec.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

const nowPlayingTimeoutMS = 5000

// Notification contains data for a desktop notification.
type Notification struct {
	Title      string  // Summary text (required)
	Body       string  // Body text (optional, supports basic markup)
	Icon       string  // Path to image file or icon name (optional)
	Timeout    int32   // ms, -1 = server default, 0 = never expire
	ReplacesID uint32  // 0 = new notification, >0 = replace existing
	Urgency    Urgency // Low, Normal, Critical
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify sends a notification and returns its ID.
	// Returns 0 and nil error if notifications are disabled or unavailable.
	Notify(n Notification) (uint32, error)
	// Close closes a notification by ID.
	Close(id uint32) error
}

// Announcer sends now-playing notifications, replacing the previous one so
// rapid track changes never stack up on screen.
type Announcer struct {
	notifier Notifier
	lastID   uint32
}

func NewAnnouncer(notifier Notifier) *Announcer {
	return &Announcer{notifier: notifier}
}

// NowPlaying announces a track change.
func (a *Announcer) NowPlaying(t *song.Track) {
	if a == nil || a.notifier == nil || t == nil {
		return
	}

	id, err := a.notifier.Notify(Notification{
		Title:      t.Title,
		Body:       t.Artist,
		Timeout:    nowPlayingTimeoutMS,
		ReplacesID: a.lastID,
		Urgency:    UrgencyLow,
	})
	if err != nil {
		return
	}
	a.lastID = id
}
