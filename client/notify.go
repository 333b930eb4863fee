package client

import (
	"sync"
	"time"

	"github.com/rs/xid"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is one transient message shown to the user.
type Notification struct {
	ID      string
	Message string
	Level   Level
}

// DefaultNotificationTTL is how long a notification stays visible.
const DefaultNotificationTTL = 3 * time.Second

// Notifier collects transient notifications. Stores report failures here
// instead of blocking further interaction; each notification removes itself
// after its TTL.
type Notifier struct {
	mu  sync.Mutex
	ttl time.Duration

	notifications []Notification
}

// NewNotifier creates a Notifier with the given TTL; zero means
// DefaultNotificationTTL.
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &Notifier{ttl: ttl}
}

// Notify adds a notification and schedules its removal. Returns its ID.
func (n *Notifier) Notify(level Level, message string) string {
	id := xid.New().String()

	n.mu.Lock()
	n.notifications = append(n.notifications, Notification{
		ID:      id,
		Message: message,
		Level:   level,
	})
	n.mu.Unlock()

	time.AfterFunc(n.ttl, func() { n.Remove(id) })
	return id
}

// Remove drops a notification by ID. Removing an already-expired ID is a
// no-op.
func (n *Notifier) Remove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	kept := n.notifications[:0]
	for _, note := range n.notifications {
		if note.ID != id {
			kept = append(kept, note)
		}
	}
	n.notifications = kept
}

// Notifications returns a snapshot of the currently visible notifications.
func (n *Notifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.notifications))
	copy(out, n.notifications)
	return out
}

func (n *Notifier) Success(message string) string { return n.Notify(LevelSuccess, message) }
func (n *Notifier) Error(message string) string   { return n.Notify(LevelError, message) }
func (n *Notifier) Warning(message string) string { return n.Notify(LevelWarning, message) }
func (n *Notifier) Info(message string) string    { return n.Notify(LevelInfo, message) }
