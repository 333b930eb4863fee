package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify(t *testing.T) {
	n := NewNotifier(time.Minute)

	id := n.Success("all uploads complete")
	assert.NotEmpty(t, id)

	notes := n.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, id, notes[0].ID)
	assert.Equal(t, LevelSuccess, notes[0].Level)
	assert.Equal(t, "all uploads complete", notes[0].Message)
}

func TestNotifyRemove(t *testing.T) {
	n := NewNotifier(time.Minute)

	id1 := n.Error("one")
	n.Warning("two")

	n.Remove(id1)
	notes := n.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "two", notes[0].Message)

	// Removing an unknown ID is a no-op.
	n.Remove("nope")
	assert.Len(t, n.Notifications(), 1)
}

func TestNotifyExpiry(t *testing.T) {
	n := NewNotifier(10 * time.Millisecond)

	n.Info("blink and you miss it")
	require.Len(t, n.Notifications(), 1)

	assert.Eventually(t, func() bool {
		return len(n.Notifications()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestNotifications_IsASnapshot(t *testing.T) {
	n := NewNotifier(time.Minute)
	n.Info("original")

	notes := n.Notifications()
	notes[0].Message = "mutated"

	assert.Equal(t, "original", n.Notifications()[0].Message)
}
