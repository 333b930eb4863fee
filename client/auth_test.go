package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthInit_RestoresSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/verify", r.URL.Path)
		writeEnvelope(w, http.StatusOK, true, map[string]any{
			"valid": true,
			"user":  map[string]any{"id": 42, "login": "sakif", "email": "sakif@example.com"},
		}, "")
	})
	store := NewAuthStore(c, NewNotifier(0))

	require.NoError(t, store.Init(context.Background()))
	assert.True(t, store.Authenticated())
	require.NotNil(t, store.User())
	assert.Equal(t, "sakif", store.User().Login)
	assert.False(t, store.Loading())
}

func TestAuthInit_NotLoggedInIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, false, nil, "authentication token missing or invalid")
	})
	store := NewAuthStore(c, NewNotifier(0))

	require.NoError(t, store.Init(context.Background()), "a 401 from verify is the normal anonymous answer")
	assert.False(t, store.Authenticated())
	assert.Nil(t, store.User())
}

func TestAuthInit_ServerErrorPropagates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, false, nil, "An internal error occurred")
	})
	store := NewAuthStore(c, NewNotifier(0))

	assert.Error(t, store.Init(context.Background()))
	assert.False(t, store.Authenticated())
}

func TestAuthLogout_ClearsLocalStateEvenOnFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/verify" {
			writeEnvelope(w, http.StatusOK, true, map[string]any{
				"valid": true,
				"user":  map[string]any{"id": 42, "login": "sakif"},
			}, "")
			return
		}
		writeEnvelope(w, http.StatusInternalServerError, false, nil, "An internal error occurred")
	})
	notify := NewNotifier(0)
	store := NewAuthStore(c, notify)

	require.NoError(t, store.Init(context.Background()))
	require.True(t, store.Authenticated())

	err := store.Logout(context.Background())
	assert.Error(t, err)
	assert.False(t, store.Authenticated(), "the user asked to leave; local state clears regardless")
	assert.Nil(t, store.User())

	notes := notify.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, LevelError, notes[0].Level)
}

func TestAuthLoginURL(t *testing.T) {
	c := New("http://localhost:8080")
	store := NewAuthStore(c, NewNotifier(0))
	assert.Equal(t, "http://localhost:8080/api/auth/github", store.LoginURL())
}
