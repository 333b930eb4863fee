package client

import (
	"context"
	"net/http"
	"sync"
)

// User is the identity snapshot the server reports for the current session.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
}

// AuthStore mirrors the server's view of the current session.
type AuthStore struct {
	mu     sync.Mutex
	c      *Client
	notify *Notifier

	user          *User
	authenticated bool
	loading       bool
}

// NewAuthStore creates an AuthStore over the given client and notifier.
func NewAuthStore(c *Client, notify *Notifier) *AuthStore {
	return &AuthStore{c: c, notify: notify}
}

// verifyData is the payload of GET /api/auth/verify.
type verifyData struct {
	Valid bool  `json:"valid"`
	User  *User `json:"user"`
}

// Init restores authentication state from the session cookie by probing the
// verify endpoint. A 401 is the normal "not logged in" answer and leaves the
// store unauthenticated without error.
func (s *AuthStore) Init(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var data verifyData
	_, err := s.c.do(ctx, http.MethodGet, "/api/auth/verify", nil, nil, &data)
	if err != nil {
		s.clear()
		if IsUnauthorized(err) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.user = data.User
	s.authenticated = data.Valid && data.User != nil
	s.mu.Unlock()
	return nil
}

// LoginURL is where to send the browser to start the GitHub OAuth flow.
func (s *AuthStore) LoginURL() string {
	return s.c.baseURL + "/api/auth/github"
}

// Logout clears the server-side cookie and the local state. Local state is
// cleared even when the request fails — the user asked to leave.
func (s *AuthStore) Logout(ctx context.Context) error {
	_, err := s.c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
	s.clear()
	if err != nil {
		s.notify.Error("logout failed: " + err.Error())
		return err
	}
	return nil
}

// User returns the cached identity, or nil when unauthenticated.
func (s *AuthStore) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Authenticated reports whether the last probe found a valid session.
func (s *AuthStore) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Loading reports whether an Init call is in flight.
func (s *AuthStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *AuthStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *AuthStore) clear() {
	s.mu.Lock()
	s.user = nil
	s.authenticated = false
	s.mu.Unlock()
}
