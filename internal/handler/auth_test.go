package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pichub/internal/auth"
	"github.com/sakif/pichub/internal/github"
	"github.com/sakif/pichub/internal/model"
)

func newTestAuthHandler(t *testing.T) (*AuthHandler, *auth.TokenService) {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)

	provider := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/api/auth/callback")
	h := NewAuthHandler(provider, tokens, github.NewClient(), false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h, tokens
}

func TestHandleLogin_RedirectsWithStateCookie(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/github", nil)
	w := httptest.NewRecorder()
	h.HandleLogin(w, r)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "github.com", location.Host)
	assert.Equal(t, "client-id", location.Query().Get("client_id"))
	assert.Contains(t, location.Query().Get("scope"), "repo")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	state := cookies[0]
	assert.Equal(t, "oauth_state", state.Name)
	assert.NotEmpty(t, state.Value)
	assert.True(t, state.HttpOnly)
	assert.Equal(t, state.Value, location.Query().Get("state"), "redirect state must match the cookie")
}

func TestHandleCallback_MissingStateCookie(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=abc&state=xyz", nil)
	w := httptest.NewRecorder()
	h.HandleCallback(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCallback_StateMismatch(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=abc&state=forged", nil)
	r.AddCookie(&http.Cookie{Name: "oauth_state", Value: "genuine"})
	w := httptest.NewRecorder()
	h.HandleCallback(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCallback_UserDenied(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/callback?error=access_denied&state=s1", nil)
	r.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
	w := httptest.NewRecorder()
	h.HandleCallback(w, r)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?auth=denied", w.Header().Get("Location"))

	// No session cookie on a denied flow.
	for _, c := range w.Result().Cookies() {
		assert.NotEqual(t, auth.CookieName, c.Name)
	}
}

func TestHandleCallback_MissingCode(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/callback?state=s1", nil)
	r.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
	w := httptest.NewRecorder()
	h.HandleCallback(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleVerify(t *testing.T) {
	h, tokens := newTestAuthHandler(t)

	t.Run("no session", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
		w := httptest.NewRecorder()
		h.HandleVerify(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid session", func(t *testing.T) {
		token, err := tokens.Issue(model.Identity{
			ID: 42, Login: "sakif", Email: "sakif@example.com", GitHubToken: "gho_x",
		})
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
		r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
		w := httptest.NewRecorder()
		h.HandleVerify(w, r)

		assert.Equal(t, http.StatusOK, w.Code)

		var env Envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.True(t, env.Success)

		data := env.Data.(map[string]any)
		assert.Equal(t, true, data["valid"])
		user := data["user"].(map[string]any)
		assert.Equal(t, "sakif", user["login"])
		// The GitHub access token must never appear in a response body.
		assert.NotContains(t, w.Body.String(), "gho_x")
	})
}

func TestHandleLogout_ClearsSessionCookie(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	r := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()
	h.HandleLogout(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
