package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/pichub/internal/auth"
	"github.com/sakif/pichub/internal/github"
	"github.com/sakif/pichub/internal/model"
)

// AuthHandler manages the GitHub OAuth login flow and session management.
//
//   - HandleLogin    → redirect the browser to GitHub's authorization page
//   - HandleCallback → receive the code, exchange it, mint the session cookie
//   - HandleVerify   → report the current session's identity (public route)
//   - HandleLogout   → clear the session cookie
type AuthHandler struct {
	provider     *auth.GitHubProvider
	tokens       *auth.TokenService
	client       *github.Client
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(
	provider *auth.GitHubProvider,
	tokens *auth.TokenService,
	client *github.Client,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider:     provider,
		tokens:       tokens,
		client:       client,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// HandleLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /api/auth/github
//
// A random state value goes into a short-lived cookie; the callback verifies
// it to reject forged callbacks.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth login flow.
//
// HTTP: GET /api/auth/callback?code=xxx&state=yyy
//
// Flow:
//  1. Validate the state parameter against the cookie
//  2. Exchange the code for the user's GitHub access token
//  3. Fetch the profile; fall back to /user/emails when the email is hidden
//  4. Mint the 7-day session token, set it as the auth_token cookie
//  5. Redirect to the configuration page
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		writeJSON(w, http.StatusBadRequest, Envelope{Success: false, Message: "invalid OAuth state"})
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, Envelope{Success: false, Message: "invalid OAuth state"})
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusUnauthorized, Envelope{Success: false, Message: "missing authorization code"})
		return
	}

	accessToken, err := h.provider.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: code exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusUnauthorized, Envelope{Success: false, Message: "failed to obtain access token"})
		return
	}

	user, err := h.client.GetUser(r.Context(), accessToken)
	if err != nil {
		h.logger.Error("auth callback: fetching profile failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, Envelope{Success: false, Message: "login failed"})
		return
	}

	email := user.Email
	if email == "" {
		email = h.resolveEmail(r, accessToken)
	}

	identity := model.Identity{
		ID:          user.ID,
		Login:       user.Login,
		Email:       email,
		AvatarURL:   user.AvatarURL,
		GitHubToken: accessToken,
	}

	sessionToken, err := h.tokens.Issue(identity)
	if err != nil {
		h.logger.Error("auth callback: issuing session token failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, Envelope{Success: false, Message: "login failed"})
		return
	}

	auth.SetSessionCookie(w, sessionToken, h.secureCookie)

	h.logger.Info("user authenticated",
		slog.Int64("id", identity.ID),
		slog.String("login", identity.Login),
	)

	http.Redirect(w, r, "/config", http.StatusSeeOther)
}

// resolveEmail fetches /user/emails and picks the primary verified address,
// falling back to the first one, or empty. Email is optional — a lookup
// failure degrades to an empty email rather than failing the login.
func (h *AuthHandler) resolveEmail(r *http.Request, accessToken string) string {
	emails, err := h.client.GetUserEmails(r.Context(), accessToken)
	if err != nil {
		h.logger.Warn("auth callback: fetching emails failed", slog.String("error", err.Error()))
		return ""
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}

// HandleVerify reports whether the request carries a valid session.
//
// HTTP: GET /api/auth/verify
//
// This route is public: the client probes it on startup to restore auth
// state from the cookie, and a 401 here is the normal "not logged in"
// answer. The GitHub access token never appears in the response.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromRequest(r, h.tokens)
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, Envelope{Success: false, Message: "authentication token missing or invalid"})
		return
	}

	writeSuccess(w, map[string]any{
		"valid": true,
		"user":  identity,
	}, "")
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/auth/logout
//
// Stateless sessions mean logout is purely client-side: the token stays
// valid until expiry, but without the cookie the browser can't send it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookie)
	writeSuccess(w, nil, "logged out")
}
