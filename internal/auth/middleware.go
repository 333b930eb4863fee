package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/pichub/internal/model"
)

// CookieName is the session cookie. HttpOnly keeps it out of reach of
// page JavaScript.
const CookieName = "auth_token"

// contextKey is an unexported type for context keys in this package, so only
// this package can read or write the identity value.
type contextKey string

const identityKey contextKey = "identity"

// RequireIdentity gates protected routes: it extracts the session token
// (cookie first, then bearer header), verifies it, and binds the identity to
// the request context. Missing or invalid tokens are rejected immediately
// with 401 — handlers behind this middleware always see a valid identity.
//
// The OAuth start/callback/verify routes are registered outside this
// middleware; everything else sits behind it, uniformly.
func RequireIdentity(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := identityFromRequest(r, tokens)
			if identity == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"success":false,"message":"valid authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated identity from the request
// context. Returns (nil, false) when the request is anonymous, which on a
// RequireIdentity-protected route should never happen.
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*model.Identity)
	return identity, ok && identity != nil
}

// IdentityFromRequest resolves the request's session token to an identity,
// or nil if no valid token is present. Exposed for the verify handler, which
// is public and reports auth state instead of rejecting.
func IdentityFromRequest(r *http.Request, tokens *TokenService) *model.Identity {
	return identityFromRequest(r, tokens)
}

func identityFromRequest(r *http.Request, tokens *TokenService) *model.Identity {
	tokenStr := TokenFromRequest(r)
	if tokenStr == "" {
		return nil
	}

	identity, err := tokens.Verify(tokenStr)
	if err != nil {
		return nil
	}
	return identity
}

// TokenFromRequest extracts the raw session token. Two carriers are
// supported: the auth_token cookie and an "Authorization: Bearer" header.
// The cookie takes precedence when both are present.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
		return parts[1]
	}

	return ""
}

// SetSessionCookie stores the session token as an HttpOnly, SameSite=Lax
// cookie with the session's 7-day lifetime. secure should be true in
// production (HTTPS only).
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to delete the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
