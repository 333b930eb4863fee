// Package auth provides session-token issuing/verification, the GitHub OAuth
// provider, and the authentication middleware.
//
// The session model is stateless: the signed JWT is the only copy of the
// user's identity and GitHub access token. The server keeps no session store,
// so "logout" is deleting the cookie and a token stays technically valid
// until its expiry.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/pichub/internal/model"
)

// SessionTTL is how long an issued session token is valid.
const SessionTTL = 7 * 24 * time.Hour

const issuer = "pichub"

// TokenService issues and verifies HS256 session tokens carrying the
// authenticated identity. The same secret signs and verifies — keep it safe
// and set it explicitly in production, or sessions die with the process.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// sessionClaims is the JWT payload. Subject carries the GitHub numeric user
// ID; the remaining identity fields ride as private claims. The GitHub access
// token travels here too — the cookie is HttpOnly and the signature keeps the
// payload tamper-evident, and the server has nowhere else to keep it.
type sessionClaims struct {
	jwt.RegisteredClaims
	Login       string `json:"login"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatarUrl"`
	GitHubToken string `json:"githubToken"`
}

// Issue signs a session token for the given identity, valid for SessionTTL.
func (s *TokenService) Issue(identity model.Identity) (string, error) {
	return s.IssueWithDuration(identity, SessionTTL)
}

// IssueWithDuration signs a token with a custom expiry. Used by tests to
// produce already-expired tokens.
func (s *TokenService) IssueWithDuration(identity model.Identity, d time.Duration) (string, error) {
	if identity.ID <= 0 {
		return "", fmt.Errorf("auth: identity has no GitHub user ID")
	}

	now := time.Now()
	c := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
		Login:       identity.Login,
		Email:       identity.Email,
		AvatarURL:   identity.AvatarURL,
		GitHubToken: identity.GitHubToken,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a session token, returning the identity it
// encodes. Any failure — malformed token, bad signature, expiry, wrong
// algorithm, missing or mistyped identity fields — returns an error and a
// nil identity, never a partially-trusted one.
func (s *TokenService) Verify(tokenStr string) (*model.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	// Strict field validation: reject rather than coerce.
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("auth: token subject is not a valid user ID")
	}
	if c.Login == "" {
		return nil, fmt.Errorf("auth: token has no login claim")
	}
	if c.GitHubToken == "" {
		return nil, fmt.Errorf("auth: token has no GitHub access token claim")
	}

	return &model.Identity{
		ID:          id,
		Login:       c.Login,
		Email:       c.Email,
		AvatarURL:   c.AvatarURL,
		GitHubToken: c.GitHubToken,
	}, nil
}
