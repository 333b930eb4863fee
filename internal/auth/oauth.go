package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// Scopes requested from GitHub:
//   - "repo"       — read/write repository contents (the image store)
//   - "workflow"   — push to repositories containing workflow files
//   - "user:email" — read the user's email addresses
var scopes = []string{"repo", "workflow", "user:email"}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow: redirect the user to GitHub, receive a short-lived code on the
// callback, exchange it server-to-server for an access token. The
// ClientSecret never leaves the server and the access token never touches
// the browser except inside the signed session cookie.
type GitHubProvider struct {
	config *oauth2.Config
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// You get ClientID and ClientSecret by registering an OAuth App at
// https://github.com/settings/developers. callbackURL must match the
// "Authorization callback URL" configured there exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       scopes,
			Endpoint:     github.Endpoint,
		},
	}
}

// AuthURL returns the GitHub authorization URL to redirect the user to.
// state is a random single-use value the callback handler checks against a
// cookie to reject forged callbacks.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode trades the authorization code for the user's GitHub access
// token. The code is single-use and short-lived; the exchange is a
// server-to-server POST carrying our ClientSecret.
func (p *GitHubProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("auth: GitHub returned no access token")
	}
	return token.AccessToken, nil
}
