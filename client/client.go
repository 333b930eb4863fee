// Package client is a Go SDK for the PicHub REST API. It mirrors the app's
// client-side state stores: each store caches the last-fetched server state
// behind a mutex, exposes a loading/syncing flag, and offers action methods
// that call the corresponding route and update local state on success or
// report a transient notification on failure. No retry, no offline queue —
// every action is fire-and-forget against the server truth.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// APIError is a failed API call: a non-2xx status or a success=false
// envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: API returned status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 — the normal "not logged in"
// answer from the verify endpoint.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client issues requests against a PicHub server. Construct it explicitly
// and inject it into the stores — there are no package-level singletons.
type Client struct {
	baseURL string
	httpc   *http.Client
	token   string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client. The default client carries a
// cookie jar so the HttpOnly session cookie round-trips automatically.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithToken sends the session token as a bearer Authorization header instead
// of relying on the cookie. The server prefers the cookie when both are
// present.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: baseURL}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpc == nil {
		jar, _ := cookiejar.New(nil)
		c.httpc = &http.Client{Jar: jar}
	}
	return c
}

// envelope is the server's standard response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do issues a JSON request and unmarshals the envelope's data into out
// (skipped when out is nil or data is absent). Returns the envelope message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (string, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return "", fmt.Errorf("client: encoding %s %s request: %w", method, path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return "", fmt.Errorf("client: building %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("client: calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("client: decoding %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		message := env.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("client: decoding %s %s data: %w", method, path, err)
		}
	}
	return env.Message, nil
}
