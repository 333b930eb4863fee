// Package github is a thin typed wrapper around the GitHub REST API.
//
// Every operation takes the caller's OAuth access token explicitly — the
// client itself is stateless and safe to share across requests. Durability
// and conflict resolution are GitHub's job: file mutations carry the blob SHA
// of the version they read, and GitHub rejects a stale SHA as a conflict.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the public GitHub API endpoint. Tests point BaseURL at an
// httptest server instead.
const DefaultBaseURL = "https://api.github.com"

const apiVersion = "2022-11-28"

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API returned status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a GitHub 404. Callers use it to decide
// whether absence is an expected case (SHA lookup, content listing) or a
// hard error (everything else).
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client issues authenticated calls against the GitHub REST API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Client against the public GitHub API using the default
// http.Client. No timeout override: outbound calls run to completion.
func NewClient() *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		HTTPClient: http.DefaultClient,
	}
}

// User is the portion of the /user response we care about.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Email is one entry of the /user/emails response.
type Email struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Repo is the portion of a repository object we project to clients.
type Repo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Owner         Owner  `json:"owner"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	Description   string `json:"description"`
}

type Owner struct {
	Login string `json:"login"`
}

// Branch is one entry of the /branches response.
type Branch struct {
	Name      string       `json:"name"`
	Commit    BranchCommit `json:"commit"`
	Protected bool         `json:"protected"`
}

type BranchCommit struct {
	SHA string `json:"sha"`
	URL string `json:"url"`
}

// Content is a file or directory entry from the Contents API. For a file
// read, Content (base64) and Encoding are populated; for directory listings
// each entry describes one child.
type Content struct {
	Type        string `json:"type"` // "file", "dir", "symlink", "submodule"
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
	Content     string `json:"content"`
	Encoding    string `json:"encoding"`
}

// ContentResult is the union returned by GetRepoContent: exactly one of File
// or Entries is set, depending on whether the path named a file or directory.
type ContentResult struct {
	File    *Content
	Entries []Content
}

// Commit is the commit portion of a contents write/delete response.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// FileResponse is the response to a contents PUT or DELETE.
type FileResponse struct {
	Commit  Commit   `json:"commit"`
	Content *Content `json:"content"`
}

// Ref is a git reference, returned by branch creation.
type Ref struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA  string `json:"sha"`
		Type string `json:"type"`
	} `json:"object"`
}

// GetUser fetches the authenticated user's profile.
func (c *Client) GetUser(ctx context.Context, token string) (*User, error) {
	var user User
	if err := c.do(ctx, token, http.MethodGet, "/user", nil, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("github: /user returned an invalid user (ID = 0)")
	}
	return &user, nil
}

// GetUserEmails fetches the authenticated user's email addresses. Selecting
// the primary verified address is the caller's job.
func (c *Client) GetUserEmails(ctx context.Context, token string) ([]Email, error) {
	var emails []Email
	if err := c.do(ctx, token, http.MethodGet, "/user/emails", nil, nil, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// GetUserRepos lists the authenticated user's repositories, private ones
// included, most recently updated first.
func (c *Client) GetUserRepos(ctx context.Context, token string) ([]Repo, error) {
	q := url.Values{}
	q.Set("per_page", "100")
	q.Set("sort", "updated")

	var repos []Repo
	if err := c.do(ctx, token, http.MethodGet, "/user/repos", q, nil, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// GetRepoBranches lists the branches of owner/repo.
func (c *Client) GetRepoBranches(ctx context.Context, token, owner, repo string) ([]Branch, error) {
	var branches []Branch
	path := fmt.Sprintf("/repos/%s/%s/branches", owner, repo)
	if err := c.do(ctx, token, http.MethodGet, path, nil, nil, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

// GetRepoContent reads a path via the Contents API. The API returns a JSON
// object for a file and a JSON array for a directory; we sniff the first
// byte to tell them apart. A 404 propagates as *APIError — use IsNotFound
// where absence is an expected case.
func (c *Client) GetRepoContent(ctx context.Context, token, owner, repo, path, ref string) (*ContentResult, error) {
	var q url.Values
	if ref != "" {
		q = url.Values{"ref": {ref}}
	}

	raw, err := c.doRaw(ctx, token, http.MethodGet, contentsPath(owner, repo, path), q, nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []Content
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("github: decoding directory listing: %w", err)
		}
		return &ContentResult{Entries: entries}, nil
	}

	var file Content
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("github: decoding file content: %w", err)
	}
	return &ContentResult{File: &file}, nil
}

// RepositoryExists probes whether owner/repo exists. 404 means "no", any
// other failure is an error.
func (c *Client) RepositoryExists(ctx context.Context, token, owner, repo string) (bool, error) {
	err := c.do(ctx, token, http.MethodGet, fmt.Sprintf("/repos/%s/%s", owner, repo), nil, nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateRepository creates a repository for the authenticated user. auto_init
// gives it an initial commit so the Contents API works immediately.
func (c *Client) CreateRepository(ctx context.Context, token, name, description string, private bool) (*Repo, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"private":     private,
		"auto_init":   true,
	}

	var repo Repo
	if err := c.do(ctx, token, http.MethodPost, "/user/repos", nil, body, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// CreateOrUpdateFile writes a file via the Contents API. content must already
// be base64-encoded. Omitting sha means "create new"; supplying it means
// "update exactly that version" — a stale SHA is rejected by GitHub as a
// conflict (409/422), which propagates as *APIError.
func (c *Client) CreateOrUpdateFile(ctx context.Context, token, owner, repo, path, content, message, branch, sha string) (*FileResponse, error) {
	body := map[string]any{
		"message": message,
		"content": content,
	}
	if branch != "" {
		body["branch"] = branch
	}
	if sha != "" {
		body["sha"] = sha
	}

	var resp FileResponse
	if err := c.do(ctx, token, http.MethodPut, contentsPath(owner, repo, path), nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteFile deletes a file. sha must be the current blob SHA; the delete
// succeeds only if it still matches.
func (c *Client) DeleteFile(ctx context.Context, token, owner, repo, path, message, sha, branch string) (*FileResponse, error) {
	body := map[string]any{
		"message": message,
		"sha":     sha,
	}
	if branch != "" {
		body["branch"] = branch
	}

	var resp FileResponse
	if err := c.do(ctx, token, http.MethodDelete, contentsPath(owner, repo, path), nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSHA resolves a path to its current blob SHA by performing a read.
// Returns "" with a nil error when the path does not exist: 404 is an
// absence signal here, not an error. For a directory it returns the SHA of
// the first entry (used when clearing directories), or "" if empty.
func (c *Client) GetSHA(ctx context.Context, token, owner, repo, path, branch string) (string, error) {
	result, err := c.GetRepoContent(ctx, token, owner, repo, path, branch)
	if err != nil {
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}

	if result.File != nil {
		return result.File.SHA, nil
	}
	if len(result.Entries) > 0 {
		return result.Entries[0].SHA, nil
	}
	return "", nil
}

// DownloadContent fetches the raw bytes behind a download URL. The Contents
// API omits inline content for blobs over 1 MB (encoding "none"), so reads
// that need the body fall back to this.
func (c *Client) DownloadContent(ctx context.Context, token, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("github: building download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("github: reading download body: %w", err)
	}
	return raw, nil
}

// CreateBranch creates a new branch pointing at the head of fromBranch.
func (c *Client) CreateBranch(ctx context.Context, token, owner, repo, name, fromBranch string) (*Ref, error) {
	var from Branch
	branchPath := fmt.Sprintf("/repos/%s/%s/branches/%s", owner, repo, fromBranch)
	if err := c.do(ctx, token, http.MethodGet, branchPath, nil, nil, &from); err != nil {
		return nil, err
	}

	body := map[string]any{
		"ref": "refs/heads/" + name,
		"sha": from.Commit.SHA,
	}

	var ref Ref
	refsPath := fmt.Sprintf("/repos/%s/%s/git/refs", owner, repo)
	if err := c.do(ctx, token, http.MethodPost, refsPath, nil, body, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// contentsPath builds a Contents API path, escaping each path segment but
// keeping the separators so nested paths address nested files.
func contentsPath(owner, repo, path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, strings.Join(segments, "/"))
}

// do issues a request and decodes the JSON response into out (skipped when
// out is nil).
func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, body, out any) error {
	raw, err := c.doRaw(ctx, token, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("github: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// doRaw issues a request and returns the raw response body, translating
// non-2xx statuses into *APIError with GitHub's message when present.
func (c *Client) doRaw(ctx context.Context, token, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return nil, fmt.Errorf("github: encoding %s %s request: %w", method, path, err)
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("github: building %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("github: reading %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var ghErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(buf.Bytes(), &ghErr) == nil && ghErr.Message != "" {
			apiErr.Message = ghErr.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}

	return buf.Bytes(), nil
}
