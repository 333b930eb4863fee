// Package model defines the data structures used throughout the application.
package model

// Identity is the authenticated GitHub user, as carried inside the session
// token. It is created once at the OAuth callback and never persisted
// server-side — the signed token is the only copy.
//
// GitHubToken is the user's OAuth access token. Every GitHub API call made on
// the user's behalf uses it, which is why it travels inside the (signed,
// HttpOnly) session token rather than in any server-side store.
type Identity struct {
	ID        int64  `json:"id"`        // GitHub's numeric user ID — stable, never changes
	Login     string `json:"login"`     // GitHub username, e.g. "sakif"
	Email     string `json:"email"`     // Primary email (may be empty if hidden on GitHub)
	AvatarURL string `json:"avatarUrl"` // Profile picture URL
	// GitHubToken is omitted from JSON responses: it must never leave the
	// server except inside the signed session token.
	GitHubToken string `json:"-"`
}

// RepoRef identifies the GitHub repository acting as the storage backend.
// Supplied per-request; zero fields default to the authenticated user's own
// repository on branch "main".
type RepoRef struct {
	Owner  string `json:"owner"`
	Name   string `json:"name"`
	Branch string `json:"branch"`
}

// WithDefaults fills empty fields from the authenticated user's defaults.
func (r RepoRef) WithDefaults(login string) RepoRef {
	if r.Owner == "" {
		r.Owner = login
	}
	if r.Name == "" {
		r.Name = DefaultRepoName
	}
	if r.Branch == "" {
		r.Branch = "main"
	}
	return r
}

// DefaultRepoName is the repository used when the client doesn't name one.
const DefaultRepoName = "pichub-images"

// FileEntry is a single stored image, projected from the Contents API.
// SHA is the blob SHA — required to delete or overwrite the file, and only
// valid for the version it was read from (never cache it across requests).
type FileEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl"`
	SHA         string `json:"sha"`
}

// DirectoryEntry is a subdirectory in a content listing.
type DirectoryEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Listing is the result of listing a path: files and directories split, the
// way the management UI consumes them.
type Listing struct {
	Files       []FileEntry      `json:"files"`
	Directories []DirectoryEntry `json:"directories"`
}

// NamingStrategy controls how uploaded files are named.
type NamingStrategy string

const (
	NamingHash      NamingStrategy = "hash"      // md5(content+timestamp) prefix
	NamingTimestamp NamingStrategy = "timestamp" // millisecond timestamp
	NamingCustom    NamingStrategy = "custom"    // original name with prefix/suffix
)

// Naming holds the filename-generation preferences for an upload.
type Naming struct {
	Strategy NamingStrategy `json:"strategy"`
	Prefix   string         `json:"prefix"`
	Suffix   string         `json:"suffix"`
}

// UploadLinks are the three equivalent access URLs for a stored image.
type UploadLinks struct {
	Raw    string `json:"raw"`    // raw.githubusercontent.com
	GitHub string `json:"github"` // repository web view
	CDN    string `json:"cdn"`    // jsDelivr mirror
}

// UploadResult is returned for each successfully stored image.
type UploadResult struct {
	Filename string      `json:"filename"`
	Path     string      `json:"path"`
	SHA      string      `json:"sha"` // commit SHA of the upload
	URLs     UploadLinks `json:"urls"`
}

// UploadFailure reports one failed item of a batch upload.
type UploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchResult aggregates a batch upload: every file is attempted, partial
// failure is reported per-file.
type BatchResult struct {
	Succeeded []UploadResult  `json:"success"`
	Failed    []UploadFailure `json:"failed"`
}

// Repo is the projection of a GitHub repository shown to the client.
type Repo struct {
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	Owner         string `json:"owner"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"defaultBranch"`
	Description   string `json:"description"`
}

// Branch is the projection of a repository branch.
type Branch struct {
	Name   string `json:"name"`
	Commit string `json:"commit"` // head commit SHA
}
