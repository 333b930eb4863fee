package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sakif/pichub/internal/github"
)

// fakeGitHub is an in-memory stand-in for the GitHub Contents API, enough to
// exercise the services end to end: file reads, directory listings, writes
// with SHA-based conflict checks, and deletes.
type fakeGitHub struct {
	mu      sync.Mutex
	files   map[string]fakeFile // keyed by path within the repo
	baseURL string              // set when the httptest server starts
	seq     int
	calls   int // total requests served
}

// fakeFile mirrors the two shapes the Contents API serves: content inlined
// as base64, or — for blobs over 1 MB — no inline content and a download
// URL. large files keep their raw bytes; raw == nil models a blob whose
// download endpoint is broken.
type fakeFile struct {
	content string // base64, as the Contents API carries it
	sha     string
	large   bool
	raw     []byte
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{files: map[string]fakeFile{}}
}

// server starts an httptest server backed by the fake and returns a client
// pointed at it.
func (f *fakeGitHub) server(t *testing.T) *github.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(srv.Close)
	f.mu.Lock()
	f.baseURL = srv.URL
	f.mu.Unlock()
	return &github.Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
}

func (f *fakeGitHub) put(path, content string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	sha := fmt.Sprintf("blob-%d", f.seq)
	f.files[path] = fakeFile{content: content, sha: sha}
	return sha
}

// putLarge stores a file the Contents API would refuse to inline: reads
// return empty content with encoding "none" and the bytes only come from
// the download URL.
func (f *fakeGitHub) putLarge(path string, raw []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	sha := fmt.Sprintf("blob-%d", f.seq)
	f.files[path] = fakeFile{sha: sha, large: true, raw: raw}
	return sha
}

func (f *fakeGitHub) get(path string) (fakeFile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[path]
	return file, ok
}

func (f *fakeGitHub) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeGitHub) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if strings.HasPrefix(r.URL.Path, "/raw/") {
		f.handleRaw(w, strings.TrimPrefix(r.URL.Path, "/raw/"))
		return
	}

	const prefix = "/repos/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		notFound(w)
		return
	}
	// /repos/{owner}/{repo}/contents/{path...}
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 3 || !strings.HasPrefix(parts[2], "contents/") {
		notFound(w)
		return
	}
	path := strings.TrimPrefix(parts[2], "contents/")

	switch r.Method {
	case http.MethodGet:
		f.handleGet(w, path)
	case http.MethodPut:
		f.handlePut(w, r, path)
	case http.MethodDelete:
		f.handleDelete(w, r, path)
	default:
		notFound(w)
	}
}

func (f *fakeGitHub) handleGet(w http.ResponseWriter, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if file, ok := f.files[path]; ok {
		if file.large {
			json.NewEncoder(w).Encode(github.Content{
				Type:        "file",
				Name:        path[strings.LastIndex(path, "/")+1:],
				Path:        path,
				SHA:         file.sha,
				Size:        int64(len(file.raw)),
				Content:     "",
				Encoding:    "none",
				DownloadURL: f.baseURL + "/raw/" + path,
			})
			return
		}
		json.NewEncoder(w).Encode(github.Content{
			Type:        "file",
			Name:        path[strings.LastIndex(path, "/")+1:],
			Path:        path,
			SHA:         file.sha,
			Content:     file.content,
			Encoding:    "base64",
			DownloadURL: f.baseURL + "/raw/" + path,
		})
		return
	}

	// Directory listing: direct children of path, files and subdirectories.
	entries := []github.Content{}
	seen := map[string]bool{}
	dirPrefix := path + "/"
	if path == "" {
		dirPrefix = ""
	}
	for p, file := range f.files {
		if !strings.HasPrefix(p, dirPrefix) {
			continue
		}
		child := strings.TrimPrefix(p, dirPrefix)
		if name, _, nested := strings.Cut(child, "/"); nested {
			if !seen[name] {
				seen[name] = true
				entries = append(entries, github.Content{Type: "dir", Name: name, Path: dirPrefix + name})
			}
		} else {
			entries = append(entries, github.Content{
				Type: "file", Name: child, Path: p, SHA: file.sha,
				DownloadURL: "https://raw.example.invalid/" + p,
			})
		}
	}
	if len(entries) == 0 {
		notFound(w)
		return
	}
	json.NewEncoder(w).Encode(entries)
}

func (f *fakeGitHub) handleRaw(w http.ResponseWriter, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[path]
	if !ok || file.raw == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Write(file.raw)
}

func (f *fakeGitHub) handlePut(w http.ResponseWriter, r *http.Request, path string) {
	var body struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	existing, exists := f.files[path]
	if exists && body.SHA != existing.sha {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "sha does not match"})
		return
	}
	if !exists && body.SHA != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "sha provided for a new file"})
		return
	}

	f.seq++
	sha := fmt.Sprintf("blob-%d", f.seq)
	f.files[path] = fakeFile{content: body.Content, sha: sha}

	json.NewEncoder(w).Encode(github.FileResponse{
		Commit:  github.Commit{SHA: fmt.Sprintf("commit-%d", f.seq), Message: body.Message},
		Content: &github.Content{Type: "file", Path: path, SHA: sha},
	})
}

func (f *fakeGitHub) handleDelete(w http.ResponseWriter, r *http.Request, path string) {
	var body struct {
		Message string `json:"message"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	existing, exists := f.files[path]
	if !exists {
		notFound(w)
		return
	}
	if body.SHA != existing.sha {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "sha does not match"})
		return
	}
	delete(f.files, path)

	f.seq++
	json.NewEncoder(w).Encode(github.FileResponse{
		Commit: github.Commit{SHA: fmt.Sprintf("commit-%d", f.seq), Message: body.Message},
	})
}

func notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
}
