package client

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/sakif/pichub/internal/model"
)

// FileStore mirrors the file listing of one repository path.
type FileStore struct {
	mu     sync.Mutex
	c      *Client
	notify *Notifier

	listing model.Listing
	loading bool
}

func NewFileStore(c *Client, notify *Notifier) *FileStore {
	return &FileStore{c: c, notify: notify}
}

// Load fetches the listing for a path. A missing path is an empty listing.
func (s *FileStore) Load(ctx context.Context, repo model.RepoRef, path string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	q := url.Values{}
	q.Set("owner", repo.Owner)
	q.Set("repo", repo.Name)
	q.Set("path", path)
	if repo.Branch != "" {
		q.Set("ref", repo.Branch)
	}

	var listing model.Listing
	_, err := s.c.do(ctx, http.MethodGet, "/api/management/list", q, nil, &listing)
	if err != nil {
		s.notify.Error("loading files failed: " + err.Error())
		return err
	}

	s.mu.Lock()
	s.listing = listing
	s.mu.Unlock()
	return nil
}

// Delete removes a file and, on success, drops it from the cached listing.
func (s *FileStore) Delete(ctx context.Context, repo model.RepoRef, path string) error {
	body := map[string]any{
		"path":       path,
		"repository": repo,
	}
	_, err := s.c.do(ctx, http.MethodDelete, "/api/management/delete", nil, body, nil)
	if err != nil {
		s.notify.Error("deleting file failed: " + err.Error())
		return err
	}

	s.mu.Lock()
	kept := s.listing.Files[:0]
	for _, f := range s.listing.Files {
		if f.Path != path {
			kept = append(kept, f)
		}
	}
	s.listing.Files = kept
	s.mu.Unlock()

	s.notify.Success("file deleted")
	return nil
}

// Rename moves a file and, on success, patches the cached entry in place.
// The stored SHA is stale after a rename, so the entry's SHA is cleared
// until the next Load.
func (s *FileStore) Rename(ctx context.Context, repo model.RepoRef, oldPath, newPath, newName string) error {
	body := map[string]any{
		"oldPath":    oldPath,
		"newPath":    newPath,
		"repository": repo,
	}
	_, err := s.c.do(ctx, http.MethodPatch, "/api/management/rename", nil, body, nil)
	if err != nil {
		s.notify.Error("renaming file failed: " + err.Error())
		return err
	}

	s.mu.Lock()
	for i, f := range s.listing.Files {
		if f.Path == oldPath {
			s.listing.Files[i].Path = newPath
			s.listing.Files[i].Name = newName
			s.listing.Files[i].SHA = ""
			break
		}
	}
	s.mu.Unlock()

	s.notify.Success("file renamed")
	return nil
}

// Listing returns the cached listing.
func (s *FileStore) Listing() model.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := model.Listing{
		Files:       make([]model.FileEntry, len(s.listing.Files)),
		Directories: make([]model.DirectoryEntry, len(s.listing.Directories)),
	}
	copy(out.Files, s.listing.Files)
	copy(out.Directories, s.listing.Directories)
	return out
}

// Loading reports whether a Load is in flight.
func (s *FileStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *FileStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
