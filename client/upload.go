package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/pichub/internal/model"
)

// Status is the lifecycle state of one upload-queue entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// MaxUploadSize is the per-file size limit.
const MaxUploadSize = 10 << 20 // 10 MiB

// Entry is one file in the upload queue.
type Entry struct {
	ID       string
	Name     string
	Size     int64
	MIMEType string
	Progress int // 0-100
	Status   Status
	Result   *model.UploadResult
	Err      string

	data []byte
}

// UploadStore is the client-side upload queue: entries are added when files
// are selected, mutated as the upload progresses, and discarded on Clear.
type UploadStore struct {
	mu     sync.Mutex
	c      *Client
	notify *Notifier

	entries   []*Entry
	uploading bool
}

func NewUploadStore(c *Client, notify *Notifier) *UploadStore {
	return &UploadStore{c: c, notify: notify}
}

// Add queues a file for upload. Non-image MIME types and files over
// MaxUploadSize are rejected with a warning notification and an empty ID.
func (s *UploadStore) Add(name, mimeType string, data []byte) string {
	if !strings.HasPrefix(mimeType, "image/") {
		s.notify.Warning(name + " is not a valid image file")
		return ""
	}
	if int64(len(data)) > MaxUploadSize {
		s.notify.Warning(name + " exceeds the 10 MiB limit")
		return ""
	}

	entry := &Entry{
		ID:       xid.New().String(),
		Name:     name,
		Size:     int64(len(data)),
		MIMEType: mimeType,
		Status:   StatusPending,
		data:     data,
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return entry.ID
}

// Remove drops an entry from the queue.
func (s *UploadStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

// Clear discards the whole queue.
func (s *UploadStore) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}

// uploadData is the payload of PUT /api/upload/image.
type uploadData struct {
	Content    string        `json:"content"`
	Filename   string        `json:"filename"`
	Repository model.RepoRef `json:"repository"`
	Directory  string        `json:"directory"`
	Naming     model.Naming  `json:"naming"`
	Timestamp  int64         `json:"timestamp"`
}

// UploadAll uploads every pending entry strictly sequentially — the server
// proxies to a rate-limited API, so there is no parallel fan-out. One
// failure never stops the remaining entries. Returns the number of failures.
func (s *UploadStore) UploadAll(ctx context.Context, repo model.RepoRef, directory string, naming model.Naming) int {
	s.mu.Lock()
	if s.uploading {
		s.mu.Unlock()
		return 0
	}
	s.uploading = true
	pending := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Status == StatusPending {
			pending = append(pending, e)
		}
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.uploading = false
		s.mu.Unlock()
	}()

	base := time.Now().UnixMilli()
	failed := 0
	for i, entry := range pending {
		if err := s.uploadOne(ctx, entry, repo, directory, naming, base+int64(i)); err != nil {
			failed++
		}
	}

	if failed == 0 {
		s.notify.Success("all uploads complete")
	} else {
		s.notify.Error(fmt.Sprintf("%d upload(s) failed", failed))
	}
	return failed
}

func (s *UploadStore) uploadOne(ctx context.Context, entry *Entry, repo model.RepoRef, directory string, naming model.Naming, timestamp int64) error {
	s.setStatus(entry.ID, StatusUploading, 0)

	body := uploadData{
		Content:    base64.StdEncoding.EncodeToString(entry.data),
		Filename:   entry.Name,
		Repository: repo,
		Directory:  directory,
		Naming:     naming,
		Timestamp:  timestamp,
	}

	var result model.UploadResult
	_, err := s.c.do(ctx, http.MethodPut, "/api/upload/image", nil, body, &result)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID != entry.ID {
			continue
		}
		if err != nil {
			e.Status = StatusError
			e.Err = err.Error()
		} else {
			e.Status = StatusSuccess
			e.Progress = 100
			e.Result = &result
		}
		break
	}
	return err
}

// Entries returns a snapshot of the queue.
func (s *UploadStore) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
		out[i].data = nil // snapshots don't carry the raw bytes
	}
	return out
}

// Uploading reports whether an UploadAll run is in flight.
func (s *UploadStore) Uploading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploading
}

func (s *UploadStore) setStatus(id string, status Status, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			e.Status = status
			e.Progress = progress
			return
		}
	}
}
