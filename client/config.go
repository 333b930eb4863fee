package client

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/sakif/pichub/internal/model"
)

// ConfigStore mirrors the configuration document stored in the backing
// repository. The server is the source of truth; the store only caches the
// last-fetched copy.
type ConfigStore struct {
	mu     sync.Mutex
	c      *Client
	notify *Notifier

	config  *model.Config
	syncing bool
}

func NewConfigStore(c *Client, notify *Notifier) *ConfigStore {
	return &ConfigStore{c: c, notify: notify}
}

// Load fetches the configuration document. A repo with zero fields targets
// the user's default repository. Absence (data null) leaves Config() nil —
// the repository hasn't been initialised yet.
func (s *ConfigStore) Load(ctx context.Context, repo model.RepoRef) error {
	s.setSyncing(true)
	defer s.setSyncing(false)

	q := url.Values{}
	if repo.Owner != "" {
		q.Set("owner", repo.Owner)
	}
	if repo.Name != "" {
		q.Set("repo", repo.Name)
	}
	if repo.Branch != "" {
		q.Set("branch", repo.Branch)
	}

	var cfg *model.Config
	_, err := s.c.do(ctx, http.MethodGet, "/api/user/config", q, nil, &cfg)
	if err != nil {
		s.notify.Error("loading configuration failed: " + err.Error())
		return err
	}

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	return nil
}

// Save writes the full document and, on success, caches it locally. A
// conflicting concurrent edit makes the save fail; the caller should Load
// and re-apply.
func (s *ConfigStore) Save(ctx context.Context, cfg model.Config) error {
	s.setSyncing(true)
	defer s.setSyncing(false)

	body := map[string]any{
		"config":     cfg,
		"repository": cfg.Storage.Repository,
	}
	_, err := s.c.do(ctx, http.MethodPut, "/api/user/config", nil, body, nil)
	if err != nil {
		s.notify.Error("saving configuration failed: " + err.Error())
		return err
	}

	s.mu.Lock()
	s.config = &cfg
	s.mu.Unlock()
	s.notify.Success("configuration saved")
	return nil
}

// Config returns the last-fetched document, or nil when none exists.
func (s *ConfigStore) Config() *model.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Syncing reports whether a Load or Save is in flight.
func (s *ConfigStore) Syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

func (s *ConfigStore) setSyncing(v bool) {
	s.mu.Lock()
	s.syncing = v
	s.mu.Unlock()
}
