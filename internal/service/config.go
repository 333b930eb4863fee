package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/pichub/internal/apperror"
	"github.com/sakif/pichub/internal/github"
	"github.com/sakif/pichub/internal/model"
)

// ConfigService reads and writes the configuration document stored at
// model.ConfigPath inside the backing repository. The document is mutated
// only via full read-modify-write: a put reads the current blob SHA and
// presents it on write, so a concurrent edit makes the write fail rather
// than being silently discarded. No retry on conflict — the caller sees the
// failure.
type ConfigService struct {
	client *github.Client
	logger *slog.Logger
}

func NewConfigService(client *github.Client, logger *slog.Logger) *ConfigService {
	return &ConfigService{client: client, logger: logger}
}

// Get reads the configuration document. Returns (nil, nil) when the document
// does not exist — absence is an expected state before initialisation, not
// an error.
func (s *ConfigService) Get(ctx context.Context, token string, repo model.RepoRef) (*model.Config, error) {
	result, err := s.client.GetRepoContent(ctx, token, repo.Owner, repo.Name, model.ConfigPath, repo.Branch)
	if err != nil {
		if github.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperror.Internal("reading configuration failed", err)
	}
	if result.File == nil {
		return nil, apperror.Internal("reading configuration failed",
			fmt.Errorf("config path %s is a directory", model.ConfigPath))
	}

	// The Contents API returns file bodies base64-encoded with embedded
	// newlines.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(result.File.Content, "\n", ""))
	if err != nil {
		return nil, apperror.Internal("reading configuration failed", err)
	}

	var cfg model.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, apperror.Internal("configuration document is not valid JSON", err)
	}
	return &cfg, nil
}

// Put writes the full configuration document. The read-SHA-then-write
// sequence delegates conflict detection to GitHub; a stale SHA simply fails.
func (s *ConfigService) Put(ctx context.Context, token string, repo model.RepoRef, cfg model.Config) (string, error) {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", apperror.Internal("saving configuration failed", err)
	}

	sha, err := s.client.GetSHA(ctx, token, repo.Owner, repo.Name, model.ConfigPath, repo.Branch)
	if err != nil {
		return "", apperror.Internal("saving configuration failed", err)
	}

	resp, err := s.client.CreateOrUpdateFile(ctx, token,
		repo.Owner, repo.Name, model.ConfigPath,
		base64.StdEncoding.EncodeToString(raw),
		"Update config via PicHub",
		repo.Branch,
		sha,
	)
	if err != nil {
		return "", apperror.Internal("saving configuration failed", err)
	}

	s.logger.Info("configuration saved",
		slog.String("repo", repo.Owner+"/"+repo.Name),
		slog.String("commit", resp.Commit.SHA),
	)
	return resp.Commit.SHA, nil
}

// InitFile reports one file written by repository initialisation.
type InitFile struct {
	File string `json:"file"`
	SHA  string `json:"sha"`
}

// Init seeds the target repository with the files the app expects: a
// .gitignore, a README describing the layout, and the default configuration
// document.
func (s *ConfigService) Init(ctx context.Context, token string, identity model.Identity, repo model.RepoRef) ([]InitFile, error) {
	cfg := model.DefaultConfig(identity, repo)
	cfgRaw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, apperror.Internal("initialising repository failed", err)
	}

	files := []struct {
		path    string
		content string
		message string
	}{
		{".gitignore", gitignoreContent, "Initialize: Add .gitignore"},
		{"README.md", readmeContent, "Initialize: Add README.md"},
		{model.ConfigPath, string(cfgRaw), "Initialize: Add configuration"},
	}

	results := make([]InitFile, 0, len(files))
	for _, f := range files {
		// Re-initialising an existing repository updates files in place.
		sha, err := s.client.GetSHA(ctx, token, repo.Owner, repo.Name, f.path, repo.Branch)
		if err != nil {
			return nil, apperror.Internal("initialising repository failed", err)
		}

		resp, err := s.client.CreateOrUpdateFile(ctx, token,
			repo.Owner, repo.Name, f.path,
			base64.StdEncoding.EncodeToString([]byte(f.content)),
			f.message,
			repo.Branch,
			sha,
		)
		if err != nil {
			return nil, apperror.Internal("initialising repository failed", err)
		}
		results = append(results, InitFile{File: f.path, SHA: resp.Commit.SHA})
	}

	s.logger.Info("repository initialised",
		slog.String("repo", repo.Owner+"/"+repo.Name),
		slog.String("login", identity.Login),
	)
	return results, nil
}

const gitignoreContent = `# Image hosting
.DS_Store
Thumbs.db

# Logs
*.log

# Temp files
*.tmp
*.temp
`

const readmeContent = `# Image Hosting Repository

This repository stores images managed through PicHub.

## Structure

- ` + "`.image-hosting/`" + ` - Configuration directory
- ` + "`images/`" + ` - Image storage directory (default)

## Configuration

Configuration lives in ` + "`.image-hosting/config.json`" + ` and is managed
through the app.

---

*Managed by PicHub*
`
