package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/sakif/pichub/internal/apperror"
	"github.com/sakif/pichub/internal/github"
	"github.com/sakif/pichub/internal/model"
)

// FileService manages stored images: listing, deletion, and rename. Every
// mutation fetches the current blob SHA immediately before the mutating call
// — SHAs are never cached across requests, so a concurrent writer makes the
// mutation fail instead of clobbering their version.
type FileService struct {
	client *github.Client
	logger *slog.Logger
}

func NewFileService(client *github.Client, logger *slog.Logger) *FileService {
	return &FileService{client: client, logger: logger}
}

// List returns the files and subdirectories at path. A missing or empty path
// yields an empty listing, not an error.
func (s *FileService) List(ctx context.Context, token, owner, repo, path, ref string) (*model.Listing, error) {
	listing := &model.Listing{
		Files:       []model.FileEntry{},
		Directories: []model.DirectoryEntry{},
	}

	result, err := s.client.GetRepoContent(ctx, token, owner, repo, path, ref)
	if err != nil {
		if github.IsNotFound(err) {
			return listing, nil
		}
		return nil, apperror.Internal("listing files failed", err)
	}

	if result.File != nil {
		listing.Files = append(listing.Files, projectFile(*result.File))
		return listing, nil
	}

	for _, entry := range result.Entries {
		switch entry.Type {
		case "file":
			listing.Files = append(listing.Files, projectFile(entry))
		case "dir":
			listing.Directories = append(listing.Directories, model.DirectoryEntry{
				Name: entry.Name,
				Path: entry.Path,
			})
		}
	}
	return listing, nil
}

// Delete removes the file at path. The SHA is resolved first; a missing path
// is NotFound. Returns the delete commit SHA.
func (s *FileService) Delete(ctx context.Context, token string, repo model.RepoRef, path string) (string, error) {
	sha, err := s.client.GetSHA(ctx, token, repo.Owner, repo.Name, path, repo.Branch)
	if err != nil {
		return "", apperror.Internal("deleting file failed", err)
	}
	if sha == "" {
		return "", apperror.NotFound("file", path)
	}

	resp, err := s.client.DeleteFile(ctx, token, repo.Owner, repo.Name, path, "Delete: "+path, sha, repo.Branch)
	if err != nil {
		return "", apperror.Internal("deleting file failed", err)
	}

	s.logger.Info("file deleted",
		slog.String("repo", repo.Owner+"/"+repo.Name),
		slog.String("path", path),
	)
	return resp.Commit.SHA, nil
}

// RenameCommits carries the two commit SHAs a rename produces.
type RenameCommits struct {
	Create string `json:"create"`
	Delete string `json:"delete"`
}

// Rename moves a file by reading the old content, creating it at the new
// path, and deleting the old path. The Contents API has no native move, so
// this is NOT atomic: a failure between the two mutations leaves both paths
// populated. The caller can re-issue the delete to finish the job.
func (s *FileService) Rename(ctx context.Context, token string, repo model.RepoRef, oldPath, newPath string) (*RenameCommits, error) {
	result, err := s.client.GetRepoContent(ctx, token, repo.Owner, repo.Name, oldPath, repo.Branch)
	if err != nil {
		if github.IsNotFound(err) {
			return nil, apperror.NotFound("file", oldPath)
		}
		return nil, apperror.Internal("renaming file failed", err)
	}
	if result.File == nil {
		return nil, apperror.BadRequest("cannot rename a directory")
	}

	content, err := s.fileContent(ctx, token, result.File)
	if err != nil {
		// The old file is untouched: nothing is created or deleted unless
		// the bytes are in hand.
		return nil, apperror.Internal("renaming file failed", err)
	}

	created, err := s.client.CreateOrUpdateFile(ctx, token,
		repo.Owner, repo.Name, newPath,
		content,
		"Rename: "+oldPath+" -> "+newPath,
		repo.Branch,
		"",
	)
	if err != nil {
		return nil, apperror.Internal("renaming file failed", err)
	}

	deleted, err := s.client.DeleteFile(ctx, token,
		repo.Owner, repo.Name, oldPath,
		"Delete old file after rename: "+oldPath,
		result.File.SHA,
		repo.Branch,
	)
	if err != nil {
		// Both paths are populated now. Surface the failure; the delete can
		// be retried via the management API.
		s.logger.Error("rename: delete of old path failed, duplicate left behind",
			slog.String("oldPath", oldPath),
			slog.String("newPath", newPath),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Internal("renaming file failed after copy; old file still present", err)
	}

	s.logger.Info("file renamed",
		slog.String("repo", repo.Owner+"/"+repo.Name),
		slog.String("oldPath", oldPath),
		slog.String("newPath", newPath),
	)
	return &RenameCommits{Create: created.Commit.SHA, Delete: deleted.Commit.SHA}, nil
}

// fileContent returns the file's body base64-encoded, ready for a contents
// write. Blobs over 1 MB come back from the Contents API with empty content
// and encoding "none"; for those the bytes are fetched via the download URL.
func (s *FileService) fileContent(ctx context.Context, token string, file *github.Content) (string, error) {
	if file.Encoding == "base64" && (file.Content != "" || file.Size == 0) {
		return file.Content, nil
	}

	if file.DownloadURL == "" {
		return "", fmt.Errorf("no inline content and no download URL for %s", file.Path)
	}
	raw, err := s.client.DownloadContent(ctx, token, file.DownloadURL)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func projectFile(c github.Content) model.FileEntry {
	return model.FileEntry{
		Name:        c.Name,
		Path:        c.Path,
		Size:        c.Size,
		DownloadURL: c.DownloadURL,
		SHA:         c.SHA,
	}
}
