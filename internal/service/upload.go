// Package service — business logic between the HTTP handlers and the GitHub
// client adapter. Handlers never talk to the GitHub API directly, and the
// services never touch HTTP.
package service

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/pichub/internal/apperror"
	"github.com/sakif/pichub/internal/github"
	"github.com/sakif/pichub/internal/model"
)

// UploadService stores images in the backing repository: it computes the
// final filename and destination path, avoids collisions, and writes the
// base64 content through the Contents API.
type UploadService struct {
	client *github.Client
	logger *slog.Logger
}

func NewUploadService(client *github.Client, logger *slog.Logger) *UploadService {
	return &UploadService{client: client, logger: logger}
}

// UploadRequest describes one image to store. Content is base64-encoded;
// GitHub decodes it on write. Timestamp is a millisecond Unix time used by
// the hash and timestamp naming strategies — zero means "now". Batch uploads
// pass distinct timestamps per file so generated names never collide within
// the batch.
type UploadRequest struct {
	Content   string
	Filename  string
	Repo      model.RepoRef
	Directory string
	Naming    model.Naming
	Timestamp int64
}

// Upload stores a single image and returns the stored path plus its three
// equivalent access URLs.
//
// Collision handling: if a blob already exists at the computed path, the
// upload goes to a distinct path carrying a timestamp-derived suffix instead.
// An existing file is never overwritten.
func (s *UploadService) Upload(ctx context.Context, token string, req UploadRequest) (*model.UploadResult, error) {
	if req.Content == "" || req.Filename == "" {
		return nil, apperror.BadRequest("content and filename are required")
	}

	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	filename := GenerateFilename(req.Filename, req.Content, req.Naming, timestamp)
	dir := DatedDirectory(req.Directory, time.Now())
	path := joinPath(dir, filename)

	// Probe for an existing blob. GetSHA treats 404 as absence, so a
	// non-nil error here is a real upstream failure.
	existingSHA, err := s.client.GetSHA(ctx, token, req.Repo.Owner, req.Repo.Name, path, req.Repo.Branch)
	if err != nil {
		return nil, apperror.Internal("upload failed", err)
	}
	if existingSHA != "" {
		filename = CollisionFilename(req.Filename, timestamp)
		path = joinPath(dir, filename)
		s.logger.Info("upload path collision, disambiguating",
			slog.String("path", path),
		)
	}

	resp, err := s.client.CreateOrUpdateFile(ctx, token,
		req.Repo.Owner, req.Repo.Name, path,
		req.Content,
		"Upload: "+filename,
		req.Repo.Branch,
		"", // always a create — collisions were routed to a fresh path above
	)
	if err != nil {
		return nil, apperror.Internal("upload failed", err)
	}

	return &model.UploadResult{
		Filename: filename,
		Path:     path,
		SHA:      resp.Commit.SHA,
		URLs:     AccessURLs(req.Repo, path),
	}, nil
}

// BatchFile is one item of a batch upload.
type BatchFile struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

// UploadBatch uploads files strictly sequentially — no parallel fan-out, to
// stay clear of the upstream rate limiter. One failure never aborts the
// remaining items; the result reports every success and failure.
func (s *UploadService) UploadBatch(ctx context.Context, token string, files []BatchFile, repo model.RepoRef, directory string, naming model.Naming) (*model.BatchResult, error) {
	if len(files) == 0 {
		return nil, apperror.BadRequest("file list is required")
	}

	result := &model.BatchResult{
		Succeeded: []model.UploadResult{},
		Failed:    []model.UploadFailure{},
	}

	base := time.Now().UnixMilli()
	for i, f := range files {
		uploaded, err := s.Upload(ctx, token, UploadRequest{
			Content:   f.Content,
			Filename:  f.Filename,
			Repo:      repo,
			Directory: directory,
			Naming:    naming,
			Timestamp: base + int64(i),
		})
		if err != nil {
			s.logger.Warn("batch upload item failed",
				slog.String("filename", f.Filename),
				slog.String("error", err.Error()),
			)
			result.Failed = append(result.Failed, model.UploadFailure{
				Filename: f.Filename,
				Error:    err.Error(),
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, *uploaded)
	}

	return result, nil
}

// GenerateFilename applies the naming strategy. For a fixed content and
// timestamp the result is deterministic.
func GenerateFilename(original, content string, naming model.Naming, timestamp int64) string {
	ext := extension(original)
	base := strings.TrimSuffix(original, "."+ext)
	if ext == "" {
		base = original
	}

	switch naming.Strategy {
	case model.NamingHash:
		hash := md5Hex(content + strconv.FormatInt(timestamp, 10))[:8]
		return withExt(naming.Prefix+hash, ext)
	case model.NamingTimestamp:
		return withExt(naming.Prefix+strconv.FormatInt(timestamp, 10), ext)
	case model.NamingCustom:
		return withExt(naming.Prefix+base+naming.Suffix, ext)
	default:
		return original
	}
}

// CollisionFilename derives the disambiguated name used when the computed
// path is already occupied: the original base name plus a 6-hex-digit
// timestamp hash.
func CollisionFilename(original string, timestamp int64) string {
	base, _, _ := strings.Cut(original, ".")
	suffix := md5Hex(strconv.FormatInt(timestamp, 10))[:6]
	return withExt(base+"_"+suffix, extension(original))
}

// DatedDirectory buckets uploads under dir/year/month/day. An empty or
// "root" directory stores at the repository root, unbucketed.
func DatedDirectory(dir string, now time.Time) string {
	if dir == "" || dir == "root" {
		return ""
	}
	return fmt.Sprintf("%s/%04d/%02d/%02d", dir, now.Year(), now.Month(), now.Day())
}

// AccessURLs builds the three equivalent URLs for a stored path: raw
// content, repository web view, and the jsDelivr CDN mirror.
func AccessURLs(repo model.RepoRef, path string) model.UploadLinks {
	return model.UploadLinks{
		Raw:    fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", repo.Owner, repo.Name, repo.Branch, path),
		GitHub: fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", repo.Owner, repo.Name, repo.Branch, path),
		CDN:    fmt.Sprintf("https://cdn.jsdelivr.net/gh/%s/%s@%s/%s", repo.Owner, repo.Name, repo.Branch, path),
	}
}

func extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return filename[idx+1:]
}

func withExt(name, ext string) string {
	if ext == "" {
		return name
	}
	return name + "." + ext
}

func joinPath(dir, filename string) string {
	if dir == "" {
		return filename
	}
	return dir + "/" + filename
}

func md5Hex(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}
