package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/pichub/internal/apperror"
	"github.com/sakif/pichub/internal/auth"
	"github.com/sakif/pichub/internal/model"
	"github.com/sakif/pichub/internal/service"
)

// ManagementHandler serves the file-management operations: listing stored
// images, deleting, and renaming.
type ManagementHandler struct {
	files  *service.FileService
	logger *slog.Logger
}

func NewManagementHandler(files *service.FileService, logger *slog.Logger) *ManagementHandler {
	return &ManagementHandler{files: files, logger: logger}
}

// HandleList lists the files and directories at a path.
//
// HTTP: GET /api/management/list?owner=&repo=&path=&ref=
//
// A missing or empty path yields empty lists, so the UI can browse into
// directories that haven't been created yet.
func (h *ManagementHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	q := r.URL.Query()
	owner := q.Get("owner")
	repo := q.Get("repo")
	if owner == "" || repo == "" {
		writeError(w, apperror.BadRequest("missing owner or repo parameter"))
		return
	}

	listing, err := h.files.List(r.Context(), identity.GitHubToken, owner, repo, q.Get("path"), q.Get("ref"))
	if err != nil {
		h.logger.Error("listing files failed",
			slog.String("repo", owner+"/"+repo),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeSuccess(w, listing, "")
}

type deleteRequest struct {
	Path       string         `json:"path"`
	Repository *model.RepoRef `json:"repository"`
}

// HandleDelete deletes a stored file.
//
// HTTP: DELETE /api/management/delete
//
// The current blob SHA is resolved immediately before the delete; a missing
// path is 404.
func (h *ManagementHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, apperror.BadRequest("missing file path"))
		return
	}

	repo := model.RepoRef{}
	if req.Repository != nil {
		repo = *req.Repository
	}
	repo = repo.WithDefaults(identity.Login)

	commit, err := h.files.Delete(r.Context(), identity.GitHubToken, repo, req.Path)
	if err != nil {
		h.logger.Error("deleting file failed",
			slog.String("path", req.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeSuccess(w, map[string]string{"commit": commit}, "file deleted")
}

type renameRequest struct {
	OldPath    string         `json:"oldPath"`
	NewPath    string         `json:"newPath"`
	Repository *model.RepoRef `json:"repository"`
}

// HandleRename renames a stored file via create-then-delete.
//
// HTTP: PATCH /api/management/rename
//
// Not atomic: the backing store has no native move, so a failure between the
// two commits leaves the file at both paths.
func (h *ManagementHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OldPath == "" || req.NewPath == "" {
		writeError(w, apperror.BadRequest("missing oldPath or newPath"))
		return
	}

	repo := model.RepoRef{}
	if req.Repository != nil {
		repo = *req.Repository
	}
	repo = repo.WithDefaults(identity.Login)

	commits, err := h.files.Rename(r.Context(), identity.GitHubToken, repo, req.OldPath, req.NewPath)
	if err != nil {
		h.logger.Error("renaming file failed",
			slog.String("oldPath", req.OldPath),
			slog.String("newPath", req.NewPath),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeSuccess(w, map[string]any{
		"oldPath": req.OldPath,
		"newPath": req.NewPath,
		"commit":  commits,
	}, "file renamed")
}
