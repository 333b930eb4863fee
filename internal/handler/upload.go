package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/pichub/internal/apperror"
	"github.com/sakif/pichub/internal/auth"
	"github.com/sakif/pichub/internal/model"
	"github.com/sakif/pichub/internal/service"
)

// UploadHandler serves image uploads, single and batch.
type UploadHandler struct {
	uploads *service.UploadService
	logger  *slog.Logger
}

func NewUploadHandler(uploads *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger}
}

type uploadRequest struct {
	Content    string         `json:"content"` // base64-encoded image bytes
	Filename   string         `json:"filename"`
	Repository *model.RepoRef `json:"repository"`
	Directory  *string        `json:"directory"`
	Naming     *model.Naming  `json:"naming"`
	Timestamp  int64          `json:"timestamp"`
}

// HandleImage stores a single image.
//
// HTTP: PUT /api/upload/image
//
// Defaults when the client omits them: the user's own default repository,
// the "images" directory (date-bucketed), and hash naming.
func (h *UploadHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" || req.Filename == "" {
		writeError(w, apperror.BadRequest("missing content or filename"))
		return
	}

	repo := model.RepoRef{}
	if req.Repository != nil {
		repo = *req.Repository
	}
	repo = repo.WithDefaults(identity.Login)

	directory := "images"
	if req.Directory != nil {
		directory = *req.Directory
	}

	naming := model.Naming{Strategy: model.NamingHash}
	if req.Naming != nil {
		naming = *req.Naming
	}

	result, err := h.uploads.Upload(r.Context(), identity.GitHubToken, service.UploadRequest{
		Content:   req.Content,
		Filename:  req.Filename,
		Repo:      repo,
		Directory: directory,
		Naming:    naming,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		h.logger.Error("upload failed",
			slog.String("filename", req.Filename),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeSuccess(w, result, "upload complete")
}

type batchRequest struct {
	Files      []service.BatchFile `json:"files"`
	Repository *model.RepoRef      `json:"repository"`
	Directory  *string             `json:"directory"`
	Naming     *model.Naming       `json:"naming"`
}

// HandleBatch stores a list of images strictly sequentially.
//
// HTTP: POST /api/upload/batch
//
// Partial failure is reported per-file; the envelope's success flag is true
// only when every file stored.
func (h *UploadHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Files) == 0 {
		writeError(w, apperror.BadRequest("missing file list"))
		return
	}

	repo := model.RepoRef{}
	if req.Repository != nil {
		repo = *req.Repository
	}
	repo = repo.WithDefaults(identity.Login)

	directory := "images"
	if req.Directory != nil {
		directory = *req.Directory
	}

	naming := model.Naming{Strategy: model.NamingHash}
	if req.Naming != nil {
		naming = *req.Naming
	}

	result, err := h.uploads.UploadBatch(r.Context(), identity.GitHubToken, req.Files, repo, directory, naming)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "all uploads complete"
	if len(result.Failed) > 0 {
		message = fmt.Sprintf("partial success, %d failed", len(result.Failed))
	}

	writeJSON(w, http.StatusOK, Envelope{
		Success: len(result.Failed) == 0,
		Data:    result,
		Message: message,
	})
}
