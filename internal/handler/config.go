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

// ConfigHandler serves the user configuration document stored inside the
// backing repository.
type ConfigHandler struct {
	config *service.ConfigService
	logger *slog.Logger
}

func NewConfigHandler(config *service.ConfigService, logger *slog.Logger) *ConfigHandler {
	return &ConfigHandler{config: config, logger: logger}
}

// HandleGet reads the configuration document.
//
// HTTP: GET /api/user/config?owner=&repo=&branch=
//
// An absent document is a success with null data — the client treats that
// as "not initialised yet" and offers repository setup.
func (h *ConfigHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	q := r.URL.Query()
	repo := model.RepoRef{
		Owner:  q.Get("owner"),
		Name:   q.Get("repo"),
		Branch: q.Get("branch"),
	}.WithDefaults(identity.Login)

	cfg, err := h.config.Get(r.Context(), identity.GitHubToken, repo)
	if err != nil {
		h.logger.Error("reading configuration failed",
			slog.String("repo", repo.Owner+"/"+repo.Name),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	if cfg == nil {
		writeSuccess(w, nil, "configuration does not exist")
		return
	}

	writeSuccess(w, cfg, "")
}

type putConfigRequest struct {
	Config     *model.Config  `json:"config"`
	Repository *model.RepoRef `json:"repository"`
}

// HandlePut writes the full configuration document.
//
// HTTP: PUT /api/user/config
//
// The write presents the blob SHA of the version it read; a concurrent
// editor makes it fail rather than being silently overwritten. No retry —
// the client re-reads and re-applies.
func (h *ConfigHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req putConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Config == nil {
		writeError(w, apperror.BadRequest("missing configuration data"))
		return
	}

	repo := model.RepoRef{}
	if req.Repository != nil {
		repo = *req.Repository
	}
	repo = repo.WithDefaults(identity.Login)

	commit, err := h.config.Put(r.Context(), identity.GitHubToken, repo, *req.Config)
	if err != nil {
		h.logger.Error("saving configuration failed",
			slog.String("repo", repo.Owner+"/"+repo.Name),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeSuccess(w, map[string]string{"commit": commit}, "configuration saved")
}
