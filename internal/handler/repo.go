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

// RepoHandler serves repository-level operations: list, branches, contents,
// create, and initialisation of the storage repository.
type RepoHandler struct {
	repos  *service.RepoService
	config *service.ConfigService
	logger *slog.Logger
}

func NewRepoHandler(repos *service.RepoService, config *service.ConfigService, logger *slog.Logger) *RepoHandler {
	return &RepoHandler{repos: repos, config: config, logger: logger}
}

// HandleList returns the authenticated user's repositories.
//
// HTTP: GET /api/repo/list
func (h *RepoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	repos, err := h.repos.List(r.Context(), identity.GitHubToken)
	if err != nil {
		h.logger.Error("listing repositories failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeSuccess(w, repos, "")
}

// HandleBranches returns the branches of a repository.
//
// HTTP: GET /api/repo/branches?owner=&repo=
func (h *RepoHandler) HandleBranches(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	owner := r.URL.Query().Get("owner")
	repo := r.URL.Query().Get("repo")
	if owner == "" || repo == "" {
		writeError(w, apperror.BadRequest("missing owner or repo parameter"))
		return
	}

	branches, err := h.repos.Branches(r.Context(), identity.GitHubToken, owner, repo)
	if err != nil {
		h.logger.Error("listing branches failed",
			slog.String("repo", owner+"/"+repo),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeSuccess(w, branches, "")
}

// HandleContents returns the raw contents of a repository path: a file
// descriptor or a directory listing. A missing path is a success with null
// data — browsing into nothing is an expected case.
//
// HTTP: GET /api/repo/contents?owner=&repo=&path=&ref=
func (h *RepoHandler) HandleContents(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.repos.Contents(r.Context(), identity.GitHubToken, owner, repo, q.Get("path"), q.Get("ref"))
	if err != nil {
		h.logger.Error("reading contents failed",
			slog.String("repo", owner+"/"+repo),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	if result == nil {
		writeSuccess(w, nil, "path does not exist")
		return
	}

	if result.File != nil {
		writeSuccess(w, result.File, "")
		return
	}
	writeSuccess(w, result.Entries, "")
}

type createRepoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     *bool  `json:"private"`
}

// HandleCreate creates a new storage repository.
//
// HTTP: POST /api/repo/create
//
// Responds 409 when a repository of that name already exists. Defaults:
// name per model.DefaultRepoName, private=true, auto-initialised.
func (h *RepoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req createRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.BadRequest("invalid JSON body"))
		return
	}

	name := req.Name
	if name == "" {
		name = model.DefaultRepoName
	}
	description := req.Description
	if description == "" {
		description = "Image hosting repository"
	}
	private := req.Private == nil || *req.Private

	repo, err := h.repos.Create(r.Context(), identity.GitHubToken, identity.Login, name, description, private)
	if err != nil {
		h.logger.Error("creating repository failed",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeSuccess(w, repo, "repository created")
}

type initRepoRequest struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
}

// HandleInit seeds a repository with the app's file layout and default
// configuration document.
//
// HTTP: POST /api/repo/init
func (h *RepoHandler) HandleInit(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req initRepoRequest
	if r.Body != nil {
		// An empty body means "use defaults".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	repo := model.RepoRef{Owner: req.Owner, Name: req.Repo, Branch: req.Branch}.WithDefaults(identity.Login)

	files, err := h.config.Init(r.Context(), identity.GitHubToken, *identity, repo)
	if err != nil {
		h.logger.Error("initialising repository failed",
			slog.String("repo", repo.Owner+"/"+repo.Name),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeSuccess(w, files, "repository initialised")
}
