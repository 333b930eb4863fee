package service

import (
	"context"
	"log/slog"

	"github.com/sakif/pichub/internal/apperror"
	"github.com/sakif/pichub/internal/github"
	"github.com/sakif/pichub/internal/model"
)

// RepoService covers repository-level operations: listing the user's
// repositories and branches, browsing contents, and creating the storage
// repository.
type RepoService struct {
	client *github.Client
	logger *slog.Logger
}

func NewRepoService(client *github.Client, logger *slog.Logger) *RepoService {
	return &RepoService{client: client, logger: logger}
}

// List returns the authenticated user's repositories, private ones included.
func (s *RepoService) List(ctx context.Context, token string) ([]model.Repo, error) {
	repos, err := s.client.GetUserRepos(ctx, token)
	if err != nil {
		return nil, apperror.Internal("listing repositories failed", err)
	}

	out := make([]model.Repo, 0, len(repos))
	for _, r := range repos {
		out = append(out, projectRepo(r))
	}
	return out, nil
}

// Branches returns the branches of owner/repo with their head commit SHAs.
func (s *RepoService) Branches(ctx context.Context, token, owner, repo string) ([]model.Branch, error) {
	branches, err := s.client.GetRepoBranches(ctx, token, owner, repo)
	if err != nil {
		return nil, apperror.Internal("listing branches failed", err)
	}

	out := make([]model.Branch, 0, len(branches))
	for _, b := range branches {
		out = append(out, model.Branch{Name: b.Name, Commit: b.Commit.SHA})
	}
	return out, nil
}

// Contents reads a path in the repository and returns the raw Contents API
// projection: a single file descriptor or a directory listing. A missing
// path returns (nil, nil) — absence is an expected case when browsing.
func (s *RepoService) Contents(ctx context.Context, token, owner, repo, path, ref string) (*github.ContentResult, error) {
	result, err := s.client.GetRepoContent(ctx, token, owner, repo, path, ref)
	if err != nil {
		if github.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperror.Internal("reading repository contents failed", err)
	}
	return result, nil
}

// Create creates a new storage repository for the authenticated user. The
// existence probe is not atomic with the create — a racing creator surfaces
// as an upstream failure instead of a Conflict.
func (s *RepoService) Create(ctx context.Context, token, login, name, description string, private bool) (*model.Repo, error) {
	exists, err := s.client.RepositoryExists(ctx, token, login, name)
	if err != nil {
		return nil, apperror.Internal("creating repository failed", err)
	}
	if exists {
		return nil, apperror.Conflict("repository", name)
	}

	repo, err := s.client.CreateRepository(ctx, token, name, description, private)
	if err != nil {
		return nil, apperror.Internal("creating repository failed", err)
	}

	s.logger.Info("repository created",
		slog.String("repo", repo.FullName),
		slog.Bool("private", repo.Private),
	)
	projected := projectRepo(*repo)
	return &projected, nil
}

func projectRepo(r github.Repo) model.Repo {
	return model.Repo{
		Name:          r.Name,
		FullName:      r.FullName,
		Owner:         r.Owner.Login,
		Private:       r.Private,
		DefaultBranch: r.DefaultBranch,
		Description:   r.Description,
	}
}
