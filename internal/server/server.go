// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency — the GitHub client, the
// token service, the OAuth provider, the services, the handlers — is wired
// here, in one place. The server holds no mutable state across requests;
// the only cross-request credential is the signed session cookie.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/pichub/internal/auth"
	"github.com/sakif/pichub/internal/github"
	"github.com/sakif/pichub/internal/handler"
	"github.com/sakif/pichub/internal/middleware"
	"github.com/sakif/pichub/internal/service"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port               int
	SessionSecret      string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	GitHubAPIURL       string // overrides the GitHub API endpoint; tests point it at a fake
	StaticDir          string // optional: serves the built frontend when set
	Production         bool   // enables Secure cookies
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	tokens *auth.TokenService
}

// New creates a Server with the given config and wires the full dependency
// chain: GitHub client → services → handlers → routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		tokens: tokens,
	}

	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests driving the server through
// httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// Route policy: everything under /api is protected by RequireIdentity except
// the OAuth start/callback and the verify probe, which must work without a
// session. Protected handlers always see a valid identity in the context.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	client := github.NewClient()
	if s.config.GitHubAPIURL != "" {
		client.BaseURL = s.config.GitHubAPIURL
	}
	provider := auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)

	uploads := service.NewUploadService(client, s.logger)
	configs := service.NewConfigService(client, s.logger)
	repos := service.NewRepoService(client, s.logger)
	files := service.NewFileService(client, s.logger)

	authHandler := handler.NewAuthHandler(provider, s.tokens, client, s.config.Production, s.logger)
	repoHandler := handler.NewRepoHandler(repos, configs, s.logger)
	configHandler := handler.NewConfigHandler(configs, s.logger)
	managementHandler := handler.NewManagementHandler(files, s.logger)
	uploadHandler := handler.NewUploadHandler(uploads, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		// Public: the OAuth flow and the auth-state probe.
		r.Get("/auth/github", authHandler.HandleLogin)
		r.Get("/auth/callback", authHandler.HandleCallback)
		r.Get("/auth/verify", authHandler.HandleVerify)

		// Everything else requires a valid session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireIdentity(s.tokens))

			r.Post("/auth/logout", authHandler.HandleLogout)

			r.Get("/repo/list", repoHandler.HandleList)
			r.Get("/repo/branches", repoHandler.HandleBranches)
			r.Get("/repo/contents", repoHandler.HandleContents)
			r.Post("/repo/create", repoHandler.HandleCreate)
			r.Post("/repo/init", repoHandler.HandleInit)

			r.Get("/user/config", configHandler.HandleGet)
			r.Put("/user/config", configHandler.HandlePut)

			r.Get("/management/list", managementHandler.HandleList)
			r.Delete("/management/delete", managementHandler.HandleDelete)
			r.Patch("/management/rename", managementHandler.HandleRename)

			r.Put("/upload/image", uploadHandler.HandleImage)
			r.Post("/upload/batch", uploadHandler.HandleBatch)
		})
	})

	// Serve the built frontend when a static dir is configured.
	if s.config.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(s.config.StaticDir))
		s.router.Handle("/*", fileServer)
	}
}

// Start starts the HTTP server and blocks until shutdown. On SIGINT/SIGTERM
// in-flight requests get 30 seconds to complete.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
