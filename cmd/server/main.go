// Package main is the entry point for the PicHub server.
//
// main stays minimal: read configuration from the environment, build the
// logger, hand everything to internal/server. All actual logic lives in the
// imported packages.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/sakif/pichub/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	production := os.Getenv("APP_ENV") == "production"

	// JWT_SECRET must be a long random string. Use:
	//   JWT_SECRET=$(openssl rand -hex 32)
	// In production it is mandatory. Outside production a process-lifetime
	// secret is generated, so every restart invalidates all sessions.
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if production {
			logger.Error("JWT_SECRET must be set in production")
			os.Exit(1)
		}
		secret = randomSecret()
		logger.Warn("JWT_SECRET not set — generated a process-lifetime secret, sessions will not survive a restart")
	}

	clientID := os.Getenv("GITHUB_CLIENT_ID")
	clientSecret := os.Getenv("GITHUB_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		logger.Error("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set")
		os.Exit(1)
	}

	callbackURL := os.Getenv("GITHUB_CALLBACK_URL")
	if callbackURL == "" {
		callbackURL = fmt.Sprintf("http://localhost:%d/api/auth/callback", port)
	}

	cfg := server.Config{
		Port:               port,
		SessionSecret:      secret,
		GitHubClientID:     clientID,
		GitHubClientSecret: clientSecret,
		GitHubCallbackURL:  callbackURL,
		StaticDir:          os.Getenv("STATIC_DIR"),
		Production:         production,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// randomSecret returns 32 bytes of cryptographic randomness, hex-encoded.
func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}
