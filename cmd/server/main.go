// Command server runs the Story Studio API.
//
// Configuration comes from the environment (optionally a .env file and a
// YAML file named by CONFIG_FILE); see internal/config. The minimum to start
// locally is:
//
//	JWT_SECRET=$(openssl rand -hex 32) go run ./cmd/server
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/story-studio/internal/config"
	"github.com/sakif/story-studio/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No configured logger yet.
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if cfg.AIServiceURL == "" {
		logger.Warn("AI_SERVICE_URL not set, /api/ai/generate will fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	srv, err := server.New(ctx, cfg, logger, server.Options{})
	cancel()
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger writes text in development and JSON everywhere else.
func newLogger(cfg config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.LogLevel) // validated by Load
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Env == config.EnvDevelopment {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
