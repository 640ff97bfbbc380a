// Package main is the entry point for the PollSphere API server.
//
// The main package stays minimal. Its job is to:
//  1. Read configuration (environment, optional .env file)
//  2. Create the logger
//  3. Build and start the server
//
// All actual logic lives in internal/ packages.
package main

import (
	"log/slog"
	"os"

	"github.com/pollsphere/pollsphere/internal/config"
	"github.com/pollsphere/pollsphere/internal/server"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
