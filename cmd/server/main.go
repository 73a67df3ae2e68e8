package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/nfrund/goby-messenger/internal/config"
	"github.com/nfrund/goby-messenger/internal/logging"
	"github.com/nfrund/goby-messenger/internal/server"
)

func main() {
	cfg, err := config.Load()
	logging.New()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	s, err := server.New(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to initialize server", "error", err)
		os.Exit(1)
	}
	s.RegisterRoutes()

	slog.Info("Starting server", "addr", cfg.GetServerAddr())
	if err := s.Start(cfg.GetServerAddr()); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
