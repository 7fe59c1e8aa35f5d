package main

import (
	"fmt"
	"log/slog"

	"tagprint/internal/config"
	"tagprint/internal/daemon"
	"tagprint/internal/history"
)

func openDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return d, nil
}
