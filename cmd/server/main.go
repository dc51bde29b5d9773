package main

import (
	"context"
	"os/signal"
	"syscall"

	"job-portal/internal/config"
	"job-portal/internal/logger"
	"job-portal/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.NewSequencer(cfg).Run(ctx); err != nil {
		stop()
		logger.WithError(err).Fatal("Server failed to start")
	}
}
