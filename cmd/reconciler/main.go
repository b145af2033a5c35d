package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/character-matters/internal/app/reconciler"
	"github.com/magabrotheeeer/character-matters/internal/config"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)
	logger.Info("starting reconciler",
		slog.String("env", cfg.Env),
		slog.Duration("interval", cfg.Interval),
		slog.Duration("pending_ttl", cfg.PendingTTL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := reconciler.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize reconciler", sl.Err(err))
		os.Exit(1)
	}

	app.Run(ctx)
	logger.Info("reconciler stopped gracefully")
}
