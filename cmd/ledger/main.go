package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/character-matters/internal/app/ledger"
	"github.com/magabrotheeeer/character-matters/internal/config"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)
	logger.Info("starting ledger", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := ledger.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize ledger", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("ledger stopped with error", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("ledger stopped gracefully")
}
