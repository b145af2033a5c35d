// Package reconciler собирает процесс периодической сверки подписок.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/character-matters/internal/app/events"
	"github.com/magabrotheeeer/character-matters/internal/cache"
	"github.com/magabrotheeeer/character-matters/internal/config"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	schedulerservice "github.com/magabrotheeeer/character-matters/internal/services/scheduler"
	subservice "github.com/magabrotheeeer/character-matters/internal/services/subscription"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

// App представляет приложение сверки.
type App struct {
	scheduler *schedulerservice.Scheduler
	db        *repository.Storage
	cache     *cache.Cache
	broker    *events.Broker
	logger    *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for i := 0; i < 10; i++ {
		if err = repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// New создает новый экземпляр приложения сверки.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{logger: logger}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	app.db = db
	if err := waitForDB(ctx, db); err != nil {
		app.close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}
	app.cache = cacheRedis

	broker, err := events.Connect(cfg.RabbitMQ, db, logger)
	if err != nil {
		app.close()
		return nil, err
	}
	app.broker = broker

	// Сверке не нужны платёжные провайдеры: она работает только по датам в базе.
	subscriptionService := subservice.New(logger, subservice.Deps{
		Subscriptions: db,
		Users:         db,
		Cache:         cacheRedis,
		Events:        broker,
	}, subservice.Config{})

	app.scheduler = schedulerservice.New(subscriptionService, logger, cfg.Interval, cfg.PendingTTL)
	return app, nil
}

// Run выполняет сверку до отмены ctx.
func (a *App) Run(ctx context.Context) {
	defer a.close()
	a.scheduler.Run(ctx)
}

func (a *App) close() {
	if a.broker != nil {
		a.broker.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
