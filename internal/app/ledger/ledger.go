// Package ledger собирает потребителя очереди subscription.ledger.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/character-matters/internal/config"
	"github.com/magabrotheeeer/character-matters/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/migrations"
	ledgerservice "github.com/magabrotheeeer/character-matters/internal/services/ledger"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

// App: потребитель событий подписок.
type App struct {
	recorder *ledgerservice.Recorder
	db       *repository.Storage
	conn     *amqp.Connection
	ch       *amqp.Channel
	logger   *slog.Logger
}

// New подключается к базе и RabbitMQ и объявляет очередь журнала.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("ledger requires RABBITMQ_URL")
	}
	app := &App{logger: logger}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	app.db = db
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		app.close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	app.conn = conn
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.Exchange, rabbitmq.GetLedgerQueues())
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	app.ch = ch

	app.recorder = ledgerservice.NewRecorder(db, logger)
	return app, nil
}

// Run читает очередь до отмены ctx или закрытия соединения брокером.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.LedgerQueue, a.recorder.Handle); err != nil {
		return err
	}
	a.logger.Info("ledger consumer started", slog.String("queue", rabbitmq.LedgerQueue))

	closed := a.conn.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		a.logger.Info("ledger consumer stopping")
		return nil
	case err := <-closed:
		if err == nil {
			return nil
		}
		return fmt.Errorf("rabbitmq connection closed: %w", err)
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close RabbitMQ channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close RabbitMQ connection", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
