// Package events выбирает транспорт событий жизненного цикла подписок.
package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/character-matters/internal/config"
	"github.com/magabrotheeeer/character-matters/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	ledgerservice "github.com/magabrotheeeer/character-matters/internal/services/ledger"
)

// Publisher публикует событие с ключом маршрутизации.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Broker: издатель вместе с ресурсами, которые нужно закрыть.
type Broker struct {
	Publisher
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *slog.Logger
}

// Connect возвращает издателя RabbitMQ, если брокер настроен,
// иначе события пишутся в журнал repo в том же процессе.
func Connect(cfg config.RabbitMQ, repo ledgerservice.Repository, log *slog.Logger) (*Broker, error) {
	if cfg.URL == "" {
		log.Info("rabbitmq is not configured, subscription events go straight to the ledger")
		return &Broker{
			Publisher: ledgerservice.NewDirectPublisher(ledgerservice.NewRecorder(repo, log)),
			log:       log,
		}, nil
	}

	conn, err := rabbitmq.Connect(cfg.URL, cfg.MaxRetries, cfg.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.Exchange, rabbitmq.GetLedgerQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	log.Info("connected to RabbitMQ", slog.String("exchange", rabbitmq.Exchange))
	return &Broker{
		Publisher: rabbitmq.NewPublisher(ch, rabbitmq.Exchange),
		conn:      conn,
		ch:        ch,
		log:       log,
	}, nil
}

// Close закрывает канал и соединение, если они открыты.
func (b *Broker) Close() {
	if b.ch != nil {
		if err := b.ch.Close(); err != nil {
			b.log.Error("failed to close RabbitMQ channel", sl.Err(err))
		}
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			b.log.Error("failed to close RabbitMQ connection", sl.Err(err))
		}
	}
}
