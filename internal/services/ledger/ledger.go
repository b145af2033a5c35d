// Package ledger записывает события жизненного цикла подписок в журнал subscription_events.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

type Repository interface {
	InsertSubscriptionEvent(ctx context.Context, e models.SubscriptionEvent) (int64, error)
}

// Recorder: обработчик сообщений очереди subscription.ledger.
type Recorder struct {
	repo Repository
	log  *slog.Logger
}

// NewRecorder создает новый экземпляр Recorder.
func NewRecorder(repo Repository, log *slog.Logger) *Recorder {
	return &Recorder{
		repo: repo,
		log:  log,
	}
}

// Handle разбирает сообщение и сохраняет событие.
// Нечитаемые сообщения и записи, нарушающие ограничения целостности, подтверждаются и отбрасываются.
// Остальные ошибки БД возвращаются для повторной доставки.
func (r *Recorder) Handle(ctx context.Context, body []byte) error {
	const op = "ledger.Handle"

	var event models.SubscriptionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		r.log.Error("failed to unmarshal subscription event", slog.String("op", op), sl.Err(err))
		return nil
	}
	if event.UserID == "" || event.Type == "" {
		r.log.Warn("subscription event without user or type dropped", slog.String("op", op))
		return nil
	}

	id, err := r.repo.InsertSubscriptionEvent(ctx, event)
	if repository.IsIntegrityViolation(err) {
		r.log.Error("subscription event rejected by storage, dropped", slog.String("op", op),
			slog.String("user_id", event.UserID), slog.String("type", string(event.Type)), sl.Err(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r.log.Debug("subscription event recorded",
		slog.Int64("id", id),
		slog.String("user_id", event.UserID),
		slog.String("type", string(event.Type)),
	)
	return nil
}

// DirectPublisher пишет события в журнал в том же процессе.
// Используется вместо RabbitMQ, когда брокер не настроен.
type DirectPublisher struct {
	recorder *Recorder
}

func NewDirectPublisher(recorder *Recorder) *DirectPublisher {
	return &DirectPublisher{recorder: recorder}
}

// Publish сериализует событие и передаёт его Recorder. Ключ маршрутизации не используется.
func (p *DirectPublisher) Publish(ctx context.Context, _ string, event any) error {
	const op = "ledger.DirectPublisher.Publish"

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return p.recorder.Handle(ctx, body)
}
