package repository

import (
	"context"

	"github.com/magabrotheeeer/character-matters/internal/models"
)

// InsertSubscriptionEvent добавляет запись в журнал событий подписок.
func (s *Storage) InsertSubscriptionEvent(ctx context.Context, e models.SubscriptionEvent) (int64, error) {
	const op = "storage.InsertSubscriptionEvent"
	if err := ctxErr(ctx, op); err != nil {
		return 0, err
	}

	query := `INSERT INTO subscription_events
			(user_id, subscription_id, type, status, provider, reference, occurred_at)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7)
		RETURNING id`
	var id int64
	err := s.DB.QueryRowContext(ctx, query, e.UserID, e.SubscriptionID, e.Type, e.Status,
		e.Provider, nullString(e.Reference), e.OccurredAt).Scan(&id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return id, nil
}

// ListSubscriptionEvents возвращает журнал пользователя, новые события первыми.
func (s *Storage) ListSubscriptionEvents(ctx context.Context, userID string, limit int) ([]models.SubscriptionEvent, error) {
	const op = "storage.ListSubscriptionEvents"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, user_id, COALESCE(subscription_id::text, ''), type, status, provider,
			COALESCE(reference, ''), occurred_at
		FROM subscription_events
		WHERE user_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	events := make([]models.SubscriptionEvent, 0)
	for rows.Next() {
		var e models.SubscriptionEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.SubscriptionID, &e.Type, &e.Status,
			&e.Provider, &e.Reference, &e.OccurredAt); err != nil {
			return nil, wrap(op, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return events, nil
}
