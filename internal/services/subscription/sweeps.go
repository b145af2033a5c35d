package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/models"
)

// ExpireStalePending переводит в expired pending-подписки, созданные раньше now-olderThan.
// Роль пользователя не меняется: pending её не повышал.
func (s *Service) ExpireStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	now := s.now().UTC()
	expired, err := s.subs.ExpireStalePending(ctx, now.Add(-olderThan), now)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeInternal, "Failed to expire pending subscriptions", err)
	}
	for i := range expired {
		s.changed(ctx, models.EventExpired, &expired[i])
	}
	return len(expired), nil
}

// ExpireLapsed переводит в expired активные подписки с истёкшим периодом
// и возвращает пользователям роль free-user.
func (s *Service) ExpireLapsed(ctx context.Context) (int, error) {
	expired, err := s.subs.ExpireLapsed(ctx, s.now().UTC())
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeInternal, "Failed to expire lapsed subscriptions", err)
	}
	for i := range expired {
		sub := &expired[i]
		if err := s.demote(ctx, sub.UserID); err != nil {
			s.log.Error("failed to demote user", slog.String("user_id", sub.UserID), sl.Err(err))
		}
		s.changed(ctx, models.EventExpired, sub)
	}
	return len(expired), nil
}
