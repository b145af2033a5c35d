package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/character-matters/internal/cache"
	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

// pendingCacheTTL ограничивает жизнь pending в кеше: Get может записать pending,
// прочитанный до активации, уже после того как активация сбросила кеш.
const pendingCacheTTL = 30 * time.Second

// Get возвращает текущую active или pending подписку пользователя.
func (s *Service) Get(ctx context.Context, user *models.User) (*models.Subscription, error) {
	if user == nil {
		return nil, errUnauthorized
	}
	key := cache.SubscriptionKey(user.ID)
	if s.cache != nil {
		var cached models.Subscription
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("failed to read subscription cache", slog.String("user_id", user.ID), sl.Err(err))
		}
		if found && cached.IsLive() {
			return &cached, nil
		}
	}

	sub, err := s.current(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !sub.IsLive() {
		return nil, errNoLive
	}
	if s.cache != nil {
		var ttl time.Duration
		if sub.Status == models.StatusPending {
			ttl = pendingCacheTTL
		}
		if err := s.cache.Set(ctx, key, sub, ttl); err != nil {
			s.log.Warn("failed to write subscription cache", slog.String("user_id", user.ID), sl.Err(err))
		}
	}
	return sub, nil
}

// History возвращает журнал событий подписки пользователя, новые первыми.
func (s *Service) History(ctx context.Context, user *models.User) ([]models.SubscriptionEvent, error) {
	if user == nil {
		return nil, errUnauthorized
	}
	events, err := s.subs.ListSubscriptionEvents(ctx, user.ID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load subscription history", err)
	}
	return events, nil
}

// Cancel отменяет подписку немедленно: период заканчивается в момент отмены.
func (s *Service) Cancel(ctx context.Context, user *models.User) (*models.Subscription, error) {
	if user == nil {
		return nil, errUnauthorized
	}
	existing, err := s.current(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !existing.IsLive() {
		return nil, errNoLive
	}

	if existing.PaymentProvider == models.ProviderStripe && existing.StripeSubscriptionID != "" {
		if err := s.requireStripe(); err != nil {
			return nil, err
		}
		if err := s.stripe.CancelSubscription(ctx, existing.StripeSubscriptionID); err != nil {
			return nil, err
		}
	}

	canceled, err := s.subs.CancelSubscription(ctx, user.ID, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNoLive
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to cancel subscription", err)
	}
	if !user.IsAdmin() {
		if err := s.setMembership(ctx, user.ID, models.RoleFree, ""); err != nil {
			return nil, err
		}
		user.Role = models.RoleFree
	}

	s.log.Info("subscription canceled", slog.String("user_id", user.ID))
	s.changed(ctx, models.EventCanceled, canceled)
	return canceled, nil
}

// demote возвращает пользователю роль free-user. Администраторы роль не теряют.
func (s *Service) demote(ctx context.Context, userID string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "Failed to load user", err)
	}
	if user.IsAdmin() {
		return nil
	}
	return s.setMembership(ctx, userID, models.RoleFree, "")
}
