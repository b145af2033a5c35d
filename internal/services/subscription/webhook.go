package subscription

import (
	"context"
	"errors"
	"log/slog"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

// HandleStripeEvent применяет событие вебхука Stripe к локальному состоянию.
// Неизвестные типы событий логируются и пропускаются.
func (s *Service) HandleStripeEvent(ctx context.Context, event *paymentprovider.Event) error {
	if event == nil {
		return apperr.InvalidInput("Empty event")
	}
	log := s.log.With(slog.String("event_id", event.ID), slog.String("event_type", event.Type))

	switch event.Type {
	case paymentprovider.EventCheckoutCompleted:
		return s.onCheckoutCompleted(ctx, log, event.Session)
	case paymentprovider.EventSubscriptionUpdated:
		return s.onSubscriptionUpdated(ctx, log, event.Subscription)
	case paymentprovider.EventSubscriptionDeleted:
		return s.onSubscriptionDeleted(ctx, log, event.Subscription)
	case paymentprovider.EventInvoicePaymentFailed:
		return s.onInvoicePaymentFailed(ctx, log, event.Invoice)
	default:
		log.Debug("stripe event ignored")
		return nil
	}
}

func (s *Service) onCheckoutCompleted(ctx context.Context, log *slog.Logger, session *paymentprovider.CheckoutSession) error {
	if session == nil || session.Metadata["userId"] == "" {
		log.Warn("checkout session without user metadata")
		return nil
	}
	user, err := s.users.GetUserByID(ctx, session.Metadata["userId"])
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("checkout session for unknown user", slog.String("user_id", session.Metadata["userId"]))
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "Failed to load user", err)
	}

	existing, err := s.current(ctx, user.ID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status == models.StatusActive &&
		session.SubscriptionID != "" && existing.StripeSubscriptionID == session.SubscriptionID {
		log.Debug("checkout already finalized", slog.String("user_id", user.ID))
		return nil
	}

	_, err = s.FinalizeStripeCheckout(ctx, user, session.ID)
	if apperr.Is(err, apperr.CodePaymentNotCompleted) {
		log.Info("checkout completed without payment", slog.String("user_id", user.ID))
		return nil
	}
	if apperr.Is(err, apperr.CodeForbidden) {
		log.Warn("checkout session customer does not match user", slog.String("user_id", user.ID),
			slog.String("customer_id", session.CustomerID))
		return nil
	}
	return err
}

func (s *Service) onSubscriptionUpdated(ctx context.Context, log *slog.Logger, psub *paymentprovider.Subscription) error {
	local, err := s.byStripeID(ctx, psub)
	if err != nil || local == nil {
		return err
	}
	if _, err := s.subs.UpdateSubscriptionPeriod(ctx, local.ID,
		timeOrNil(psub.CurrentPeriodStart), timeOrNil(psub.CurrentPeriodEnd)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperr.Wrap(apperr.CodeInternal, "Failed to update subscription", err)
	}
	s.invalidate(ctx, local.UserID)
	log.Info("subscription period refreshed", slog.String("user_id", local.UserID))
	return nil
}

func (s *Service) onSubscriptionDeleted(ctx context.Context, log *slog.Logger, psub *paymentprovider.Subscription) error {
	local, err := s.byStripeID(ctx, psub)
	if err != nil || local == nil {
		return err
	}
	if !local.IsLive() {
		return nil
	}
	canceled, err := s.subs.CancelSubscription(ctx, local.UserID, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "Failed to cancel subscription", err)
	}
	if err := s.demote(ctx, local.UserID); err != nil {
		return err
	}
	log.Info("subscription canceled by provider", slog.String("user_id", local.UserID))
	s.changed(ctx, models.EventCanceled, canceled)
	return nil
}

func (s *Service) onInvoicePaymentFailed(ctx context.Context, log *slog.Logger, invoice *paymentprovider.Invoice) error {
	if invoice == nil || invoice.SubscriptionID == "" {
		return nil
	}
	local, err := s.byStripeID(ctx, &paymentprovider.Subscription{ID: invoice.SubscriptionID})
	if err != nil || local == nil {
		return err
	}
	log.Warn("subscription payment failed", slog.String("user_id", local.UserID))
	s.changed(ctx, models.EventPaymentFailed, local)
	return nil
}

// byStripeID находит локальную подписку по id подписки Stripe. Отсутствие записи не ошибка.
func (s *Service) byStripeID(ctx context.Context, psub *paymentprovider.Subscription) (*models.Subscription, error) {
	if psub == nil || psub.ID == "" {
		return nil, nil
	}
	local, err := s.subs.GetSubscriptionByStripeID(ctx, psub.ID)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Debug("no local subscription for stripe id", slog.String("stripe_subscription_id", psub.ID))
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load subscription", err)
	}
	return local, nil
}
