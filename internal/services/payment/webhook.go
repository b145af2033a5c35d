package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

// HandleWebhook проверяет подпись и применяет событие.
// События PaymentIntent меняют заказы, остальные уходят в оркестратор подписок.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := s.requireStripe(); err != nil {
		return err
	}
	event, err := s.stripe.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	log := s.log.With(slog.String("event_id", event.ID), slog.String("event_type", event.Type))

	switch event.Type {
	case paymentprovider.EventPaymentIntentSucceeded:
		return s.completeOrder(ctx, log, event.PaymentIntent)
	case paymentprovider.EventPaymentIntentFailed:
		return s.failOrder(ctx, log, event.PaymentIntent)
	default:
		if s.subscriptions == nil {
			log.Debug("stripe event ignored")
			return nil
		}
		return s.subscriptions.HandleStripeEvent(ctx, event)
	}
}

func (s *PaymentService) completeOrder(ctx context.Context, log *slog.Logger, pi *paymentprovider.PaymentIntent) error {
	if pi == nil || pi.ID == "" {
		return nil
	}
	order, err := s.repo.SetOrderStatusByPaymentIntent(ctx, pi.ID, models.OrderCompleted)
	if errors.Is(err, repository.ErrNotFound) {
		log.Info("no pending order for payment intent", slog.String("payment_intent", pi.ID))
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "Failed to complete order", err)
	}
	if err := s.repo.AddPurchasedEbook(ctx, order.UserID, order.EbookID); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "Failed to record purchase", err)
	}
	if err := s.repo.IncrementEbookSales(ctx, order.EbookID); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "Failed to update sales", err)
	}
	log.Info("order completed", slog.String("order_id", order.ID), slog.String("user_id", order.UserID))
	return nil
}

func (s *PaymentService) failOrder(ctx context.Context, log *slog.Logger, pi *paymentprovider.PaymentIntent) error {
	if pi == nil || pi.ID == "" {
		return nil
	}
	order, err := s.repo.SetOrderStatusByPaymentIntent(ctx, pi.ID, models.OrderFailed)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "Failed to fail order", err)
	}
	log.Warn("order payment failed", slog.String("order_id", order.ID), slog.String("user_id", order.UserID))
	return nil
}
