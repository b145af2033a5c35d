package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/lib/billing"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider"
)

// PaystackCheckoutParams: параметры запуска оплаты через Paystack.
type PaystackCheckoutParams struct {
	PlanID       string
	Amount       float64
	BillingCycle string
	CallbackURL  string
}

// PaystackCheckout: ссылка на оплату и reference транзакции.
type PaystackCheckout struct {
	AuthorizationURL string `json:"authorizationUrl"`
	Reference        string `json:"reference"`
}

// StartPaystackCheckout инициализирует транзакцию Paystack и записывает pending-подписку.
func (s *Service) StartPaystackCheckout(ctx context.Context, user *models.User, p PaystackCheckoutParams) (*PaystackCheckout, error) {
	if user == nil {
		return nil, errUnauthorized
	}
	if p.PlanID == "" || p.Amount <= 0 {
		return nil, apperr.InvalidInput("Plan ID and a positive amount are required")
	}
	if err := s.ensureNoLive(ctx, user.ID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	cycle := billing.ParseCycle(p.BillingCycle)
	callbackURL := p.CallbackURL
	if callbackURL == "" {
		callbackURL = s.defaultCallbackURL()
	}
	tx, err := s.paystack.Initialize(ctx, paymentprovider.InitializeParams{
		Email:       user.Email,
		Amount:      int64(math.Round(p.Amount * 100)),
		Reference:   fmt.Sprintf("ps_%s_%d", user.ID, now.UnixMilli()),
		CallbackURL: callbackURL,
		Currency:    s.cfg.PaystackCurrency,
		Metadata: map[string]string{
			"planId":       p.PlanID,
			"userId":       user.ID,
			"billingCycle": string(cycle),
		},
	})
	if err != nil {
		return nil, err
	}

	saved, err := s.insertIfNotLive(ctx, models.Subscription{
		UserID:            user.ID,
		Plan:              p.PlanID,
		Status:            models.StatusPending,
		BillingCycle:      cycle,
		Price:             p.Amount,
		StartDate:         now,
		PaymentProvider:   models.ProviderPaystack,
		ProviderReference: tx.Reference,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("paystack checkout started", slog.String("user_id", user.ID), slog.String("reference", tx.Reference))
	s.changed(ctx, models.EventPending, saved)
	return &PaystackCheckout{AuthorizationURL: tx.AuthorizationURL, Reference: tx.Reference}, nil
}

// VerifyPaystackCheckout проверяет транзакцию и активирует подписку.
// Paystack не сообщает конец периода для разовой оплаты, он вычисляется от paid_at.
func (s *Service) VerifyPaystackCheckout(ctx context.Context, user *models.User, reference string) (*models.Subscription, error) {
	if user == nil {
		return nil, errUnauthorized
	}
	if reference == "" {
		return nil, apperr.InvalidInput("Reference is required")
	}

	v, err := s.paystack.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !v.Successful() {
		return nil, apperr.New(apperr.CodePaymentNotSuccessful, "Payment not successful")
	}
	if owner := v.Metadata["userId"]; owner != "" && owner != user.ID {
		return nil, apperr.Forbidden("Transaction belongs to another user")
	}

	existing, err := s.current(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	plan := v.Metadata["planId"]
	if plan == "" && existing != nil {
		plan = existing.Plan
	}
	cycle := billing.ParseCycle(v.Metadata["billingCycle"])
	start := s.now().UTC()
	if v.PaidAt != nil {
		start = v.PaidAt.UTC()
	}
	end := billing.AddCycle(start, cycle)
	ref := v.Reference
	if ref == "" {
		ref = reference
	}

	saved, err := s.upsert(ctx, models.Subscription{
		UserID:             user.ID,
		Plan:               plan,
		Status:             models.StatusActive,
		BillingCycle:       cycle,
		Price:              float64(v.Amount) / 100,
		StartDate:          start,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
		PaymentProvider:    models.ProviderPaystack,
		ProviderReference:  ref,
	})
	if err != nil {
		return nil, err
	}

	if v.CustomerCode != "" && v.CustomerCode != user.PaystackCustomerCode {
		if err := s.users.SetPaystackCustomerCode(ctx, user.ID, v.CustomerCode); err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "Failed to save customer", err)
		}
		user.PaystackCustomerCode = v.CustomerCode
	}
	if err := s.setMembership(ctx, user.ID, models.RoleSubscriber, saved.ID); err != nil {
		return nil, err
	}

	s.log.Info("paystack checkout verified", slog.String("user_id", user.ID), slog.String("reference", ref))
	s.changed(ctx, models.EventActivated, saved)
	return saved, nil
}
