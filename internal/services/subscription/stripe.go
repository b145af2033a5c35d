package subscription

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/lib/billing"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider"
)

// CreateParams: параметры прямого оформления подписки Stripe.
type CreateParams struct {
	PlanID       string
	PriceID      string
	BillingCycle string
}

// StripeCheckoutParams: параметры запуска hosted checkout.
type StripeCheckoutParams struct {
	PlanID       string
	PriceID      string
	BillingCycle string
	SuccessURL   string
	CancelURL    string
}

// StripeCheckout: ссылка на оплату и идентификатор сессии.
type StripeCheckout struct {
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

func checkoutMetadata(planID, cycle, userID string) map[string]string {
	return map[string]string{
		"planId":       planID,
		"billingCycle": cycle,
		"userId":       userID,
	}
}

// Create оформляет подписку Stripe напрямую, без checkout, и сразу активирует её.
func (s *Service) Create(ctx context.Context, user *models.User, p CreateParams) (*models.Subscription, error) {
	if user == nil {
		return nil, errUnauthorized
	}
	if p.PlanID == "" || p.PriceID == "" {
		return nil, apperr.InvalidInput("Plan ID and price ID are required")
	}
	if err := s.ensureNoLive(ctx, user.ID); err != nil {
		return nil, err
	}
	if err := s.requireStripe(); err != nil {
		return nil, err
	}

	customerID, err := s.ensureStripeCustomer(ctx, user)
	if err != nil {
		return nil, err
	}
	cycle := billing.ParseCycle(p.BillingCycle)
	psub, err := s.stripe.CreateSubscription(ctx, customerID, p.PriceID,
		checkoutMetadata(p.PlanID, string(cycle), user.ID))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sub := models.Subscription{
		UserID:               user.ID,
		Plan:                 p.PlanID,
		Status:               models.StatusActive,
		BillingCycle:         cycle,
		Price:                float64(psub.UnitAmount) / 100,
		StartDate:            now,
		CurrentPeriodStart:   timeOrNil(psub.CurrentPeriodStart),
		CurrentPeriodEnd:     timeOrNil(psub.CurrentPeriodEnd),
		PaymentProvider:      models.ProviderStripe,
		ProviderReference:    psub.ID,
		StripeSubscriptionID: psub.ID,
	}
	saved, err := s.insertIfNotLive(ctx, sub)
	if err != nil {
		if apperr.Is(err, apperr.CodeConflict) {
			s.releaseOrphan(ctx, psub.ID)
		}
		return nil, err
	}
	if err := s.setMembership(ctx, user.ID, models.RoleSubscriber, saved.ID); err != nil {
		return nil, err
	}

	s.log.Info("subscription created", slog.String("user_id", user.ID), slog.String("plan", p.PlanID))
	s.changed(ctx, models.EventActivated, saved)
	return saved, nil
}

// releaseOrphan отменяет подписку провайдера, созданную запросом, проигравшим гонку.
func (s *Service) releaseOrphan(ctx context.Context, stripeSubscriptionID string) {
	if err := s.stripe.CancelSubscription(ctx, stripeSubscriptionID); err != nil {
		s.log.Error("failed to cancel orphaned stripe subscription",
			slog.String("stripe_subscription_id", stripeSubscriptionID), sl.Err(err))
	}
}

// StartStripeCheckout создаёт hosted checkout и записывает pending-подписку.
// Роль пользователя не меняется до FinalizeStripeCheckout.
func (s *Service) StartStripeCheckout(ctx context.Context, user *models.User, p StripeCheckoutParams) (*StripeCheckout, error) {
	if user == nil {
		return nil, errUnauthorized
	}
	if p.PlanID == "" || p.PriceID == "" {
		return nil, apperr.InvalidInput("Plan ID and price ID are required")
	}
	if err := s.ensureNoLive(ctx, user.ID); err != nil {
		return nil, err
	}
	if err := s.requireStripe(); err != nil {
		return nil, err
	}

	customerID, err := s.ensureStripeCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	successURL := p.SuccessURL
	if successURL == "" {
		successURL = s.defaultSuccessURL()
	}
	cancelURL := p.CancelURL
	if cancelURL == "" {
		cancelURL = s.defaultCancelURL()
	}
	cycle := billing.ParseCycle(p.BillingCycle)
	session, err := s.stripe.CreateCheckoutSession(ctx, paymentprovider.CheckoutParams{
		CustomerID: customerID,
		PriceID:    p.PriceID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Metadata:   checkoutMetadata(p.PlanID, string(cycle), user.ID),
	})
	if err != nil {
		return nil, err
	}

	saved, err := s.insertIfNotLive(ctx, models.Subscription{
		UserID:            user.ID,
		Plan:              p.PlanID,
		Status:            models.StatusPending,
		BillingCycle:      cycle,
		StartDate:         s.now().UTC(),
		PaymentProvider:   models.ProviderStripe,
		ProviderReference: session.ID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stripe checkout started", slog.String("user_id", user.ID), slog.String("session_id", session.ID))
	s.changed(ctx, models.EventPending, saved)
	return &StripeCheckout{CheckoutURL: session.URL, SessionID: session.ID}, nil
}

// FinalizeStripeCheckout активирует подписку после оплаты сессии.
func (s *Service) FinalizeStripeCheckout(ctx context.Context, user *models.User, sessionID string) (*models.Subscription, error) {
	if user == nil {
		return nil, errUnauthorized
	}
	if sessionID == "" {
		return nil, apperr.InvalidInput("Session ID is required")
	}
	if err := s.requireStripe(); err != nil {
		return nil, err
	}

	session, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if owner := session.Metadata["userId"]; owner != "" && owner != user.ID {
		return nil, apperr.Forbidden("Checkout session belongs to another user")
	}
	if session.CustomerID != "" && user.StripeCustomerID != "" && session.CustomerID != user.StripeCustomerID {
		return nil, apperr.Forbidden("Checkout session belongs to another customer")
	}
	if !session.Paid() {
		return nil, apperr.New(apperr.CodePaymentNotCompleted, "Payment not completed")
	}
	if session.SubscriptionID == "" {
		return nil, apperr.InvalidInput("No subscription found for this checkout session")
	}
	psub, err := s.stripe.GetSubscription(ctx, session.SubscriptionID)
	if err != nil {
		return nil, err
	}

	existing, err := s.current(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	plan := session.Metadata["planId"]
	reference := session.ID
	if existing != nil {
		if plan == "" {
			plan = existing.Plan
		}
		if existing.ProviderReference != "" {
			reference = existing.ProviderReference
		}
	}

	now := s.now().UTC()
	start := now
	if !psub.CurrentPeriodStart.IsZero() {
		start = psub.CurrentPeriodStart
	}
	saved, err := s.upsert(ctx, models.Subscription{
		UserID:               user.ID,
		Plan:                 plan,
		Status:               models.StatusActive,
		BillingCycle:         billing.FromInterval(psub.Interval),
		Price:                float64(psub.UnitAmount) / 100,
		StartDate:            start,
		CurrentPeriodStart:   timeOrNil(psub.CurrentPeriodStart),
		CurrentPeriodEnd:     timeOrNil(psub.CurrentPeriodEnd),
		PaymentProvider:      models.ProviderStripe,
		ProviderReference:    reference,
		StripeSubscriptionID: psub.ID,
	})
	if err != nil {
		return nil, err
	}

	if session.CustomerID != "" && user.StripeCustomerID == "" {
		if err := s.users.SetStripeCustomerID(ctx, user.ID, session.CustomerID); err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "Failed to save customer", err)
		}
		user.StripeCustomerID = session.CustomerID
	}
	if err := s.setMembership(ctx, user.ID, models.RoleSubscriber, saved.ID); err != nil {
		return nil, err
	}

	s.log.Info("stripe checkout finalized", slog.String("user_id", user.ID), slog.String("session_id", sessionID))
	s.changed(ctx, models.EventActivated, saved)
	return saved, nil
}
