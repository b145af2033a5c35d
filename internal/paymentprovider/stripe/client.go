// Package stripe адаптирует stripe-go к провайдеро-независимым типам paymentprovider.
package stripe

import (
	"context"
	"errors"
	"net/http"
	"time"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider"
)

// Config: настройки клиента Stripe.
type Config struct {
	SecretKey     string
	WebhookSecret string
	// BackendURL переопределяет адрес API (для тестов и stripe-mock).
	BackendURL string
}

// Client: клиент Stripe, созданный явно из конфигурации.
type Client struct {
	api           *client.API
	webhookSecret string
}

// NewClient создаёт клиент. Запросы не повторяются и ограничены 10 секундами.
func NewClient(cfg Config) *Client {
	backendCfg := &stripeapi.BackendConfig{
		HTTPClient:        &http.Client{Timeout: 10 * time.Second},
		MaxNetworkRetries: stripeapi.Int64(0),
		LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelError},
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripeapi.String(cfg.BackendURL)
	}
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendCfg)
	backends := &stripeapi.Backends{API: backend, Connect: backend, Uploads: backend}

	return &Client{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
	}
}

// providerErr переводит ошибку Stripe в ProviderError с сообщением провайдера.
func providerErr(msg string, err error) error {
	var se *stripeapi.Error
	if errors.As(err, &se) && se.Msg != "" {
		return apperr.Wrap(apperr.CodeProvider, se.Msg, err)
	}
	return apperr.Wrap(apperr.CodeProvider, msg, err)
}

// CreateCustomer создаёт клиента Stripe и возвращает его идентификатор.
func (c *Client) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	params := &stripeapi.CustomerParams{
		Email: stripeapi.String(email),
		Name:  stripeapi.String(name),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", providerErr("stripe: create customer failed", err)
	}
	return cus.ID, nil
}

// CreateSubscription создаёт подписку в статусе default_incomplete.
func (c *Client) CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (*paymentprovider.Subscription, error) {
	params := &stripeapi.SubscriptionParams{
		Customer:        stripeapi.String(customerID),
		Items:           []*stripeapi.SubscriptionItemsParams{{Price: stripeapi.String(priceID)}},
		PaymentBehavior: stripeapi.String("default_incomplete"),
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, providerErr("stripe: create subscription failed", err)
	}
	return toSubscription(sub), nil
}

// GetSubscription возвращает подписку Stripe.
func (c *Client) GetSubscription(ctx context.Context, id string) (*paymentprovider.Subscription, error) {
	params := &stripeapi.SubscriptionParams{}
	params.Context = ctx
	sub, err := c.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, providerErr("stripe: retrieve subscription failed", err)
	}
	return toSubscription(sub), nil
}

// CancelSubscription немедленно отменяет подписку Stripe.
func (c *Client) CancelSubscription(ctx context.Context, id string) error {
	params := &stripeapi.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := c.api.Subscriptions.Cancel(id, params); err != nil {
		return providerErr("stripe: cancel subscription failed", err)
	}
	return nil
}

// CreateCheckoutSession создаёт hosted checkout в режиме subscription.
func (c *Client) CreateCheckoutSession(ctx context.Context, p paymentprovider.CheckoutParams) (*paymentprovider.CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{
		Customer: stripeapi.String(p.CustomerID),
		Mode:     stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription)),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{Price: stripeapi.String(p.PriceID), Quantity: stripeapi.Int64(1)},
		},
		SuccessURL: stripeapi.String(p.SuccessURL),
		CancelURL:  stripeapi.String(p.CancelURL),
		SubscriptionData: &stripeapi.CheckoutSessionSubscriptionDataParams{
			Metadata: p.Metadata,
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, providerErr("stripe: create checkout session failed", err)
	}
	return toSession(s), nil
}

// GetCheckoutSession возвращает сессию с раскрытой подпиской.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*paymentprovider.CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	s, err := c.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, providerErr("stripe: retrieve checkout session failed", err)
	}
	return toSession(s), nil
}

// CreatePaymentIntent создаёт разовый платёж на amount минимальных единиц.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*paymentprovider.PaymentIntent, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(amount),
		Currency: stripeapi.String(currency),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, providerErr("stripe: create payment intent failed", err)
	}
	return toPaymentIntent(pi), nil
}

func toSubscription(s *stripeapi.Subscription) *paymentprovider.Subscription {
	if s == nil {
		return nil
	}
	res := &paymentprovider.Subscription{
		ID:                 s.ID,
		Status:             string(s.Status),
		CurrentPeriodStart: unix(s.CurrentPeriodStart),
		CurrentPeriodEnd:   unix(s.CurrentPeriodEnd),
		Metadata:           s.Metadata,
	}
	if s.Customer != nil {
		res.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		price := s.Items.Data[0].Price
		res.UnitAmount = price.UnitAmount
		res.Currency = string(price.Currency)
		if price.Recurring != nil {
			res.Interval = string(price.Recurring.Interval)
		}
	}
	return res
}

func toSession(s *stripeapi.CheckoutSession) *paymentprovider.CheckoutSession {
	res := &paymentprovider.CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      s.Metadata,
	}
	if s.Subscription != nil {
		res.SubscriptionID = s.Subscription.ID
	}
	if s.Customer != nil {
		res.CustomerID = s.Customer.ID
	}
	return res
}

func toPaymentIntent(pi *stripeapi.PaymentIntent) *paymentprovider.PaymentIntent {
	return &paymentprovider.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}
}

func unix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
