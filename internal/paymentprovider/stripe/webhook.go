package stripe

import (
	"encoding/json"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider"
)

// ParseWebhook проверяет подпись Stripe-Signature и разбирает объект события.
// Для неизвестных типов возвращается событие без объекта.
func (c *Client) ParseWebhook(payload []byte, signature string) (*paymentprovider.Event, error) {
	if c.webhookSecret == "" {
		return nil, apperr.New(apperr.CodeConfig, "Stripe webhook secret is not configured")
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidInput, "Webhook signature verification failed", err)
	}

	res := &paymentprovider.Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return res, nil
	}
	raw := ev.Data.Raw

	switch res.Type {
	case paymentprovider.EventCheckoutCompleted:
		var s stripeapi.CheckoutSession
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalidObject(err)
		}
		res.Session = toSession(&s)
	case paymentprovider.EventSubscriptionUpdated, paymentprovider.EventSubscriptionDeleted:
		var s stripeapi.Subscription
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalidObject(err)
		}
		res.Subscription = toSubscription(&s)
	case paymentprovider.EventInvoicePaymentFailed:
		var inv stripeapi.Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, invalidObject(err)
		}
		res.Invoice = &paymentprovider.Invoice{ID: inv.ID}
		if inv.Subscription != nil {
			res.Invoice.SubscriptionID = inv.Subscription.ID
		}
		if inv.Customer != nil {
			res.Invoice.CustomerID = inv.Customer.ID
		}
	case paymentprovider.EventPaymentIntentSucceeded, paymentprovider.EventPaymentIntentFailed:
		var pi stripeapi.PaymentIntent
		if err := json.Unmarshal(raw, &pi); err != nil {
			return nil, invalidObject(err)
		}
		res.PaymentIntent = toPaymentIntent(&pi)
	}
	return res, nil
}

func invalidObject(err error) error {
	return apperr.Wrap(apperr.CodeInvalidInput, "Malformed webhook object", err)
}
