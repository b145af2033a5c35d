// Package paymentprovider содержит общие для платёжных провайдеров типы.
// Адаптеры конкретных провайдеров лежат в подпакетах stripe и paystack.
package paymentprovider

import "time"

// Subscription: подписка на стороне провайдера.
type Subscription struct {
	ID                 string
	CustomerID         string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	// UnitAmount: цена в минимальных единицах валюты.
	UnitAmount int64
	Currency   string
	// Interval: интервал списания провайдера: month или year.
	Interval string
	Metadata map[string]string
}

// CheckoutParams: параметры создания hosted checkout сессии.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession: hosted checkout сессия.
type CheckoutSession struct {
	ID             string
	URL            string
	PaymentStatus  string
	SubscriptionID string
	CustomerID     string
	Metadata       map[string]string
}

// Paid сообщает, оплачена ли сессия.
func (s *CheckoutSession) Paid() bool {
	return s != nil && s.PaymentStatus == "paid"
}

// PaymentIntent: разовый платёж.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
	Metadata     map[string]string
}

// Invoice: счёт по подписке.
type Invoice struct {
	ID             string
	SubscriptionID string
	CustomerID     string
}

// InitializeParams: параметры инициализации транзакции.
type InitializeParams struct {
	Email string
	// Amount: сумма в минимальных единицах валюты.
	Amount      int64
	Reference   string
	CallbackURL string
	Currency    string
	Metadata    map[string]string
}

// Transaction: инициализированная транзакция, ожидающая оплаты.
type Transaction struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// Verification: результат проверки транзакции.
type Verification struct {
	Status    string
	Reference string
	// Amount: сумма в минимальных единицах валюты.
	Amount       int64
	Currency     string
	PaidAt       *time.Time
	CustomerCode string
	Metadata     map[string]string
}

// Successful сообщает, прошла ли оплата.
func (v *Verification) Successful() bool {
	return v != nil && v.Status == "success"
}

// Типы событий вебхука Stripe, которые обрабатывает платформа.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventSubscriptionUpdated    = "customer.subscription.updated"
	EventSubscriptionDeleted    = "customer.subscription.deleted"
	EventInvoicePaymentFailed   = "invoice.payment_failed"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
)

// Event: проверенное событие вебхука. Заполнен объект, соответствующий Type.
type Event struct {
	ID            string
	Type          string
	Session       *CheckoutSession
	Subscription  *Subscription
	Invoice       *Invoice
	PaymentIntent *PaymentIntent
}
