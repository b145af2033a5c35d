package models

import (
	"time"

	"github.com/magabrotheeeer/character-matters/internal/lib/billing"
)

// SubscriptionStatus: состояние подписки.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusExpired  SubscriptionStatus = "expired"
	StatusPending  SubscriptionStatus = "pending"
)

// Provider: платёжный провайдер, через который оформлена подписка.
type Provider string

const (
	ProviderStripe   Provider = "stripe"
	ProviderPaystack Provider = "paystack"
	ProviderManual   Provider = "manual"
)

// Subscription: единственная запись о подписке пользователя.
// Новая попытка оформления перезаписывает её, история хранится в SubscriptionEvent.
type Subscription struct {
	ID                   string             `json:"id"`
	UserID               string             `json:"userId"`
	Plan                 string             `json:"plan"`
	Status               SubscriptionStatus `json:"status"`
	BillingCycle         billing.Cycle      `json:"billingCycle"`
	Price                float64            `json:"price"`
	StartDate            time.Time          `json:"startDate"`
	EndDate              *time.Time         `json:"endDate,omitempty"`
	CurrentPeriodStart   *time.Time         `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd     *time.Time         `json:"currentPeriodEnd,omitempty"`
	CanceledAt           *time.Time         `json:"canceledAt,omitempty"`
	PaymentProvider      Provider           `json:"paymentProvider"`
	ProviderReference    string             `json:"providerReference,omitempty"`
	StripeSubscriptionID string             `json:"stripeSubscriptionId,omitempty"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// IsLive сообщает, блокирует ли подписка новое оформление (active или pending).
func (s *Subscription) IsLive() bool {
	return s != nil && (s.Status == StatusActive || s.Status == StatusPending)
}
