package models

import "time"

// EventType: тип события жизненного цикла подписки.
type EventType string

const (
	EventPending       EventType = "pending"
	EventActivated     EventType = "activated"
	EventCanceled      EventType = "canceled"
	EventExpired       EventType = "expired"
	EventPaymentFailed EventType = "payment_failed"
)

// RoutingKey возвращает ключ маршрутизации события в RabbitMQ.
func (t EventType) RoutingKey() string {
	return "subscription." + string(t)
}

// SubscriptionEvent: запись журнала событий подписки.
type SubscriptionEvent struct {
	ID             int64              `json:"id"`
	UserID         string             `json:"userId"`
	SubscriptionID string             `json:"subscriptionId,omitempty"`
	Type           EventType          `json:"type"`
	Status         SubscriptionStatus `json:"status"`
	Provider       Provider           `json:"provider"`
	Reference      string             `json:"reference,omitempty"`
	OccurredAt     time.Time          `json:"occurredAt"`
}
