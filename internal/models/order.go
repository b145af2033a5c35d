package models

import "time"

// OrderStatus: состояние заказа.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
	OrderRefunded  OrderStatus = "refunded"
)

// Order: покупка одной книги одним пользователем.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId"`
	EbookID         string      `json:"ebookId"`
	Amount          float64     `json:"amount"`
	Status          OrderStatus `json:"status"`
	PaymentIntentID string      `json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}
