// Package models содержит доменные структуры платформы: пользователей,
// подписки, журнал событий подписок, контент и заказы.
package models

import "time"

// Role: роль пользователя.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSubscriber Role = "subscriber"
	RoleFree       Role = "free-user"
)

// User представляет зарегистрированного пользователя.
// Пустые строковые поля соответствуют NULL в хранилище.
type User struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	PasswordHash         string    `json:"-"`
	Name                 string    `json:"name"`
	Role                 Role      `json:"role"`
	Avatar               string    `json:"avatar,omitempty"`
	SubscriptionID       string    `json:"subscriptionId,omitempty"`
	StripeCustomerID     string    `json:"stripeCustomerId,omitempty"`
	PaystackCustomerCode string    `json:"paystackCustomerCode,omitempty"`
	PurchasedEbooks      []string  `json:"purchasedEbooks"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasPremiumAccess сообщает, открыт ли пользователю премиальный контент.
func (u *User) HasPremiumAccess() bool {
	return u != nil && (u.Role == RoleSubscriber || u.Role == RoleAdmin)
}

// ProfileUpdate: изменяемые поля профиля. nil означает «не менять».
type ProfileUpdate struct {
	Name   *string
	Avatar *string
	Email  *string
	Role   *Role
}
