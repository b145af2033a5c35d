// Package payment оформляет разовые платежи за книги через Stripe PaymentIntent
// и разбирает вебхук Stripe, направляя события подписок в оркестратор подписок.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

const currency = "usd"

type Repository interface {
	GetEbook(ctx context.Context, id string) (*models.Ebook, error)
	FindCompletedOrder(ctx context.Context, userID, ebookID string) (*models.Order, error)
	CreateOrder(ctx context.Context, o models.Order) (*models.Order, error)
	SetOrderStatusByPaymentIntent(ctx context.Context, intentID string, status models.OrderStatus) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	AddPurchasedEbook(ctx context.Context, userID, ebookID string) error
	IncrementEbookSales(ctx context.Context, id string) error
}

// StripeClient: операции Stripe, нужные платежам.
type StripeClient interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*paymentprovider.PaymentIntent, error)
	ParseWebhook(payload []byte, signature string) (*paymentprovider.Event, error)
}

// SubscriptionEvents принимает события вебхука, относящиеся к подпискам.
type SubscriptionEvents interface {
	HandleStripeEvent(ctx context.Context, event *paymentprovider.Event) error
}

type PaymentService struct {
	repo          Repository
	stripe        StripeClient
	subscriptions SubscriptionEvents
	log           *slog.Logger
}

func New(log *slog.Logger, repo Repository, stripe StripeClient, subscriptions SubscriptionEvents) *PaymentService {
	return &PaymentService{
		repo:          repo,
		stripe:        stripe,
		subscriptions: subscriptions,
		log:           log,
	}
}

// Intent: данные для подтверждения платежа на клиенте.
type Intent struct {
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
	OrderID      string  `json:"orderId"`
}

func (s *PaymentService) requireStripe() error {
	if s.stripe == nil {
		return apperr.New(apperr.CodeConfig, "Stripe is not configured")
	}
	return nil
}

// CreatePaymentIntent создаёт PaymentIntent на цену книги и pending-заказ с его id.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, user *models.User, ebookID string) (*Intent, error) {
	if user == nil {
		return nil, apperr.Unauthorized("Not authorized")
	}
	if ebookID == "" {
		return nil, apperr.InvalidInput("eBook ID is required")
	}
	if err := s.requireStripe(); err != nil {
		return nil, err
	}

	ebook, err := s.repo.GetEbook(ctx, ebookID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("eBook not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load ebook", err)
	}
	_, err = s.repo.FindCompletedOrder(ctx, user.ID, ebook.ID)
	if err == nil {
		return nil, apperr.Conflict("EBook already purchased")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load orders", err)
	}

	pi, err := s.stripe.CreatePaymentIntent(ctx, int64(math.Round(ebook.Price*100)), currency, map[string]string{
		"ebookId": ebook.ID,
		"userId":  user.ID,
	})
	if err != nil {
		return nil, err
	}
	order, err := s.repo.CreateOrder(ctx, models.Order{
		UserID:          user.ID,
		EbookID:         ebook.ID,
		Amount:          ebook.Price,
		Status:          models.OrderPending,
		PaymentIntentID: pi.ID,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to create order", err)
	}

	s.log.Info("payment intent created",
		slog.String("user_id", user.ID), slog.String("ebook_id", ebook.ID), slog.String("payment_intent", pi.ID))
	return &Intent{ClientSecret: pi.ClientSecret, Amount: ebook.Price, OrderID: order.ID}, nil
}

// History возвращает заказы пользователя, новые первыми.
func (s *PaymentService) History(ctx context.Context, user *models.User) ([]models.Order, error) {
	if user == nil {
		return nil, apperr.Unauthorized("Not authorized")
	}
	orders, err := s.repo.ListOrdersByUser(ctx, user.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load payment history", err)
	}
	return orders, nil
}
