// Package subscription проводит пользователя от отсутствия подписки до активной
// через Stripe (hosted checkout и вебхук) или Paystack (initialize и verify),
// поддерживает users.role и users.subscription_id согласованными с состоянием
// провайдера и откатывает их при отмене.
package subscription

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/character-matters/internal/cache"
	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

// Repository: хранилище подписок и их журнала.
type Repository interface {
	GetSubscriptionByUser(ctx context.Context, userID string) (*models.Subscription, error)
	GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	CreateSubscriptionIfNotLive(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	CancelSubscription(ctx context.Context, userID string, at time.Time) (*models.Subscription, error)
	UpdateSubscriptionPeriod(ctx context.Context, id string, start, end *time.Time) (*models.Subscription, error)
	ExpireStalePending(ctx context.Context, before, now time.Time) ([]models.Subscription, error)
	ExpireLapsed(ctx context.Context, now time.Time) ([]models.Subscription, error)
	ListSubscriptionEvents(ctx context.Context, userID string, limit int) ([]models.SubscriptionEvent, error)
}

// UserRepository: операции над пользователем, которые выполняет оркестратор.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error
	SetPaystackCustomerCode(ctx context.Context, userID, code string) error
	SetMembership(ctx context.Context, userID string, role models.Role, subscriptionID string) error
}

// StripeClient: операции Stripe, нужные оркестратору.
type StripeClient interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error)
	CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (*paymentprovider.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*paymentprovider.Subscription, error)
	CancelSubscription(ctx context.Context, id string) error
	CreateCheckoutSession(ctx context.Context, p paymentprovider.CheckoutParams) (*paymentprovider.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*paymentprovider.CheckoutSession, error)
}

// PaystackClient: операции Paystack, нужные оркестратору.
type PaystackClient interface {
	Initialize(ctx context.Context, p paymentprovider.InitializeParams) (*paymentprovider.Transaction, error)
	Verify(ctx context.Context, reference string) (*paymentprovider.Verification, error)
}

// Cache: кеш текущей подписки пользователя.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// EventPublisher публикует события жизненного цикла подписки.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Config: параметры оркестратора.
type Config struct {
	FrontendURL      string
	PaystackCurrency string
	HistoryLimit     int
}

// Deps: внешние зависимости оркестратора. Stripe может быть nil, если он не настроен.
type Deps struct {
	Subscriptions Repository
	Users         UserRepository
	Stripe        StripeClient
	Paystack      PaystackClient
	Cache         Cache
	Events        EventPublisher
	Now           func() time.Time
}

// Service: оркестратор подписок.
type Service struct {
	log      *slog.Logger
	subs     Repository
	users    UserRepository
	stripe   StripeClient
	paystack PaystackClient
	cache    Cache
	events   EventPublisher
	now      func() time.Time
	cfg      Config
}

// New создаёт оркестратор.
func New(log *slog.Logger, deps Deps, cfg Config) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.PaystackCurrency == "" {
		cfg.PaystackCurrency = "NGN"
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &Service{
		log:      log,
		subs:     deps.Subscriptions,
		users:    deps.Users,
		stripe:   deps.Stripe,
		paystack: deps.Paystack,
		cache:    deps.Cache,
		events:   deps.Events,
		now:      deps.Now,
		cfg:      cfg,
	}
}

var (
	errUnauthorized  = apperr.Unauthorized("Not authorized")
	errNoLive        = apperr.NotFound("No active subscription found")
	errAlreadyExists = apperr.Conflict("User already has an active subscription")
)

func (s *Service) defaultSuccessURL() string {
	return s.cfg.FrontendURL + "/subscribe?session_id={CHECKOUT_SESSION_ID}"
}

func (s *Service) defaultCancelURL() string {
	return s.cfg.FrontendURL + "/subscribe?cancelled=true"
}

func (s *Service) defaultCallbackURL() string {
	return s.cfg.FrontendURL + "/subscribe"
}

// current возвращает подписку пользователя или nil, если записи нет.
func (s *Service) current(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.subs.GetSubscriptionByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load subscription", err)
	}
	return sub, nil
}

// ensureNoLive возвращает Conflict, если у пользователя уже есть active или pending подписка.
func (s *Service) ensureNoLive(ctx context.Context, userID string) error {
	sub, err := s.current(ctx, userID)
	if err != nil {
		return err
	}
	if sub.IsLive() {
		return errAlreadyExists
	}
	return nil
}

func (s *Service) requireStripe() error {
	if s.stripe == nil {
		return apperr.New(apperr.CodeConfig, "Stripe is not configured")
	}
	return nil
}

// ensureStripeCustomer создаёт клиента Stripe и сохраняет его id, если его ещё нет.
func (s *Service) ensureStripeCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}
	id, err := s.stripe.CreateCustomer(ctx, user.Email, user.Name, map[string]string{"userId": user.ID})
	if err != nil {
		return "", err
	}
	if err := s.users.SetStripeCustomerID(ctx, user.ID, id); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "Failed to save customer", err)
	}
	user.StripeCustomerID = id
	return id, nil
}

// insertIfNotLive выполняет атомарную условную запись и переводит проигранную гонку в Conflict.
func (s *Service) insertIfNotLive(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	saved, err := s.subs.CreateSubscriptionIfNotLive(ctx, sub)
	if errors.Is(err, repository.ErrConflict) {
		return nil, errAlreadyExists
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to save subscription", err)
	}
	return saved, nil
}

func (s *Service) upsert(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	saved, err := s.subs.UpsertSubscription(ctx, sub)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to save subscription", err)
	}
	return saved, nil
}

func (s *Service) setMembership(ctx context.Context, userID string, role models.Role, subscriptionID string) error {
	if err := s.users.SetMembership(ctx, userID, role, subscriptionID); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "Failed to update user", err)
	}
	return nil
}

// changed сбрасывает кеш и публикует событие. Ошибки только логируются.
func (s *Service) changed(ctx context.Context, typ models.EventType, sub *models.Subscription) {
	s.invalidate(ctx, sub.UserID)
	if s.events == nil {
		return
	}
	ev := models.SubscriptionEvent{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		Type:           typ,
		Status:         sub.Status,
		Provider:       sub.PaymentProvider,
		Reference:      sub.ProviderReference,
		OccurredAt:     s.now().UTC(),
	}
	if err := s.events.Publish(ctx, typ.RoutingKey(), ev); err != nil {
		s.log.Error("failed to publish subscription event",
			slog.String("user_id", sub.UserID), slog.String("event", string(typ)), sl.Err(err))
	}
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.SubscriptionKey(userID)); err != nil {
		s.log.Warn("failed to invalidate subscription cache", slog.String("user_id", userID), sl.Err(err))
	}
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
