package subscription

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetSubscriptionByUser(ctx context.Context, userID string) (*models.Subscription, error) {
	args := m.Called(ctx, userID)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func (m *RepoMock) GetSubscriptionByStripeID(ctx context.Context, id string) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func (m *RepoMock) CreateSubscriptionIfNotLive(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	args := m.Called(ctx, sub)
	saved, _ := args.Get(0).(*models.Subscription)
	return saved, args.Error(1)
}

func (m *RepoMock) UpsertSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	args := m.Called(ctx, sub)
	saved, _ := args.Get(0).(*models.Subscription)
	return saved, args.Error(1)
}

func (m *RepoMock) CancelSubscription(ctx context.Context, userID string, at time.Time) (*models.Subscription, error) {
	args := m.Called(ctx, userID, at)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func (m *RepoMock) UpdateSubscriptionPeriod(ctx context.Context, id string, start, end *time.Time) (*models.Subscription, error) {
	args := m.Called(ctx, id, start, end)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func (m *RepoMock) ExpireStalePending(ctx context.Context, before, now time.Time) ([]models.Subscription, error) {
	args := m.Called(ctx, before, now)
	subs, _ := args.Get(0).([]models.Subscription)
	return subs, args.Error(1)
}

func (m *RepoMock) ExpireLapsed(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	args := m.Called(ctx, now)
	subs, _ := args.Get(0).([]models.Subscription)
	return subs, args.Error(1)
}

func (m *RepoMock) ListSubscriptionEvents(ctx context.Context, userID string, limit int) ([]models.SubscriptionEvent, error) {
	args := m.Called(ctx, userID, limit)
	events, _ := args.Get(0).([]models.SubscriptionEvent)
	return events, args.Error(1)
}

type UsersMock struct{ mock.Mock }

func (m *UsersMock) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *UsersMock) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	return m.Called(ctx, userID, customerID).Error(0)
}

func (m *UsersMock) SetPaystackCustomerCode(ctx context.Context, userID, code string) error {
	return m.Called(ctx, userID, code).Error(0)
}

func (m *UsersMock) SetMembership(ctx context.Context, userID string, role models.Role, subscriptionID string) error {
	return m.Called(ctx, userID, role, subscriptionID).Error(0)
}

type StripeMock struct{ mock.Mock }

func (m *StripeMock) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	args := m.Called(ctx, email, name, metadata)
	return args.String(0), args.Error(1)
}

func (m *StripeMock) CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (*paymentprovider.Subscription, error) {
	args := m.Called(ctx, customerID, priceID, metadata)
	sub, _ := args.Get(0).(*paymentprovider.Subscription)
	return sub, args.Error(1)
}

func (m *StripeMock) GetSubscription(ctx context.Context, id string) (*paymentprovider.Subscription, error) {
	args := m.Called(ctx, id)
	sub, _ := args.Get(0).(*paymentprovider.Subscription)
	return sub, args.Error(1)
}

func (m *StripeMock) CancelSubscription(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *StripeMock) CreateCheckoutSession(ctx context.Context, p paymentprovider.CheckoutParams) (*paymentprovider.CheckoutSession, error) {
	args := m.Called(ctx, p)
	s, _ := args.Get(0).(*paymentprovider.CheckoutSession)
	return s, args.Error(1)
}

func (m *StripeMock) GetCheckoutSession(ctx context.Context, id string) (*paymentprovider.CheckoutSession, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*paymentprovider.CheckoutSession)
	return s, args.Error(1)
}

type PaystackMock struct{ mock.Mock }

func (m *PaystackMock) Initialize(ctx context.Context, p paymentprovider.InitializeParams) (*paymentprovider.Transaction, error) {
	args := m.Called(ctx, p)
	tx, _ := args.Get(0).(*paymentprovider.Transaction)
	return tx, args.Error(1)
}

func (m *PaystackMock) Verify(ctx context.Context, reference string) (*paymentprovider.Verification, error) {
	args := m.Called(ctx, reference)
	v, _ := args.Get(0).(*paymentprovider.Verification)
	return v, args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	return m.Called(ctx, routingKey, event).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var fixedNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	repo     *RepoMock
	users    *UsersMock
	stripe   *StripeMock
	paystack *PaystackMock
	cache    *CacheMock
	events   *PublisherMock
}

// newFixture собирает сервис на моках. Сброс кеша и публикация событий разрешены всегда.
func newFixture() *fixture {
	f := &fixture{
		repo:     new(RepoMock),
		users:    new(UsersMock),
		stripe:   new(StripeMock),
		paystack: new(PaystackMock),
		cache:    new(CacheMock),
		events:   new(PublisherMock),
	}
	f.cache.On("Invalidate", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.svc = New(newNoopLogger(), Deps{
		Subscriptions: f.repo,
		Users:         f.users,
		Stripe:        f.stripe,
		Paystack:      f.paystack,
		Cache:         f.cache,
		Events:        f.events,
		Now:           func() time.Time { return fixedNow },
	}, Config{FrontendURL: "https://app.example.com/"})
	return f
}

func (f *fixture) assertExpectations(t mock.TestingT) {
	f.repo.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.stripe.AssertExpectations(t)
	f.paystack.AssertExpectations(t)
}
