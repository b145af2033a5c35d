package subscription

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/lib/billing"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

func testUser() *models.User {
	return &models.User{
		ID:               "u1",
		Email:            "ann@example.com",
		Name:             "Ann",
		Role:             models.RoleFree,
		StripeCustomerID: "cus_1",
	}
}

func liveSub(status models.SubscriptionStatus) *models.Subscription {
	return &models.Subscription{
		ID:                   "s1",
		UserID:               "u1",
		Plan:                 "gold",
		Status:               status,
		BillingCycle:         billing.Monthly,
		PaymentProvider:      models.ProviderStripe,
		ProviderReference:    "cs_1",
		StripeSubscriptionID: "sub_1",
	}
}

func TestService_Get(t *testing.T) {
	tests := []struct {
		name       string
		user       *models.User
		setupMocks func(f *fixture)
		wantStatus models.SubscriptionStatus
		wantCode   apperr.Code
	}{
		{
			name:     "no user",
			user:     nil,
			wantCode: apperr.CodeUnauthorized,
		},
		{
			name: "no subscription row",
			user: testUser(),
			setupMocks: func(f *fixture) {
				f.cache.On("Get", mock.Anything, "subscription:u1", mock.Anything).Return(false, nil).Once()
				f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(nil, repository.ErrNotFound).Once()
			},
			wantCode: apperr.CodeNotFound,
		},
		{
			name: "canceled row is not returned",
			user: testUser(),
			setupMocks: func(f *fixture) {
				f.cache.On("Get", mock.Anything, "subscription:u1", mock.Anything).Return(false, nil).Once()
				f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(liveSub(models.StatusCanceled), nil).Once()
			},
			wantCode: apperr.CodeNotFound,
		},
		{
			name: "cache miss fills cache",
			user: testUser(),
			setupMocks: func(f *fixture) {
				f.cache.On("Get", mock.Anything, "subscription:u1", mock.Anything).Return(false, nil).Once()
				f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(liveSub(models.StatusActive), nil).Once()
				f.cache.On("Set", mock.Anything, "subscription:u1", mock.Anything, time.Duration(0)).Return(nil).Once()
			},
			wantStatus: models.StatusActive,
		},
		{
			name: "pending row is cached briefly",
			user: testUser(),
			setupMocks: func(f *fixture) {
				f.cache.On("Get", mock.Anything, "subscription:u1", mock.Anything).Return(false, nil).Once()
				f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(liveSub(models.StatusPending), nil).Once()
				f.cache.On("Set", mock.Anything, "subscription:u1", mock.Anything, pendingCacheTTL).Return(nil).Once()
			},
			wantStatus: models.StatusPending,
		},
		{
			name: "cache hit skips repository",
			user: testUser(),
			setupMocks: func(f *fixture) {
				f.cache.On("Get", mock.Anything, "subscription:u1", mock.Anything).
					Run(func(args mock.Arguments) {
						*args.Get(2).(*models.Subscription) = *liveSub(models.StatusPending)
					}).
					Return(true, nil).Once()
			},
			wantStatus: models.StatusPending,
		},
		{
			name: "cache failure falls back to repository",
			user: testUser(),
			setupMocks: func(f *fixture) {
				f.cache.On("Get", mock.Anything, "subscription:u1", mock.Anything).Return(false, errors.New("redis down")).Once()
				f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(liveSub(models.StatusActive), nil).Once()
				f.cache.On("Set", mock.Anything, "subscription:u1", mock.Anything, time.Duration(0)).Return(errors.New("redis down")).Once()
			},
			wantStatus: models.StatusActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setupMocks != nil {
				tt.setupMocks(f)
			}

			sub, err := f.svc.Get(context.Background(), tt.user)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperr.CodeOf(err))
				assert.Nil(t, sub)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, sub.Status)
			}
			f.assertExpectations(t)
			f.cache.AssertExpectations(t)
		})
	}
}

func TestService_StartOperationsConflict(t *testing.T) {
	ops := map[string]func(s *Service, u *models.User) error{
		"create": func(s *Service, u *models.User) error {
			_, err := s.Create(context.Background(), u, CreateParams{PlanID: "gold", PriceID: "price_1"})
			return err
		},
		"stripe checkout": func(s *Service, u *models.User) error {
			_, err := s.StartStripeCheckout(context.Background(), u, StripeCheckoutParams{PlanID: "gold", PriceID: "price_1"})
			return err
		},
		"paystack checkout": func(s *Service, u *models.User) error {
			_, err := s.StartPaystackCheckout(context.Background(), u, PaystackCheckoutParams{PlanID: "gold", Amount: 5000})
			return err
		},
	}

	for name, op := range ops {
		for _, status := range []models.SubscriptionStatus{models.StatusActive, models.StatusPending} {
			t.Run(fmt.Sprintf("%s with %s", name, status), func(t *testing.T) {
				f := newFixture()
				f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(liveSub(status), nil).Once()

				err := op(f.svc, testUser())

				require.Error(t, err)
				assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
				f.assertExpectations(t)
				assert.Empty(t, f.stripe.Calls)
				assert.Empty(t, f.paystack.Calls)
				f.repo.AssertNotCalled(t, "CreateSubscriptionIfNotLive", mock.Anything, mock.Anything)
				f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
			})
		}
	}
}

func TestService_StartOperationsValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, testUser(), CreateParams{PlanID: "gold"})
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = f.svc.StartStripeCheckout(ctx, testUser(), StripeCheckoutParams{PriceID: "price_1"})
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = f.svc.StartPaystackCheckout(ctx, testUser(), PaystackCheckoutParams{PlanID: "gold", Amount: 0})
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = f.svc.Create(ctx, nil, CreateParams{PlanID: "gold", PriceID: "price_1"})
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	assert.Empty(t, f.repo.Calls)
	assert.Empty(t, f.stripe.Calls)
}

func TestService_StripeCheckoutLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := testUser()
	pending := liveSub(models.StatusPending)
	pending.StripeSubscriptionID = ""

	f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(nil, repository.ErrNotFound).Once()
	f.stripe.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p paymentprovider.CheckoutParams) bool {
		return p.CustomerID == "cus_1" &&
			p.PriceID == "price_1" &&
			p.SuccessURL == "https://app.example.com/subscribe?session_id={CHECKOUT_SESSION_ID}" &&
			p.CancelURL == "https://app.example.com/subscribe?cancelled=true" &&
			p.Metadata["userId"] == "u1" && p.Metadata["planId"] == "gold" && p.Metadata["billingCycle"] == "yearly"
	})).Return(&paymentprovider.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, nil).Once()
	f.repo.On("CreateSubscriptionIfNotLive", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
		return s.Status == models.StatusPending &&
			s.ProviderReference == "cs_1" &&
			s.PaymentProvider == models.ProviderStripe &&
			s.StartDate.Equal(fixedNow)
	})).Return(pending, nil).Once()

	checkout, err := f.svc.StartStripeCheckout(ctx, user, StripeCheckoutParams{PlanID: "gold", PriceID: "price_1", BillingCycle: "yearly"})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", checkout.SessionID)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", checkout.CheckoutURL)
	f.users.AssertNotCalled(t, "SetMembership", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.events.AssertCalled(t, "Publish", mock.Anything, "subscription.pending", mock.Anything)

	periodEnd := fixedNow.AddDate(1, 0, 0)
	active := liveSub(models.StatusActive)
	f.stripe.On("GetCheckoutSession", mock.Anything, "cs_1").Return(&paymentprovider.CheckoutSession{
		ID:             "cs_1",
		PaymentStatus:  "paid",
		SubscriptionID: "sub_1",
		CustomerID:     "cus_1",
		Metadata:       map[string]string{"planId": "gold", "userId": "u1"},
	}, nil).Once()
	f.stripe.On("GetSubscription", mock.Anything, "sub_1").Return(&paymentprovider.Subscription{
		ID:                 "sub_1",
		UnitAmount:         1999,
		Interval:           "year",
		CurrentPeriodStart: fixedNow,
		CurrentPeriodEnd:   periodEnd,
	}, nil).Once()
	f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(pending, nil).Once()
	f.repo.On("UpsertSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
		return s.Status == models.StatusActive &&
			s.ProviderReference == "cs_1" &&
			s.StripeSubscriptionID == "sub_1" &&
			s.BillingCycle == billing.Yearly &&
			s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Equal(periodEnd)
	})).Return(active, nil).Once()
	f.users.On("SetMembership", mock.Anything, "u1", models.RoleSubscriber, "s1").Return(nil).Once()

	sub, err := f.svc.FinalizeStripeCheckout(ctx, user, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, sub.Status)
	f.events.AssertCalled(t, "Publish", mock.Anything, "subscription.activated", mock.Anything)
	f.users.AssertNotCalled(t, "SetStripeCustomerID", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestService_FinalizeStripeCheckout_Unpaid(t *testing.T) {
	f := newFixture()
	f.stripe.On("GetCheckoutSession", mock.Anything, "cs_1").
		Return(&paymentprovider.CheckoutSession{ID: "cs_1", PaymentStatus: "unpaid"}, nil).Once()

	sub, err := f.svc.FinalizeStripeCheckout(context.Background(), testUser(), "cs_1")

	require.Error(t, err)
	assert.Nil(t, sub)
	assert.Equal(t, apperr.CodePaymentNotCompleted, apperr.CodeOf(err))
	f.repo.AssertNotCalled(t, "UpsertSubscription", mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "SetMembership", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestService_FinalizeStripeCheckout_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.FinalizeStripeCheckout(ctx, testUser(), "")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	f.stripe.On("GetCheckoutSession", mock.Anything, "cs_2").
		Return(&paymentprovider.CheckoutSession{ID: "cs_2", PaymentStatus: "paid"}, nil).Once()
	_, err = f.svc.FinalizeStripeCheckout(ctx, testUser(), "cs_2")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	noStripe := New(newNoopLogger(), Deps{Subscriptions: f.repo, Users: f.users}, Config{})
	_, err = noStripe.FinalizeStripeCheckout(ctx, testUser(), "cs_1")
	assert.Equal(t, apperr.CodeConfig, apperr.CodeOf(err))
	f.assertExpectations(t)
}

func TestService_FinalizeStripeCheckout_ForeignSession(t *testing.T) {
	tests := []struct {
		name    string
		session *paymentprovider.CheckoutSession
	}{
		{
			name: "session of another user",
			session: &paymentprovider.CheckoutSession{
				ID:             "cs_other",
				PaymentStatus:  "paid",
				SubscriptionID: "sub_other",
				CustomerID:     "cus_1",
				Metadata:       map[string]string{"planId": "gold", "userId": "u2"},
			},
		},
		{
			name: "session of another customer",
			session: &paymentprovider.CheckoutSession{
				ID:             "cs_other",
				PaymentStatus:  "paid",
				SubscriptionID: "sub_other",
				CustomerID:     "cus_2",
				Metadata:       map[string]string{"planId": "gold"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			user := testUser()
			f.stripe.On("GetCheckoutSession", mock.Anything, "cs_other").Return(tt.session, nil).Once()

			sub, err := f.svc.FinalizeStripeCheckout(context.Background(), user, "cs_other")

			require.Error(t, err)
			assert.Nil(t, sub)
			assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
			assert.Equal(t, "cus_1", user.StripeCustomerID)
			f.stripe.AssertNotCalled(t, "GetSubscription", mock.Anything, mock.Anything)
			f.repo.AssertNotCalled(t, "UpsertSubscription", mock.Anything, mock.Anything)
			f.users.AssertNotCalled(t, "SetStripeCustomerID", mock.Anything, mock.Anything, mock.Anything)
			f.users.AssertNotCalled(t, "SetMembership", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.assertExpectations(t)
		})
	}
}

func TestService_FinalizeStripeCheckout_SavesFirstCustomer(t *testing.T) {
	f := newFixture()
	user := testUser()
	user.StripeCustomerID = ""

	f.stripe.On("GetCheckoutSession", mock.Anything, "cs_1").Return(&paymentprovider.CheckoutSession{
		ID:             "cs_1",
		PaymentStatus:  "paid",
		SubscriptionID: "sub_1",
		CustomerID:     "cus_new",
		Metadata:       map[string]string{"planId": "gold", "userId": "u1"},
	}, nil).Once()
	f.stripe.On("GetSubscription", mock.Anything, "sub_1").Return(&paymentprovider.Subscription{
		ID: "sub_1", UnitAmount: 999, Interval: "month",
	}, nil).Once()
	f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(liveSub(models.StatusPending), nil).Once()
	f.repo.On("UpsertSubscription", mock.Anything, mock.Anything).Return(liveSub(models.StatusActive), nil).Once()
	f.users.On("SetStripeCustomerID", mock.Anything, "u1", "cus_new").Return(nil).Once()
	f.users.On("SetMembership", mock.Anything, "u1", models.RoleSubscriber, "s1").Return(nil).Once()

	sub, err := f.svc.FinalizeStripeCheckout(context.Background(), user, "cs_1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, sub.Status)
	assert.Equal(t, "cus_new", user.StripeCustomerID)
	f.assertExpectations(t)
}

func TestService_StartStripeCheckout_CreatesCustomerFirst(t *testing.T) {
	f := newFixture()
	user := testUser()
	user.StripeCustomerID = ""
	var order []string

	f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(nil, repository.ErrNotFound).Once()
	f.stripe.On("CreateCustomer", mock.Anything, "ann@example.com", "Ann", map[string]string{"userId": "u1"}).
		Run(func(mock.Arguments) { order = append(order, "create customer") }).
		Return("cus_new", nil).Once()
	f.users.On("SetStripeCustomerID", mock.Anything, "u1", "cus_new").
		Run(func(mock.Arguments) { order = append(order, "persist customer") }).
		Return(nil).Once()
	f.stripe.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p paymentprovider.CheckoutParams) bool {
		return p.CustomerID == "cus_new"
	})).
		Run(func(mock.Arguments) { order = append(order, "create session") }).
		Return(&paymentprovider.CheckoutSession{ID: "cs_9", URL: "https://checkout.stripe.test/cs_9"}, nil).Once()
	f.repo.On("CreateSubscriptionIfNotLive", mock.Anything, mock.Anything).Return(liveSub(models.StatusPending), nil).Once()

	_, err := f.svc.StartStripeCheckout(context.Background(), user, StripeCheckoutParams{PlanID: "gold", PriceID: "price_1"})

	require.NoError(t, err)
	assert.Equal(t, []string{"create customer", "persist customer", "create session"}, order)
	assert.Equal(t, "cus_new", user.StripeCustomerID)
	f.assertExpectations(t)
}

func TestService_Create(t *testing.T) {
	providerSub := &paymentprovider.Subscription{
		ID:                 "sub_new",
		UnitAmount:         999,
		Interval:           "month",
		CurrentPeriodStart: fixedNow,
		CurrentPeriodEnd:   fixedNow.AddDate(0, 1, 0),
	}

	t.Run("success", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(nil, repository.ErrNotFound).Once()
		f.stripe.On("CreateSubscription", mock.Anything, "cus_1", "price_1", mock.Anything).Return(providerSub, nil).Once()
		f.repo.On("CreateSubscriptionIfNotLive", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
			return s.Status == models.StatusActive &&
				s.ProviderReference == "sub_new" &&
				s.StripeSubscriptionID == "sub_new" &&
				s.Price == 9.99
		})).Return(&models.Subscription{ID: "s2", UserID: "u1", Status: models.StatusActive}, nil).Once()
		f.users.On("SetMembership", mock.Anything, "u1", models.RoleSubscriber, "s2").Return(nil).Once()

		sub, err := f.svc.Create(context.Background(), testUser(), CreateParams{PlanID: "gold", PriceID: "price_1"})

		require.NoError(t, err)
		assert.Equal(t, "s2", sub.ID)
		f.assertExpectations(t)
	})

	t.Run("lost race cancels provider subscription", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(nil, repository.ErrNotFound).Once()
		f.stripe.On("CreateSubscription", mock.Anything, "cus_1", "price_1", mock.Anything).Return(providerSub, nil).Once()
		f.repo.On("CreateSubscriptionIfNotLive", mock.Anything, mock.Anything).Return(nil, repository.ErrConflict).Once()
		f.stripe.On("CancelSubscription", mock.Anything, "sub_new").Return(nil).Once()

		sub, err := f.svc.Create(context.Background(), testUser(), CreateParams{PlanID: "gold", PriceID: "price_1"})

		require.Error(t, err)
		assert.Nil(t, sub)
		assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
		f.users.AssertNotCalled(t, "SetMembership", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("provider error", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(nil, repository.ErrNotFound).Once()
		f.stripe.On("CreateSubscription", mock.Anything, "cus_1", "price_1", mock.Anything).
			Return(nil, apperr.New(apperr.CodeProvider, "No such price")).Once()

		_, err := f.svc.Create(context.Background(), testUser(), CreateParams{PlanID: "gold", PriceID: "price_1"})

		assert.Equal(t, apperr.CodeProvider, apperr.CodeOf(err))
		f.repo.AssertNotCalled(t, "CreateSubscriptionIfNotLive", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})
}

func TestService_StartPaystackCheckout(t *testing.T) {
	f := newFixture()
	wantRef := fmt.Sprintf("ps_u1_%d", fixedNow.UnixMilli())

	f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(liveSub(models.StatusCanceled), nil).Once()
	f.paystack.On("Initialize", mock.Anything, mock.MatchedBy(func(p paymentprovider.InitializeParams) bool {
		return p.Amount == 250050 &&
			p.Reference == wantRef &&
			p.Email == "ann@example.com" &&
			p.Currency == "NGN" &&
			p.CallbackURL == "https://app.example.com/subscribe" &&
			p.Metadata["planId"] == "gold" && p.Metadata["billingCycle"] == "monthly"
	})).Return(&paymentprovider.Transaction{AuthorizationURL: "https://checkout.paystack.test/x", Reference: wantRef}, nil).Once()
	f.repo.On("CreateSubscriptionIfNotLive", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
		return s.Status == models.StatusPending &&
			s.PaymentProvider == models.ProviderPaystack &&
			s.ProviderReference == wantRef &&
			s.Price == 2500.5
	})).Return(&models.Subscription{ID: "s1", UserID: "u1", Status: models.StatusPending}, nil).Once()

	out, err := f.svc.StartPaystackCheckout(context.Background(), testUser(), PaystackCheckoutParams{PlanID: "gold", Amount: 2500.5})

	require.NoError(t, err)
	assert.Equal(t, wantRef, out.Reference)
	assert.Equal(t, "https://checkout.paystack.test/x", out.AuthorizationURL)
	f.assertExpectations(t)
}

func TestService_VerifyPaystackCheckout(t *testing.T) {
	paidAt := time.Date(2024, time.January, 31, 9, 0, 0, 0, time.UTC)
	verified := func(owner string) *paymentprovider.Verification {
		return &paymentprovider.Verification{
			Status:       "success",
			Reference:    "ps_u1_1",
			Amount:       500000,
			PaidAt:       &paidAt,
			CustomerCode: "CUS_abc",
			Metadata:     map[string]string{"planId": "gold", "userId": owner, "billingCycle": "monthly"},
		}
	}

	tests := []struct {
		name       string
		reference  string
		setupMocks func(f *fixture)
		wantCode   apperr.Code
	}{
		{
			name:      "success",
			reference: "ps_u1_1",
			setupMocks: func(f *fixture) {
				f.paystack.On("Verify", mock.Anything, "ps_u1_1").Return(verified("u1"), nil).Once()
				f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(liveSub(models.StatusPending), nil).Once()
				f.repo.On("UpsertSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
					return s.Status == models.StatusActive &&
						s.Price == 5000 &&
						s.PaymentProvider == models.ProviderPaystack &&
						s.StartDate.Equal(paidAt) &&
						s.CurrentPeriodEnd != nil &&
						s.CurrentPeriodEnd.Equal(time.Date(2024, time.March, 2, 9, 0, 0, 0, time.UTC))
				})).Return(&models.Subscription{ID: "s1", UserID: "u1", Status: models.StatusActive, Price: 5000}, nil).Once()
				f.users.On("SetPaystackCustomerCode", mock.Anything, "u1", "CUS_abc").Return(nil).Once()
				f.users.On("SetMembership", mock.Anything, "u1", models.RoleSubscriber, "s1").Return(nil).Once()
			},
		},
		{
			name:      "empty reference",
			reference: "",
			wantCode:  apperr.CodeInvalidInput,
		},
		{
			name:      "payment failed",
			reference: "ps_u1_1",
			setupMocks: func(f *fixture) {
				v := verified("u1")
				v.Status = "failed"
				f.paystack.On("Verify", mock.Anything, "ps_u1_1").Return(v, nil).Once()
			},
			wantCode: apperr.CodePaymentNotSuccessful,
		},
		{
			name:      "transaction of another user",
			reference: "ps_u1_1",
			setupMocks: func(f *fixture) {
				f.paystack.On("Verify", mock.Anything, "ps_u1_1").Return(verified("u2"), nil).Once()
			},
			wantCode: apperr.CodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setupMocks != nil {
				tt.setupMocks(f)
			}

			sub, err := f.svc.VerifyPaystackCheckout(context.Background(), testUser(), tt.reference)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperr.CodeOf(err))
				f.repo.AssertNotCalled(t, "UpsertSubscription", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, models.StatusActive, sub.Status)
				assert.Equal(t, 5000.0, sub.Price)
			}
			f.assertExpectations(t)
		})
	}
}

func TestService_Cancel(t *testing.T) {
	canceledAt := fixedNow
	canceled := liveSub(models.StatusCanceled)
	canceled.CanceledAt = &canceledAt
	canceled.CurrentPeriodEnd = &canceledAt

	f := newFixture()
	user := testUser()
	user.Role = models.RoleSubscriber

	f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(liveSub(models.StatusActive), nil).Once()
	f.stripe.On("CancelSubscription", mock.Anything, "sub_1").Return(nil).Once()
	f.repo.On("CancelSubscription", mock.Anything, "u1", fixedNow).Return(canceled, nil).Once()
	f.users.On("SetMembership", mock.Anything, "u1", models.RoleFree, "").Return(nil).Once()

	sub, err := f.svc.Cancel(context.Background(), user)

	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, sub.Status)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.True(t, sub.CurrentPeriodEnd.Equal(fixedNow))
	assert.Equal(t, models.RoleFree, user.Role)
	f.events.AssertCalled(t, "Publish", mock.Anything, "subscription.canceled", mock.Anything)

	// повторная отмена
	f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(canceled, nil).Once()

	sub, err = f.svc.Cancel(context.Background(), user)

	require.Error(t, err)
	assert.Nil(t, sub)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	f.stripe.AssertNumberOfCalls(t, "CancelSubscription", 1)
	f.repo.AssertNumberOfCalls(t, "CancelSubscription", 1)
	f.assertExpectations(t)
}

func TestService_Cancel_PaystackSkipsProvider(t *testing.T) {
	f := newFixture()
	existing := liveSub(models.StatusPending)
	existing.PaymentProvider = models.ProviderPaystack
	existing.StripeSubscriptionID = ""
	admin := testUser()
	admin.Role = models.RoleAdmin

	f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(existing, nil).Once()
	f.repo.On("CancelSubscription", mock.Anything, "u1", fixedNow).Return(liveSub(models.StatusCanceled), nil).Once()

	_, err := f.svc.Cancel(context.Background(), admin)

	require.NoError(t, err)
	assert.Empty(t, f.stripe.Calls)
	f.users.AssertNotCalled(t, "SetMembership", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	f.assertExpectations(t)
}

func TestService_Cancel_RaceEndsInNotFound(t *testing.T) {
	f := newFixture()
	existing := liveSub(models.StatusPending)
	existing.StripeSubscriptionID = ""

	f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(existing, nil).Once()
	f.repo.On("CancelSubscription", mock.Anything, "u1", fixedNow).Return(nil, repository.ErrNotFound).Once()

	_, err := f.svc.Cancel(context.Background(), testUser())

	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	f.assertExpectations(t)
}

func TestService_History(t *testing.T) {
	f := newFixture()
	events := []models.SubscriptionEvent{
		{ID: 2, UserID: "u1", Type: models.EventActivated},
		{ID: 1, UserID: "u1", Type: models.EventPending},
	}
	f.repo.On("ListSubscriptionEvents", mock.Anything, "u1", 100).Return(events, nil).Once()

	got, err := f.svc.History(context.Background(), testUser())

	require.NoError(t, err)
	assert.Equal(t, events, got)

	_, err = f.svc.History(context.Background(), nil)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
	f.assertExpectations(t)
}

func TestService_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture()
	f.events.ExpectedCalls = nil
	f.events.On("Publish", mock.Anything, "subscription.pending", mock.Anything).Return(errors.New("broker down")).Once()

	f.repo.On("GetSubscriptionByUser", mock.Anything, "u1").Return(nil, repository.ErrNotFound).Once()
	f.paystack.On("Initialize", mock.Anything, mock.Anything).
		Return(&paymentprovider.Transaction{AuthorizationURL: "https://checkout.paystack.test/x", Reference: "ps_ref"}, nil).Once()
	f.repo.On("CreateSubscriptionIfNotLive", mock.Anything, mock.Anything).
		Return(&models.Subscription{ID: "s1", UserID: "u1", Status: models.StatusPending}, nil).Once()

	_, err := f.svc.StartPaystackCheckout(context.Background(), testUser(), PaystackCheckoutParams{PlanID: "gold", Amount: 10})

	require.NoError(t, err)
	f.events.AssertExpectations(t)
	f.assertExpectations(t)
}
