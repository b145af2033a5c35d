package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/character-matters/internal/lib/billing"
	"github.com/magabrotheeeer/character-matters/internal/models"
)

func pendingStripe(userID, ref string, start time.Time) models.Subscription {
	return models.Subscription{
		UserID:            userID,
		Plan:              "premium",
		Status:            models.StatusPending,
		BillingCycle:      billing.Monthly,
		StartDate:         start,
		PaymentProvider:   models.ProviderStripe,
		ProviderReference: ref,
	}
}

func TestStorage_Users(t *testing.T) {
	storage := setupTestDatabase(t)
	f := &testDataFactory{storage: storage}
	ctx := context.Background()

	u := f.user(t, "reader@example.com", models.RoleFree)
	assert.Equal(t, models.RoleFree, u.Role)
	assert.Empty(t, u.PurchasedEbooks)

	_, err := storage.CreateUser(ctx, models.User{Email: "reader@example.com", PasswordHash: "x", Name: "dup", Role: models.RoleFree})
	assert.ErrorIs(t, err, ErrConflict)

	byEmail, err := storage.GetUserByEmail(ctx, "READER@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = storage.GetUserByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	name := "Renamed"
	updated, err := storage.UpdateUser(ctx, u.ID, models.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, u.Email, updated.Email)

	require.NoError(t, storage.SetStripeCustomerID(ctx, u.ID, "cus_123"))
	require.NoError(t, storage.SetPaystackCustomerCode(ctx, u.ID, "CUS_ps"))

	got, err := storage.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_123", got.StripeCustomerID)
	assert.Equal(t, "CUS_ps", got.PaystackCustomerCode)

	users, err := storage.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, storage.DeleteUser(ctx, u.ID))
	assert.ErrorIs(t, storage.DeleteUser(ctx, u.ID), ErrNotFound)
}

func TestStorage_SubscriptionConditionalUpsert(t *testing.T) {
	storage := setupTestDatabase(t)
	f := &testDataFactory{storage: storage}
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	u := f.user(t, "sub@example.com", models.RoleFree)

	_, err := storage.GetSubscriptionByUser(ctx, u.ID)
	require.ErrorIs(t, err, ErrNotFound)

	pending, err := storage.CreateSubscriptionIfNotLive(ctx, pendingStripe(u.ID, "cs_1", now))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, pending.Status)
	assert.Equal(t, "cs_1", pending.ProviderReference)

	_, err = storage.CreateSubscriptionIfNotLive(ctx, pendingStripe(u.ID, "cs_2", now))
	require.ErrorIs(t, err, ErrConflict)

	current, err := storage.GetSubscriptionByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", current.ProviderReference, "losing writer must not overwrite")

	periodEnd := now.AddDate(0, 1, 0)
	activate := pendingStripe(u.ID, "cs_1", now)
	activate.Status = models.StatusActive
	activate.Price = 9.99
	activate.CurrentPeriodStart = &now
	activate.CurrentPeriodEnd = &periodEnd
	activate.StripeSubscriptionID = "sub_1"
	active, err := storage.UpsertSubscription(ctx, activate)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, active.ID, "one row per user")
	assert.Equal(t, models.StatusActive, active.Status)
	assert.InDelta(t, 9.99, active.Price, 0.001)

	byStripe, err := storage.GetSubscriptionByStripeID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, active.ID, byStripe.ID)

	require.NoError(t, storage.SetMembership(ctx, u.ID, models.RoleSubscriber, active.ID))
	withSub, err := storage.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, withSub.SubscriptionID)
	assert.Equal(t, models.RoleSubscriber, withSub.Role)

	canceled, err := storage.CancelSubscription(ctx, u.ID, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CurrentPeriodEnd)
	assert.True(t, now.Equal(*canceled.CurrentPeriodEnd))

	_, err = storage.CancelSubscription(ctx, u.ID, now)
	assert.ErrorIs(t, err, ErrNotFound)

	again, err := storage.CreateSubscriptionIfNotLive(ctx, pendingStripe(u.ID, "cs_3", now))
	require.NoError(t, err, "canceled subscription may be replaced")
	assert.Equal(t, "cs_3", again.ProviderReference)
}

func TestStorage_ExpireSweeps(t *testing.T) {
	storage := setupTestDatabase(t)
	f := &testDataFactory{storage: storage}
	ctx := context.Background()
	now := time.Now().UTC()

	stale := f.user(t, "stale@example.com", models.RoleFree)
	_, err := storage.CreateSubscriptionIfNotLive(ctx, pendingStripe(stale.ID, "cs_old", now))
	require.NoError(t, err)

	expired, err := storage.ExpireStalePending(ctx, now.Add(time.Hour), now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, models.StatusExpired, expired[0].Status)

	lapsed := f.user(t, "lapsed@example.com", models.RoleSubscriber)
	start := now.AddDate(0, -2, 0)
	end := now.AddDate(0, -1, 0)
	_, err = storage.UpsertSubscription(ctx, models.Subscription{
		UserID:             lapsed.ID,
		Plan:               "basic",
		Status:             models.StatusActive,
		BillingCycle:       billing.Monthly,
		StartDate:          start,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
		PaymentProvider:    models.ProviderPaystack,
		ProviderReference:  "ps_ref",
	})
	require.NoError(t, err)

	lapsedSubs, err := storage.ExpireLapsed(ctx, now)
	require.NoError(t, err)
	require.Len(t, lapsedSubs, 1)
	assert.Equal(t, lapsed.ID, lapsedSubs[0].UserID)

	none, err := storage.ExpireLapsed(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStorage_EventsAndOrders(t *testing.T) {
	storage := setupTestDatabase(t)
	f := &testDataFactory{storage: storage}
	ctx := context.Background()
	now := time.Now().UTC()

	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	reader := f.user(t, "buyer@example.com", models.RoleFree)

	for i, typ := range []models.EventType{models.EventPending, models.EventActivated} {
		_, err := storage.InsertSubscriptionEvent(ctx, models.SubscriptionEvent{
			UserID:     reader.ID,
			Type:       typ,
			Status:     models.StatusActive,
			Provider:   models.ProviderStripe,
			OccurredAt: now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	events, err := storage.ListSubscriptionEvents(ctx, reader.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventActivated, events[0].Type, "newest first")

	cat := f.category(t, "Character")
	_, err = storage.CreateCategory(ctx, models.Category{Name: "Character", Type: models.CategoryEbook})
	assert.ErrorIs(t, err, ErrConflict)

	cheap := f.ebook(t, "Cheap", 5, cat.ID, admin.ID)
	f.ebook(t, "Pricey", 50, cat.ID, admin.ID)

	minPrice := 10.0
	books, total, err := storage.ListEbooks(ctx, models.EbookFilter{Page: 1, Limit: 10, MinPrice: &minPrice})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Pricey", books[0].Title)
	assert.Equal(t, "English", books[0].Language)

	order, err := storage.CreateOrder(ctx, models.Order{
		UserID: reader.ID, EbookID: cheap.ID, Amount: cheap.Price,
		Status: models.OrderPending, PaymentIntentID: "pi_1",
	})
	require.NoError(t, err)

	_, err = storage.FindCompletedOrder(ctx, reader.ID, cheap.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	done, err := storage.SetOrderStatusByPaymentIntent(ctx, "pi_1", models.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, order.ID, done.ID)

	_, err = storage.FindCompletedOrder(ctx, reader.ID, cheap.ID)
	require.NoError(t, err)

	require.NoError(t, storage.AddPurchasedEbook(ctx, reader.ID, cheap.ID))
	require.NoError(t, storage.AddPurchasedEbook(ctx, reader.ID, cheap.ID))
	require.NoError(t, storage.IncrementEbookSales(ctx, cheap.ID))

	withBooks, err := storage.GetUserByID(ctx, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{cheap.ID}, withBooks.PurchasedEbooks)

	orders, err := storage.ListOrdersByUser(ctx, reader.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestStorage_Videos(t *testing.T) {
	storage := setupTestDatabase(t)
	f := &testDataFactory{storage: storage}
	ctx := context.Background()

	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	cat := f.category(t, "Lessons")

	for _, lvl := range []models.AccessLevel{models.AccessFree, models.AccessPremium, models.AccessPremium} {
		_, err := storage.CreateVideo(ctx, models.Video{
			Title: "Lesson " + string(lvl), Description: "d", Thumbnail: "t.png", VideoURL: "v.mp4",
			Duration: 60, CategoryID: cat.ID, AccessLevel: lvl, CreatedBy: admin.ID,
		})
		require.NoError(t, err)
	}

	free, total, err := storage.ListVideos(ctx, models.VideoFilter{Page: 1, Limit: 10, AccessLevel: models.AccessFree})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, free, 1)

	all, total, err := storage.ListVideos(ctx, models.VideoFilter{Page: 2, Limit: 2, CategoryID: cat.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 1)

	views, err := storage.IncrementVideoViews(ctx, free[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, views)
	require.NoError(t, storage.AddWatchHistory(ctx, admin.ID, free[0].ID, time.Now()))

	v := free[0]
	v.Title = "Updated"
	updated, err := storage.UpdateVideo(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.Title)

	require.NoError(t, storage.DeleteVideo(ctx, v.ID))
	_, err = storage.GetVideo(ctx, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
