package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/character-matters/internal/models"
)

const subscriptionColumns = `id, user_id, plan, status, billing_cycle, price, start_date, end_date,
	current_period_start, current_period_end, canceled_at, payment_provider,
	COALESCE(provider_reference, ''), COALESCE(stripe_subscription_id, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		sub                             models.Subscription
		endDate, periodStart, periodEnd sql.NullTime
		canceledAt                      sql.NullTime
	)
	err := row.Scan(&sub.ID, &sub.UserID, &sub.Plan, &sub.Status, &sub.BillingCycle, &sub.Price,
		&sub.StartDate, &endDate, &periodStart, &periodEnd, &canceledAt, &sub.PaymentProvider,
		&sub.ProviderReference, &sub.StripeSubscriptionID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.EndDate = timePtr(endDate)
	sub.CurrentPeriodStart = timePtr(periodStart)
	sub.CurrentPeriodEnd = timePtr(periodEnd)
	sub.CanceledAt = timePtr(canceledAt)
	return &sub, nil
}

func scanSubscriptions(rows *sql.Rows) ([]models.Subscription, error) {
	defer rows.Close()
	var res []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *sub)
	}
	return res, rows.Err()
}

// GetSubscriptionByUser возвращает подписку пользователя в любом статусе.
func (s *Storage) GetSubscriptionByUser(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByUser"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}

// GetSubscriptionByStripeID ищет подписку по идентификатору подписки Stripe.
func (s *Storage) GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByStripeID"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_subscription_id = $1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, stripeSubscriptionID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}

const upsertSubscriptionQuery = `INSERT INTO subscriptions (user_id, plan, status, billing_cycle, price,
		start_date, end_date, current_period_start, current_period_end, canceled_at,
		payment_provider, provider_reference, stripe_subscription_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (user_id) DO UPDATE SET
		plan = EXCLUDED.plan,
		status = EXCLUDED.status,
		billing_cycle = EXCLUDED.billing_cycle,
		price = EXCLUDED.price,
		start_date = EXCLUDED.start_date,
		end_date = EXCLUDED.end_date,
		current_period_start = EXCLUDED.current_period_start,
		current_period_end = EXCLUDED.current_period_end,
		canceled_at = EXCLUDED.canceled_at,
		payment_provider = EXCLUDED.payment_provider,
		provider_reference = EXCLUDED.provider_reference,
		stripe_subscription_id = EXCLUDED.stripe_subscription_id,
		updated_at = now()`

func (s *Storage) upsertSubscription(ctx context.Context, query string, sub models.Subscription) (*models.Subscription, error) {
	row := s.DB.QueryRowContext(ctx, query+` RETURNING `+subscriptionColumns,
		sub.UserID, sub.Plan, sub.Status, sub.BillingCycle, sub.Price,
		sub.StartDate, nullTime(sub.EndDate), nullTime(sub.CurrentPeriodStart), nullTime(sub.CurrentPeriodEnd),
		nullTime(sub.CanceledAt), sub.PaymentProvider, nullString(sub.ProviderReference),
		nullString(sub.StripeSubscriptionID))
	return scanSubscription(row)
}

// CreateSubscriptionIfNotLive атомарно записывает подписку пользователя, только если
// у него нет подписки в статусе active или pending. Иначе возвращает ErrConflict.
func (s *Storage) CreateSubscriptionIfNotLive(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	const op = "storage.CreateSubscriptionIfNotLive"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := upsertSubscriptionQuery + `
	WHERE subscriptions.status NOT IN ('active', 'pending')`
	res, err := s.upsertSubscription(ctx, query, sub)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrConflict)
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return res, nil
}

// UpsertSubscription безусловно записывает подписку пользователя.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	const op = "storage.UpsertSubscription"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	res, err := s.upsertSubscription(ctx, upsertSubscriptionQuery, sub)
	if err != nil {
		return nil, wrap(op, err)
	}
	return res, nil
}

// CancelSubscription переводит active/pending подписку пользователя в canceled
// с немедленным окончанием периода. ErrNotFound, если отменять нечего.
func (s *Storage) CancelSubscription(ctx context.Context, userID string, at time.Time) (*models.Subscription, error) {
	const op = "storage.CancelSubscription"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE subscriptions
		SET status = 'canceled', canceled_at = $2, current_period_end = $2, updated_at = now()
		WHERE user_id = $1 AND status IN ('active', 'pending')
		RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID, at))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}

// UpdateSubscriptionPeriod обновляет границы текущего периода.
func (s *Storage) UpdateSubscriptionPeriod(ctx context.Context, id string, start, end *time.Time) (*models.Subscription, error) {
	const op = "storage.UpdateSubscriptionPeriod"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE subscriptions
		SET current_period_start = COALESCE($2, current_period_start),
			current_period_end = COALESCE($3, current_period_end),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id, nullTime(start), nullTime(end)))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}

// ExpireStalePending переводит в expired pending-подписки, не менявшиеся с момента before.
func (s *Storage) ExpireStalePending(ctx context.Context, before, now time.Time) ([]models.Subscription, error) {
	const op = "storage.ExpireStalePending"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE subscriptions
		SET status = 'expired', end_date = $2, updated_at = now()
		WHERE status = 'pending' AND updated_at < $1
		RETURNING ` + subscriptionColumns
	rows, err := s.DB.QueryContext(ctx, query, before, now)
	if err != nil {
		return nil, wrap(op, err)
	}
	subs, err := scanSubscriptions(rows)
	if err != nil {
		return nil, wrap(op, err)
	}
	return subs, nil
}

// ExpireLapsed переводит в expired активные подписки Paystack с истёкшим периодом.
// Подписки Stripe продлевает сам провайдер через вебхуки.
func (s *Storage) ExpireLapsed(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	const op = "storage.ExpireLapsed"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE subscriptions
		SET status = 'expired', end_date = $1, updated_at = now()
		WHERE status = 'active' AND payment_provider = 'paystack'
			AND current_period_end IS NOT NULL AND current_period_end < $1
		RETURNING ` + subscriptionColumns
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, wrap(op, err)
	}
	subs, err := scanSubscriptions(rows)
	if err != nil {
		return nil, wrap(op, err)
	}
	return subs, nil
}
