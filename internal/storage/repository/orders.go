package repository

import (
	"context"

	"github.com/magabrotheeeer/character-matters/internal/models"
)

const orderColumns = `id, user_id, ebook_id, amount, status, COALESCE(payment_intent_id, ''), created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.EbookID, &o.Amount, &o.Status, &o.PaymentIntentID,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder сохраняет заказ.
func (s *Storage) CreateOrder(ctx context.Context, o models.Order) (*models.Order, error) {
	const op = "storage.CreateOrder"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO orders (user_id, ebook_id, amount, status, payment_intent_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + orderColumns
	res, err := scanOrder(s.DB.QueryRowContext(ctx, query, o.UserID, o.EbookID, o.Amount, o.Status,
		nullString(o.PaymentIntentID)))
	if err != nil {
		return nil, wrap(op, err)
	}
	return res, nil
}

// SetOrderStatus меняет статус заказа по идентификатору.
func (s *Storage) SetOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	const op = "storage.SetOrderStatus"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 RETURNING ` + orderColumns
	res, err := scanOrder(s.DB.QueryRowContext(ctx, query, id, status))
	if err != nil {
		return nil, wrap(op, err)
	}
	return res, nil
}

// SetOrderStatusByPaymentIntent меняет статус pending-заказа с указанным payment intent.
func (s *Storage) SetOrderStatusByPaymentIntent(ctx context.Context, intentID string, status models.OrderStatus) (*models.Order, error) {
	const op = "storage.SetOrderStatusByPaymentIntent"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE orders SET status = $2, updated_at = now()
		WHERE payment_intent_id = $1 AND status = 'pending'
		RETURNING ` + orderColumns
	res, err := scanOrder(s.DB.QueryRowContext(ctx, query, intentID, status))
	if err != nil {
		return nil, wrap(op, err)
	}
	return res, nil
}

// FindCompletedOrder ищет завершённый заказ книги пользователем.
func (s *Storage) FindCompletedOrder(ctx context.Context, userID, ebookID string) (*models.Order, error) {
	const op = "storage.FindCompletedOrder"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 AND ebook_id = $2 AND status = 'completed'
		ORDER BY created_at DESC LIMIT 1`
	res, err := scanOrder(s.DB.QueryRowContext(ctx, query, userID, ebookID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return res, nil
}

// ListOrdersByUser возвращает заказы пользователя, новые первыми.
func (s *Storage) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	const op = "storage.ListOrdersByUser"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	res := make([]models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		res = append(res, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return res, nil
}
