package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/magabrotheeeer/character-matters/internal/models"
)

const userColumns = `u.id, u.email, u.password_hash, u.name, u.role, COALESCE(u.avatar, ''),
	COALESCE(u.subscription_id::text, ''), COALESCE(u.stripe_customer_id, ''),
	COALESCE(u.paystack_customer_code, ''),
	COALESCE((SELECT string_agg(p.ebook_id::text, ',' ORDER BY p.purchased_at)
		FROM user_purchased_ebooks p WHERE p.user_id = u.id), ''),
	u.created_at, u.updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		purchased string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.Avatar,
		&u.SubscriptionID, &u.StripeCustomerID, &u.PaystackCustomerCode, &purchased,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.PurchasedEbooks = []string{}
	if purchased != "" {
		u.PurchasedEbooks = strings.Split(purchased, ",")
	}
	return &u, nil
}

// CreateUser сохраняет нового пользователя. ErrConflict, если email занят.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `WITH u AS (
			INSERT INTO users (email, password_hash, name, role, avatar)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		)
		SELECT ` + userColumns + ` FROM u`
	created, err := scanUser(s.DB.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Role, nullString(user.Avatar)))
	if err != nil {
		return nil, wrap(op, err)
	}
	return created, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUserByID"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users u WHERE lower(u.email) = lower($1)`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// ListUsers возвращает всех пользователей, новые первыми.
func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage.ListUsers"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return users, nil
}

// UpdateUser меняет переданные поля профиля и возвращает обновлённого пользователя.
func (s *Storage) UpdateUser(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	const op = "storage.UpdateUser"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	var role *string
	if upd.Role != nil {
		r := string(*upd.Role)
		role = &r
	}
	query := `WITH u AS (
			UPDATE users SET
				name = COALESCE($2, name),
				avatar = COALESCE($3, avatar),
				email = COALESCE($4, email),
				role = COALESCE($5, role),
				updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + userColumns + ` FROM u`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id, upd.Name, upd.Avatar, upd.Email, role))
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// DeleteUser удаляет пользователя. ErrNotFound, если его нет.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	const op = "storage.DeleteUser"
	if err := ctxErr(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return affectedOne(op, res, err)
}

// SetStripeCustomerID сохраняет идентификатор клиента Stripe.
func (s *Storage) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	const op = "storage.SetStripeCustomerID"
	if err := ctxErr(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET stripe_customer_id = $2, updated_at = now() WHERE id = $1`, userID, customerID)
	return affectedOne(op, res, err)
}

// SetPaystackCustomerCode сохраняет код клиента Paystack.
func (s *Storage) SetPaystackCustomerCode(ctx context.Context, userID, code string) error {
	const op = "storage.SetPaystackCustomerCode"
	if err := ctxErr(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET paystack_customer_code = $2, updated_at = now() WHERE id = $1`, userID, code)
	return affectedOne(op, res, err)
}

// SetMembership меняет роль пользователя и, если subscriptionID не пуст, ссылку на подписку.
func (s *Storage) SetMembership(ctx context.Context, userID string, role models.Role, subscriptionID string) error {
	const op = "storage.SetMembership"
	if err := ctxErr(ctx, op); err != nil {
		return err
	}

	query := `UPDATE users SET
			role = $2,
			subscription_id = COALESCE(NULLIF($3, '')::uuid, subscription_id),
			updated_at = now()
		WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, userID, role, subscriptionID)
	return affectedOne(op, res, err)
}

// AddPurchasedEbook добавляет книгу в купленные пользователем. Повтор не ошибка.
func (s *Storage) AddPurchasedEbook(ctx context.Context, userID, ebookID string) error {
	const op = "storage.AddPurchasedEbook"
	if err := ctxErr(ctx, op); err != nil {
		return err
	}

	_, err := s.DB.ExecContext(ctx, `INSERT INTO user_purchased_ebooks (user_id, ebook_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, ebookID)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

// AddWatchHistory отмечает просмотр видео пользователем.
func (s *Storage) AddWatchHistory(ctx context.Context, userID, videoID string, at time.Time) error {
	const op = "storage.AddWatchHistory"
	if err := ctxErr(ctx, op); err != nil {
		return err
	}

	_, err := s.DB.ExecContext(ctx, `INSERT INTO user_watch_history (user_id, video_id, watched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, video_id) DO UPDATE SET watched_at = EXCLUDED.watched_at`,
		userID, videoID, at)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func affectedOne(op string, res sql.Result, err error) error {
	if err != nil {
		return wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return wrap(op, sql.ErrNoRows)
	}
	return nil
}
