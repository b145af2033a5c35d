package repository

import (
	"context"

	"github.com/magabrotheeeer/character-matters/internal/models"
)

// ListCategories возвращает категории по алфавиту.
func (s *Storage) ListCategories(ctx context.Context) ([]models.Category, error) {
	const op = "storage.ListCategories"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, COALESCE(description, ''), type, created_at
		FROM categories ORDER BY name`)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	res := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Type, &c.CreatedAt); err != nil {
			return nil, wrap(op, err)
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return res, nil
}

// CreateCategory сохраняет категорию. ErrConflict, если имя занято.
func (s *Storage) CreateCategory(ctx context.Context, c models.Category) (*models.Category, error) {
	const op = "storage.CreateCategory"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO categories (name, description, type) VALUES ($1, $2, $3)
		RETURNING id, name, COALESCE(description, ''), type, created_at`
	var res models.Category
	err := s.DB.QueryRowContext(ctx, query, c.Name, nullString(c.Description), c.Type).
		Scan(&res.ID, &res.Name, &res.Description, &res.Type, &res.CreatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &res, nil
}
