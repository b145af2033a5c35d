package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/character-matters/internal/models"
)

const ebookColumns = `id, title, author, description, cover_image, file_url, price, category_id,
	COALESCE(pages, 0), language, COALESCE(publisher, ''), published_date, created_by, sales_count,
	created_at, updated_at`

func scanEbook(row rowScanner) (*models.Ebook, error) {
	var (
		e         models.Ebook
		published sql.NullTime
	)
	err := row.Scan(&e.ID, &e.Title, &e.Author, &e.Description, &e.CoverImage, &e.FileURL, &e.Price,
		&e.CategoryID, &e.Pages, &e.Language, &e.Publisher, &published, &e.CreatedBy, &e.SalesCount,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.PublishedDate = timePtr(published)
	return &e, nil
}

func ebookWhere(f models.EbookFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		conds = append(conds, fmt.Sprintf("price >= $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		conds = append(conds, fmt.Sprintf("price <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListEbooks возвращает страницу книг по фильтру и общее число подходящих записей.
func (s *Storage) ListEbooks(ctx context.Context, f models.EbookFilter) ([]models.Ebook, int, error) {
	const op = "storage.ListEbooks"
	if err := ctxErr(ctx, op); err != nil {
		return nil, 0, err
	}

	where, args := ebookWhere(f)
	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM ebooks`+where, args...).Scan(&total); err != nil {
		return nil, 0, wrap(op, err)
	}

	args = append(args, f.Limit, offset(f.Page, f.Limit))
	query := fmt.Sprintf(`SELECT %s FROM ebooks%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		ebookColumns, where, len(args)-1, len(args))
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, wrap(op, err)
	}
	defer rows.Close()

	res := make([]models.Ebook, 0)
	for rows.Next() {
		e, err := scanEbook(rows)
		if err != nil {
			return nil, 0, wrap(op, err)
		}
		res = append(res, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrap(op, err)
	}
	return res, total, nil
}

// GetEbook возвращает книгу по идентификатору.
func (s *Storage) GetEbook(ctx context.Context, id string) (*models.Ebook, error) {
	const op = "storage.GetEbook"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	e, err := scanEbook(s.DB.QueryRowContext(ctx, `SELECT `+ebookColumns+` FROM ebooks WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return e, nil
}

// CreateEbook сохраняет книгу.
func (s *Storage) CreateEbook(ctx context.Context, e models.Ebook) (*models.Ebook, error) {
	const op = "storage.CreateEbook"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	language := e.Language
	if language == "" {
		language = "English"
	}
	var pages sql.NullInt64
	if e.Pages > 0 {
		pages = sql.NullInt64{Int64: int64(e.Pages), Valid: true}
	}
	query := `INSERT INTO ebooks (title, author, description, cover_image, file_url, price, category_id,
			pages, language, publisher, published_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + ebookColumns
	res, err := scanEbook(s.DB.QueryRowContext(ctx, query, e.Title, e.Author, e.Description, e.CoverImage,
		e.FileURL, e.Price, e.CategoryID, pages, language, nullString(e.Publisher),
		nullTime(e.PublishedDate), e.CreatedBy))
	if err != nil {
		return nil, wrap(op, err)
	}
	return res, nil
}

// IncrementEbookSales увеличивает счётчик продаж книги.
func (s *Storage) IncrementEbookSales(ctx context.Context, id string) error {
	const op = "storage.IncrementEbookSales"
	if err := ctxErr(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE ebooks SET sales_count = sales_count + 1, updated_at = now()
		WHERE id = $1`, id)
	return affectedOne(op, res, err)
}
