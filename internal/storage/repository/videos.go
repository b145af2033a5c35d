package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/character-matters/internal/models"
)

const videoColumns = `id, title, description, thumbnail, video_url, duration, category_id, access_level,
	price, created_by, views, likes, created_at, updated_at`

func scanVideo(row rowScanner) (*models.Video, error) {
	var (
		v     models.Video
		price sql.NullFloat64
	)
	err := row.Scan(&v.ID, &v.Title, &v.Description, &v.Thumbnail, &v.VideoURL, &v.Duration,
		&v.CategoryID, &v.AccessLevel, &price, &v.CreatedBy, &v.Views, &v.Likes, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if price.Valid {
		v.Price = &price.Float64
	}
	return &v, nil
}

func videoWhere(f models.VideoFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.AccessLevel != "" {
		args = append(args, f.AccessLevel)
		conds = append(conds, fmt.Sprintf("access_level = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListVideos возвращает страницу видео по фильтру и общее число подходящих записей.
func (s *Storage) ListVideos(ctx context.Context, f models.VideoFilter) ([]models.Video, int, error) {
	const op = "storage.ListVideos"
	if err := ctxErr(ctx, op); err != nil {
		return nil, 0, err
	}

	where, args := videoWhere(f)
	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`+where, args...).Scan(&total); err != nil {
		return nil, 0, wrap(op, err)
	}

	args = append(args, f.Limit, offset(f.Page, f.Limit))
	query := fmt.Sprintf(`SELECT %s FROM videos%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		videoColumns, where, len(args)-1, len(args))
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, wrap(op, err)
	}
	defer rows.Close()

	res := make([]models.Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, 0, wrap(op, err)
		}
		res = append(res, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrap(op, err)
	}
	return res, total, nil
}

// GetVideo возвращает видео по идентификатору.
func (s *Storage) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	const op = "storage.GetVideo"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	v, err := scanVideo(s.DB.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return v, nil
}

// CreateVideo сохраняет видео.
func (s *Storage) CreateVideo(ctx context.Context, v models.Video) (*models.Video, error) {
	const op = "storage.CreateVideo"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO videos (title, description, thumbnail, video_url, duration, category_id,
			access_level, price, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + videoColumns
	res, err := scanVideo(s.DB.QueryRowContext(ctx, query, v.Title, v.Description, v.Thumbnail, v.VideoURL,
		v.Duration, v.CategoryID, v.AccessLevel, v.Price, v.CreatedBy))
	if err != nil {
		return nil, wrap(op, err)
	}
	return res, nil
}

// UpdateVideo перезаписывает редактируемые поля видео.
func (s *Storage) UpdateVideo(ctx context.Context, v models.Video) (*models.Video, error) {
	const op = "storage.UpdateVideo"
	if err := ctxErr(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE videos SET title = $2, description = $3, thumbnail = $4, video_url = $5,
			duration = $6, category_id = $7, access_level = $8, price = $9, updated_at = now()
		WHERE id = $1
		RETURNING ` + videoColumns
	res, err := scanVideo(s.DB.QueryRowContext(ctx, query, v.ID, v.Title, v.Description, v.Thumbnail,
		v.VideoURL, v.Duration, v.CategoryID, v.AccessLevel, v.Price))
	if err != nil {
		return nil, wrap(op, err)
	}
	return res, nil
}

// DeleteVideo удаляет видео.
func (s *Storage) DeleteVideo(ctx context.Context, id string) error {
	const op = "storage.DeleteVideo"
	if err := ctxErr(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	return affectedOne(op, res, err)
}

// IncrementVideoViews увеличивает счётчик просмотров и возвращает новое значение.
func (s *Storage) IncrementVideoViews(ctx context.Context, id string) (int, error) {
	const op = "storage.IncrementVideoViews"
	if err := ctxErr(ctx, op); err != nil {
		return 0, err
	}

	var views int
	err := s.DB.QueryRowContext(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1 RETURNING views`, id).Scan(&views)
	if err != nil {
		return 0, wrap(op, err)
	}
	return views, nil
}
