// Package content реализует каталог платформы: категории, видео и электронные книги,
// а также правила доступа к премиальному контенту и покупку книг.
package content

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type Repository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, c models.Category) (*models.Category, error)

	ListVideos(ctx context.Context, f models.VideoFilter) ([]models.Video, int, error)
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	CreateVideo(ctx context.Context, v models.Video) (*models.Video, error)
	UpdateVideo(ctx context.Context, v models.Video) (*models.Video, error)
	DeleteVideo(ctx context.Context, id string) error
	IncrementVideoViews(ctx context.Context, id string) (int, error)
	AddWatchHistory(ctx context.Context, userID, videoID string, at time.Time) error

	ListEbooks(ctx context.Context, f models.EbookFilter) ([]models.Ebook, int, error)
	GetEbook(ctx context.Context, id string) (*models.Ebook, error)
	CreateEbook(ctx context.Context, e models.Ebook) (*models.Ebook, error)
	IncrementEbookSales(ctx context.Context, id string) error

	FindCompletedOrder(ctx context.Context, userID, ebookID string) (*models.Order, error)
	CreateOrder(ctx context.Context, o models.Order) (*models.Order, error)
	SetOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	AddPurchasedEbook(ctx context.Context, userID, ebookID string) error
}

type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

var (
	errNotAuthorized = apperr.Unauthorized("Not authorized")
	errAccessDenied  = apperr.Forbidden("Access denied")
)

// normalizePage приводит page и limit к допустимым значениям.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func internal(msg string, err error) error {
	return apperr.Wrap(apperr.CodeInternal, msg, err)
}

// ListCategories возвращает все категории.
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, internal("Failed to list categories", err)
	}
	return categories, nil
}

// CreateCategory создает категорию. Только для администратора.
func (s *Service) CreateCategory(ctx context.Context, actor *models.User, c models.Category) (*models.Category, error) {
	if actor == nil {
		return nil, errNotAuthorized
	}
	if !actor.IsAdmin() {
		return nil, errAccessDenied
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, apperr.InvalidInput("Category name is required")
	}
	switch c.Type {
	case "":
		c.Type = models.CategoryBoth
	case models.CategoryVideo, models.CategoryEbook, models.CategoryBoth:
	default:
		return nil, apperr.InvalidInput("Unknown category type")
	}

	created, err := s.repo.CreateCategory(ctx, c)
	if errors.Is(err, repository.ErrConflict) {
		return nil, apperr.Conflict("Category already exists")
	}
	if err != nil {
		return nil, internal("Failed to create category", err)
	}
	return created, nil
}
