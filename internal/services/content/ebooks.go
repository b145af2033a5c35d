package content

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

// EbookDetails: книга и признак её покупки текущим пользователем.
type EbookDetails struct {
	models.Ebook
	HasPurchased bool `json:"hasPurchased"`
}

var errEbookNotFound = apperr.NotFound("EBook not found")

func (s *Service) ListEbooks(ctx context.Context, f models.EbookFilter) (models.Page[models.Ebook], error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return models.Page[models.Ebook]{}, apperr.InvalidInput("minPrice must not exceed maxPrice")
	}
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)

	ebooks, total, err := s.repo.ListEbooks(ctx, f)
	if err != nil {
		return models.Page[models.Ebook]{}, internal("Failed to list ebooks", err)
	}
	return models.NewPage(ebooks, total, f.Page, f.Limit), nil
}

func (s *Service) loadEbook(ctx context.Context, id string) (*models.Ebook, error) {
	e, err := s.repo.GetEbook(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errEbookNotFound
	}
	if err != nil {
		return nil, internal("Failed to load ebook", err)
	}
	return e, nil
}

// hasPurchased ищет завершённый заказ пользователя на книгу.
func (s *Service) hasPurchased(ctx context.Context, userID, ebookID string) (bool, error) {
	_, err := s.repo.FindCompletedOrder(ctx, userID, ebookID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, internal("Failed to load orders", err)
	}
	return true, nil
}

func (s *Service) GetEbook(ctx context.Context, viewer *models.User, id string) (*EbookDetails, error) {
	e, err := s.loadEbook(ctx, id)
	if err != nil {
		return nil, err
	}
	details := &EbookDetails{Ebook: *e}
	if viewer != nil {
		details.HasPurchased, err = s.hasPurchased(ctx, viewer.ID, id)
		if err != nil {
			return nil, err
		}
	}
	return details, nil
}

// CreateEbook сохраняет книгу от имени администратора.
func (s *Service) CreateEbook(ctx context.Context, actor *models.User, e models.Ebook) (*models.Ebook, error) {
	if actor == nil {
		return nil, errNotAuthorized
	}
	if !actor.IsAdmin() {
		return nil, errAccessDenied
	}
	e.Title = strings.TrimSpace(e.Title)
	e.Author = strings.TrimSpace(e.Author)
	if e.Title == "" || e.Author == "" || e.FileURL == "" || e.CategoryID == "" {
		return nil, apperr.InvalidInput("Title, author, file and category are required")
	}
	if e.Price < 0 || e.Pages < 0 {
		return nil, apperr.InvalidInput("Price and pages must not be negative")
	}
	e.CreatedBy = actor.ID

	created, err := s.repo.CreateEbook(ctx, e)
	if err != nil {
		return nil, internal("Failed to create ebook", err)
	}
	return created, nil
}

// Purchase оформляет покупку книги: заказ pending → completed,
// книга добавляется в купленные, счётчик продаж растёт.
func (s *Service) Purchase(ctx context.Context, user *models.User, ebookID string) (*models.Order, error) {
	if user == nil {
		return nil, errNotAuthorized
	}
	e, err := s.loadEbook(ctx, ebookID)
	if err != nil {
		return nil, err
	}
	purchased, err := s.hasPurchased(ctx, user.ID, ebookID)
	if err != nil {
		return nil, err
	}
	if purchased {
		return nil, apperr.Conflict("EBook already purchased")
	}

	order, err := s.repo.CreateOrder(ctx, models.Order{
		UserID:  user.ID,
		EbookID: e.ID,
		Amount:  e.Price,
		Status:  models.OrderPending,
	})
	if err != nil {
		return nil, internal("Failed to create order", err)
	}
	order, err = s.repo.SetOrderStatus(ctx, order.ID, models.OrderCompleted)
	if err != nil {
		return nil, internal("Failed to complete order", err)
	}
	if err := s.repo.AddPurchasedEbook(ctx, user.ID, e.ID); err != nil {
		return nil, internal("Failed to record purchase", err)
	}
	if err := s.repo.IncrementEbookSales(ctx, e.ID); err != nil {
		return nil, internal("Failed to update sales", err)
	}

	s.log.Info("ebook purchased", slog.String("user_id", user.ID), slog.String("ebook_id", e.ID))
	return order, nil
}
