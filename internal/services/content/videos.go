package content

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

// VideoUpdate: изменяемые поля видео. nil означает «не менять».
type VideoUpdate struct {
	Title       *string
	Description *string
	Thumbnail   *string
	VideoURL    *string
	Duration    *int
	CategoryID  *string
	AccessLevel *models.AccessLevel
	Price       *float64
}

var errVideoNotFound = apperr.NotFound("Video not found")

func validAccessLevel(l models.AccessLevel) bool {
	return l == models.AccessFree || l == models.AccessPremium
}

// ListVideos возвращает страницу видео. Без подписки видны только бесплатные.
func (s *Service) ListVideos(ctx context.Context, viewer *models.User, f models.VideoFilter) (models.Page[models.Video], error) {
	if f.AccessLevel != "" && !validAccessLevel(f.AccessLevel) {
		return models.Page[models.Video]{}, apperr.InvalidInput("Unknown access level")
	}
	if !viewer.HasPremiumAccess() {
		f.AccessLevel = models.AccessFree
	}
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)

	videos, total, err := s.repo.ListVideos(ctx, f)
	if err != nil {
		return models.Page[models.Video]{}, internal("Failed to list videos", err)
	}
	return models.NewPage(videos, total, f.Page, f.Limit), nil
}

func (s *Service) loadVideo(ctx context.Context, id string) (*models.Video, error) {
	v, err := s.repo.GetVideo(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errVideoNotFound
	}
	if err != nil {
		return nil, internal("Failed to load video", err)
	}
	return v, nil
}

// GetVideo отдаёт видео, увеличивает счётчик просмотров и пишет историю просмотра.
// Премиальное видео доступно только подписчику или администратору.
func (s *Service) GetVideo(ctx context.Context, viewer *models.User, id string) (*models.Video, error) {
	v, err := s.loadVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.AccessLevel == models.AccessPremium && !viewer.HasPremiumAccess() {
		return nil, apperr.Forbidden("Premium content requires subscription")
	}

	views, err := s.repo.IncrementVideoViews(ctx, id)
	if err != nil {
		return nil, internal("Failed to update views", err)
	}
	v.Views = views

	if viewer != nil {
		if err := s.repo.AddWatchHistory(ctx, viewer.ID, id, s.now().UTC()); err != nil {
			s.log.Warn("failed to record watch history",
				slog.String("user_id", viewer.ID), slog.String("video_id", id), sl.Err(err))
		}
	}
	return v, nil
}

// CreateVideo сохраняет видео от имени администратора.
func (s *Service) CreateVideo(ctx context.Context, actor *models.User, v models.Video) (*models.Video, error) {
	if actor == nil {
		return nil, errNotAuthorized
	}
	if !actor.IsAdmin() {
		return nil, errAccessDenied
	}
	v.Title = strings.TrimSpace(v.Title)
	if v.Title == "" || v.VideoURL == "" || v.CategoryID == "" {
		return nil, apperr.InvalidInput("Title, video and category are required")
	}
	if v.AccessLevel == "" {
		v.AccessLevel = models.AccessFree
	}
	if !validAccessLevel(v.AccessLevel) {
		return nil, apperr.InvalidInput("Unknown access level")
	}
	if v.Duration < 0 {
		return nil, apperr.InvalidInput("Duration must not be negative")
	}
	v.CreatedBy = actor.ID

	created, err := s.repo.CreateVideo(ctx, v)
	if err != nil {
		return nil, internal("Failed to create video", err)
	}
	return created, nil
}

// canEdit сообщает, может ли actor менять видео: владелец или администратор.
func canEdit(actor *models.User, v *models.Video) bool {
	return actor.IsAdmin() || (actor != nil && actor.ID == v.CreatedBy)
}

func (s *Service) UpdateVideo(ctx context.Context, actor *models.User, id string, upd VideoUpdate) (*models.Video, error) {
	if actor == nil {
		return nil, errNotAuthorized
	}
	v, err := s.loadVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, v) {
		return nil, errAccessDenied
	}

	if upd.Title != nil {
		v.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		v.Description = *upd.Description
	}
	if upd.Thumbnail != nil {
		v.Thumbnail = *upd.Thumbnail
	}
	if upd.VideoURL != nil {
		v.VideoURL = *upd.VideoURL
	}
	if upd.Duration != nil {
		v.Duration = *upd.Duration
	}
	if upd.CategoryID != nil {
		v.CategoryID = *upd.CategoryID
	}
	if upd.AccessLevel != nil {
		v.AccessLevel = *upd.AccessLevel
	}
	if upd.Price != nil {
		v.Price = upd.Price
	}
	if v.Title == "" || v.VideoURL == "" || !validAccessLevel(v.AccessLevel) {
		return nil, apperr.InvalidInput("Video fields are not valid")
	}

	updated, err := s.repo.UpdateVideo(ctx, *v)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errVideoNotFound
	}
	if err != nil {
		return nil, internal("Failed to update video", err)
	}
	return updated, nil
}

func (s *Service) DeleteVideo(ctx context.Context, actor *models.User, id string) error {
	if actor == nil {
		return errNotAuthorized
	}
	v, err := s.loadVideo(ctx, id)
	if err != nil {
		return err
	}
	if !canEdit(actor, v) {
		return errAccessDenied
	}
	err = s.repo.DeleteVideo(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errVideoNotFound
	}
	if err != nil {
		return internal("Failed to delete video", err)
	}
	return nil
}
