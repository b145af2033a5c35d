// Package user реализует управление пользователями с правилами доступа администратора.
package user

import (
	"context"
	"errors"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

type Repository interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

var (
	errAccessDenied = apperr.Forbidden("Access denied")
	errUserNotFound = apperr.NotFound("User not found")
)

// List возвращает всех пользователей. Только для администратора.
func (s *Service) List(ctx context.Context, actor *models.User) ([]models.User, error) {
	if actor == nil {
		return nil, apperr.Unauthorized("Not authorized")
	}
	if !actor.IsAdmin() {
		return nil, errAccessDenied
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to list users", err)
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load user", err)
	}
	return u, nil
}

// Update меняет профиль. Пользователь может менять только себя,
// роль и email меняет только администратор.
func (s *Service) Update(ctx context.Context, actor *models.User, id string, upd models.ProfileUpdate) (*models.User, error) {
	if actor == nil {
		return nil, apperr.Unauthorized("Not authorized")
	}
	if actor.ID != id && !actor.IsAdmin() {
		return nil, errAccessDenied
	}
	if !actor.IsAdmin() && (upd.Role != nil || upd.Email != nil) {
		return nil, errAccessDenied
	}
	if upd.Role != nil {
		switch *upd.Role {
		case models.RoleAdmin, models.RoleSubscriber, models.RoleFree:
		default:
			return nil, apperr.InvalidInput("Unknown role")
		}
	}

	u, err := s.repo.UpdateUser(ctx, id, upd)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errUserNotFound
	}
	if errors.Is(err, repository.ErrConflict) {
		return nil, apperr.Conflict("Email is already taken")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to update user", err)
	}
	return u, nil
}

// Delete удаляет пользователя. Только для администратора.
func (s *Service) Delete(ctx context.Context, actor *models.User, id string) error {
	if actor == nil {
		return apperr.Unauthorized("Not authorized")
	}
	if !actor.IsAdmin() {
		return errAccessDenied
	}
	err := s.repo.DeleteUser(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errUserNotFound
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "Failed to delete user", err)
	}
	return nil
}
