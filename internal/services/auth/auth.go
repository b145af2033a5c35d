// Package auth содержит регистрацию, вход и работу с профилем текущего пользователя.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/lib/jwt"
	"github.com/magabrotheeeer/character-matters/internal/lib/password"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя. repository.ErrConflict, если email занят.
	CreateUser(ctx context.Context, user models.User) (*models.User, error)

	// GetUserByEmail возвращает пользователя по email или repository.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

var errInvalidCredentials = apperr.Unauthorized("Invalid credentials")

// Register создает пользователя с ролью free-user и сразу выпускает для него токен.
func (s *AuthService) Register(ctx context.Context, name, email, rawPassword string) (*models.User, string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeInvalidInput, "Password is not acceptable", err)
	}
	user, err := s.users.CreateUser(ctx, models.User{
		Email:        strings.TrimSpace(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		Role:         models.RoleFree,
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, "", apperr.Conflict("User already exists")
	}
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeInternal, "Failed to create user", err)
	}

	token, err := s.jwtMaker.GenerateToken(user.ID)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeInternal, "Failed to issue token", err)
	}
	return user, token, nil
}

// Login проверяет пароль пользователя и выпускает JWT.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*models.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", errInvalidCredentials
	}
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeInternal, "Failed to load user", err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, "", errInvalidCredentials
	}

	token, err := s.jwtMaker.GenerateToken(user.ID)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeInternal, "Failed to issue token", err)
	}
	return user, token, nil
}

// Authenticate проверяет токен и загружает актуального пользователя.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnauthorized, "Token is not valid", err)
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized("User not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load user", err)
	}
	return user, nil
}

// Profile возвращает пользователя по идентификатору.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to load user", err)
	}
	return user, nil
}

// UpdateProfile меняет имя и аватар. Остальные поля профиля здесь не меняются.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, name, avatar *string) (*models.User, error) {
	user, err := s.users.UpdateUser(ctx, userID, models.ProfileUpdate{Name: name, Avatar: avatar})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to update profile", err)
	}
	return user, nil
}
