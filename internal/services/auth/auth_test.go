package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	customjwt "github.com/magabrotheeeer/character-matters/internal/lib/jwt"
	"github.com/magabrotheeeer/character-matters/internal/lib/password"
	"github.com/magabrotheeeer/character-matters/internal/models"
	services "github.com/magabrotheeeer/character-matters/internal/services/auth"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpdateUser(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// Мок для jwt.Maker
type JwtMakerMock struct {
	mock.Mock
}

func (m *JwtMakerMock) GenerateToken(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *JwtMakerMock) ParseToken(token string) (*customjwt.CustomClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.CustomClaims), args.Error(1)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		setupMocks func(r *UserRepoMock, j *JwtMakerMock)
		wantCode   apperr.Code
	}{
		{
			name:     "successful registration",
			password: "password123",
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
					return user.Email == "ann@example.com" &&
						user.Name == "Ann" &&
						user.PasswordHash != "" &&
						user.PasswordHash != "password123" &&
						user.Role == models.RoleFree
				})).Return(&models.User{ID: "u1", Email: "ann@example.com", Role: models.RoleFree}, nil).Once()
				j.On("GenerateToken", "u1").Return("token-u1", nil).Once()
			},
		},
		{
			name:     "email already taken",
			password: "password123",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).Return(nil, repository.ErrConflict).Once()
			},
			wantCode: apperr.CodeConflict,
		},
		{
			name:     "database error",
			password: "password123",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).Return(nil, errors.New("db error")).Once()
			},
			wantCode: apperr.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			maker := new(JwtMakerMock)
			tt.setupMocks(repo, maker)
			svc := services.NewAuthService(repo, maker)

			user, token, err := svc.Register(context.Background(), " Ann ", "ann@example.com", tt.password)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperr.CodeOf(err))
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "u1", user.ID)
				assert.Equal(t, "token-u1", token)
			}
			repo.AssertExpectations(t)
			maker.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash, err := password.GetHash("secret123")
	require.NoError(t, err)
	stored := &models.User{ID: "u1", Email: "ann@example.com", PasswordHash: hash, Role: models.RoleSubscriber}

	tests := []struct {
		name       string
		password   string
		setupMocks func(r *UserRepoMock, j *JwtMakerMock)
		wantCode   apperr.Code
	}{
		{
			name:     "successful login",
			password: "secret123",
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUserByEmail", mock.Anything, "ann@example.com").Return(stored, nil).Once()
				j.On("GenerateToken", "u1").Return("token-u1", nil).Once()
			},
		},
		{
			name:     "wrong password",
			password: "wrong",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByEmail", mock.Anything, "ann@example.com").Return(stored, nil).Once()
			},
			wantCode: apperr.CodeUnauthorized,
		},
		{
			name:     "unknown email",
			password: "secret123",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByEmail", mock.Anything, "ann@example.com").Return(nil, repository.ErrNotFound).Once()
			},
			wantCode: apperr.CodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			maker := new(JwtMakerMock)
			tt.setupMocks(repo, maker)
			svc := services.NewAuthService(repo, maker)

			user, token, err := svc.Login(context.Background(), "ann@example.com", tt.password)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperr.CodeOf(err))
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				assert.Equal(t, models.RoleSubscriber, user.Role)
				assert.Equal(t, "token-u1", token)
			}
			repo.AssertExpectations(t)
			maker.AssertExpectations(t)
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	repo := new(UserRepoMock)
	maker := new(JwtMakerMock)
	svc := services.NewAuthService(repo, maker)

	maker.On("ParseToken", "good").Return(&customjwt.CustomClaims{UserID: "u1"}, nil).Once()
	repo.On("GetUserByID", mock.Anything, "u1").Return(&models.User{ID: "u1", Role: models.RoleAdmin}, nil).Once()
	user, err := svc.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	maker.On("ParseToken", "bad").Return(nil, errors.New("token is expired")).Once()
	_, err = svc.Authenticate(context.Background(), "bad")
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	maker.On("ParseToken", "orphan").Return(&customjwt.CustomClaims{UserID: "gone"}, nil).Once()
	repo.On("GetUserByID", mock.Anything, "gone").Return(nil, repository.ErrNotFound).Once()
	_, err = svc.Authenticate(context.Background(), "orphan")
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	repo.AssertExpectations(t)
	maker.AssertExpectations(t)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	repo := new(UserRepoMock)
	svc := services.NewAuthService(repo, new(JwtMakerMock))
	name := "Ann B"

	repo.On("UpdateUser", mock.Anything, "u1", models.ProfileUpdate{Name: &name}).
		Return(&models.User{ID: "u1", Name: name}, nil).Once()
	user, err := svc.UpdateProfile(context.Background(), "u1", &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ann B", user.Name)

	repo.On("UpdateUser", mock.Anything, "u2", mock.Anything).Return(nil, repository.ErrNotFound).Once()
	_, err = svc.UpdateProfile(context.Background(), "u2", &name, nil)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	repo.AssertExpectations(t)
}
