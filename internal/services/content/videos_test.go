package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

func TestService_ListVideos(t *testing.T) {
	tests := []struct {
		name       string
		viewer     *models.User
		in         models.VideoFilter
		wantFilter models.VideoFilter
	}{
		{
			name:       "free user sees only free videos",
			viewer:     freeUser,
			in:         models.VideoFilter{AccessLevel: models.AccessPremium},
			wantFilter: models.VideoFilter{Page: 1, Limit: 10, AccessLevel: models.AccessFree},
		},
		{
			name:       "anonymous sees only free videos",
			viewer:     nil,
			in:         models.VideoFilter{Page: 2, Limit: 5},
			wantFilter: models.VideoFilter{Page: 2, Limit: 5, AccessLevel: models.AccessFree},
		},
		{
			name:       "subscriber keeps filter",
			viewer:     subscriber,
			in:         models.VideoFilter{CategoryID: "c1", Limit: 500},
			wantFilter: models.VideoFilter{Page: 1, Limit: 100, CategoryID: "c1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("ListVideos", mock.Anything, tt.wantFilter).
				Return([]models.Video{{ID: "v1"}}, 11, nil).Once()

			page, err := newService(repo).ListVideos(context.Background(), tt.viewer, tt.in)

			require.NoError(t, err)
			assert.Equal(t, 11, page.Total)
			assert.Equal(t, tt.wantFilter.Page, page.Page)
			assert.Equal(t, (11+tt.wantFilter.Limit-1)/tt.wantFilter.Limit, page.TotalPages)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_ListVideos_UnknownAccessLevel(t *testing.T) {
	_, err := newService(new(RepoMock)).ListVideos(context.Background(), admin, models.VideoFilter{AccessLevel: "gold"})
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
}

func TestService_GetVideo(t *testing.T) {
	premium := func() *models.Video {
		return &models.Video{ID: "v1", AccessLevel: models.AccessPremium, Views: 3, CreatedBy: "admin"}
	}

	tests := []struct {
		name       string
		viewer     *models.User
		setupMocks func(r *RepoMock)
		wantCode   apperr.Code
		wantViews  int
	}{
		{
			name:   "subscriber watches premium",
			viewer: subscriber,
			setupMocks: func(r *RepoMock) {
				r.On("GetVideo", mock.Anything, "v1").Return(premium(), nil).Once()
				r.On("IncrementVideoViews", mock.Anything, "v1").Return(4, nil).Once()
				r.On("AddWatchHistory", mock.Anything, "sub", "v1", fixedNow).Return(nil).Once()
			},
			wantViews: 4,
		},
		{
			name:   "free user is denied premium",
			viewer: freeUser,
			setupMocks: func(r *RepoMock) {
				r.On("GetVideo", mock.Anything, "v1").Return(premium(), nil).Once()
			},
			wantCode: apperr.CodeForbidden,
		},
		{
			name:   "watch history failure is not fatal",
			viewer: admin,
			setupMocks: func(r *RepoMock) {
				r.On("GetVideo", mock.Anything, "v1").Return(premium(), nil).Once()
				r.On("IncrementVideoViews", mock.Anything, "v1").Return(4, nil).Once()
				r.On("AddWatchHistory", mock.Anything, "admin", "v1", fixedNow).Return(errors.New("db error")).Once()
			},
			wantViews: 4,
		},
		{
			name:   "missing video",
			viewer: subscriber,
			setupMocks: func(r *RepoMock) {
				r.On("GetVideo", mock.Anything, "v1").Return(nil, repository.ErrNotFound).Once()
			},
			wantCode: apperr.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)

			v, err := newService(repo).GetVideo(context.Background(), tt.viewer, "v1")

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperr.CodeOf(err))
				repo.AssertNotCalled(t, "IncrementVideoViews", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantViews, v.Views)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_CreateVideo(t *testing.T) {
	repo := new(RepoMock)
	svc := newService(repo)

	_, err := svc.CreateVideo(context.Background(), subscriber, models.Video{Title: "t", VideoURL: "u", CategoryID: "c"})
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = svc.CreateVideo(context.Background(), admin, models.Video{Title: "t", CategoryID: "c"})
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	repo.On("CreateVideo", mock.Anything, mock.MatchedBy(func(v models.Video) bool {
		return v.CreatedBy == "admin" && v.AccessLevel == models.AccessFree && v.Title == "Intro"
	})).Return(&models.Video{ID: "v1"}, nil).Once()
	v, err := svc.CreateVideo(context.Background(), admin, models.Video{Title: " Intro ", VideoURL: "/uploads/v.mp4", CategoryID: "c"})
	require.NoError(t, err)
	assert.Equal(t, "v1", v.ID)
	repo.AssertExpectations(t)
}

func TestService_UpdateAndDeleteVideo(t *testing.T) {
	owned := func() *models.Video {
		return &models.Video{ID: "v1", Title: "Old", VideoURL: "/v.mp4", AccessLevel: models.AccessFree, CreatedBy: "sub"}
	}
	title := "New"

	t.Run("owner updates", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetVideo", mock.Anything, "v1").Return(owned(), nil).Once()
		repo.On("UpdateVideo", mock.Anything, mock.MatchedBy(func(v models.Video) bool {
			return v.ID == "v1" && v.Title == "New" && v.VideoURL == "/v.mp4"
		})).Return(&models.Video{ID: "v1", Title: "New"}, nil).Once()

		v, err := newService(repo).UpdateVideo(context.Background(), subscriber, "v1", VideoUpdate{Title: &title})

		require.NoError(t, err)
		assert.Equal(t, "New", v.Title)
		repo.AssertExpectations(t)
	})

	t.Run("stranger cannot update", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetVideo", mock.Anything, "v1").Return(owned(), nil).Once()

		_, err := newService(repo).UpdateVideo(context.Background(), freeUser, "v1", VideoUpdate{Title: &title})

		assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
		repo.AssertExpectations(t)
	})

	t.Run("admin deletes", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetVideo", mock.Anything, "v1").Return(owned(), nil).Once()
		repo.On("DeleteVideo", mock.Anything, "v1").Return(nil).Once()

		assert.NoError(t, newService(repo).DeleteVideo(context.Background(), admin, "v1"))
		repo.AssertExpectations(t)
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetVideo", mock.Anything, "v1").Return(owned(), nil).Once()

		err := newService(repo).DeleteVideo(context.Background(), freeUser, "v1")

		assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
		repo.AssertNotCalled(t, "DeleteVideo", mock.Anything, mock.Anything)
	})
}
