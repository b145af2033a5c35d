package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/storage/repository"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) InsertSubscriptionEvent(ctx context.Context, e models.SubscriptionEvent) (int64, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(int64), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRecorder_Handle(t *testing.T) {
	occurred := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	event := models.SubscriptionEvent{
		UserID:         "u1",
		SubscriptionID: "s1",
		Type:           models.EventActivated,
		Status:         models.StatusActive,
		Provider:       models.ProviderStripe,
		Reference:      "cs_1",
		OccurredAt:     occurred,
	}
	valid, err := json.Marshal(event)
	require.NoError(t, err)

	tests := []struct {
		name       string
		body       []byte
		setupMocks func(*MockRepository)
		wantErr    bool
	}{
		{
			name: "success",
			body: valid,
			setupMocks: func(r *MockRepository) {
				r.On("InsertSubscriptionEvent", mock.Anything, event).Return(int64(7), nil).Once()
			},
		},
		{
			name:       "malformed body is dropped",
			body:       []byte("{not json"),
			setupMocks: func(*MockRepository) {},
		},
		{
			name:       "event without user is dropped",
			body:       []byte(`{"type":"activated"}`),
			setupMocks: func(*MockRepository) {},
		},
		{
			name: "foreign key violation is dropped",
			body: valid,
			setupMocks: func(r *MockRepository) {
				fk := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "subscription_events_user_id_fkey"}
				r.On("InsertSubscriptionEvent", mock.Anything, event).
					Return(int64(0), fmt.Errorf("storage.InsertSubscriptionEvent: %w", fk)).Once()
			},
		},
		{
			name: "conflict is dropped",
			body: valid,
			setupMocks: func(r *MockRepository) {
				r.On("InsertSubscriptionEvent", mock.Anything, event).
					Return(int64(0), fmt.Errorf("storage.InsertSubscriptionEvent: %w", repository.ErrConflict)).Once()
			},
		},
		{
			name: "repository error is returned for redelivery",
			body: valid,
			setupMocks: func(r *MockRepository) {
				r.On("InsertSubscriptionEvent", mock.Anything, event).Return(int64(0), errors.New("db error")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)
			recorder := NewRecorder(repo, newNoopLogger())

			err := recorder.Handle(context.Background(), tt.body)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestDirectPublisher_Publish(t *testing.T) {
	repo := new(MockRepository)
	event := models.SubscriptionEvent{
		UserID:     "u1",
		Type:       models.EventCanceled,
		Status:     models.StatusCanceled,
		Provider:   models.ProviderPaystack,
		OccurredAt: time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC),
	}
	repo.On("InsertSubscriptionEvent", mock.Anything, event).Return(int64(1), nil).Once()

	p := NewDirectPublisher(NewRecorder(repo, newNoopLogger()))
	err := p.Publish(context.Background(), event.Type.RoutingKey(), event)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
