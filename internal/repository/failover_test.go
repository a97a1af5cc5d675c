package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"domebooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) GetSession(ctx context.Context, id string) (*models.BookingSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingSession), args.Error(1)
}

func (m *mockSessionRepo) SaveSession(ctx context.Context, session *models.BookingSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionRepo) DeleteSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestFailoverSessionRepository(t *testing.T) {
	primary := new(mockSessionRepo)
	fallback := new(mockSessionRepo)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSessionRepository(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		session := &models.BookingSession{ID: "sess-1"}
		primary.On("GetSession", ctx, "sess-1").Return(session, nil).Once()

		got, err := repo.GetSession(ctx, "sess-1")
		assert.NoError(t, err)
		assert.Equal(t, session, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		session := &models.BookingSession{ID: "sess-2"}
		primary.On("GetSession", ctx, "sess-2").Return(nil, errors.New("fail")).Once()
		fallback.On("GetSession", ctx, "sess-2").Return(session, nil).Once()

		got, err := repo.GetSession(ctx, "sess-2")
		assert.NoError(t, err)
		assert.Equal(t, session, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)

		session := &models.BookingSession{ID: "sess-3"}
		primary.On("GetSession", ctx, "sess-3").Return(session, nil).Once()

		got, err := repo.GetSession(ctx, "sess-3")
		assert.NoError(t, err)
		assert.Equal(t, session, got)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)

		primary.On("GetSession", ctx, "sess-4").Return(nil, errors.New("still fail")).Once()
		fallback.On("GetSession", ctx, "sess-4").Return(nil, nil).Once()

		_, err := repo.GetSession(ctx, "sess-4")
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SaveSessionSuccess", func(t *testing.T) {
		repo.isDown.Store(false)
		session := &models.BookingSession{ID: "sess-5"}
		primary.On("SaveSession", ctx, session).Return(nil).Once()

		err := repo.SaveSession(ctx, session)
		assert.NoError(t, err)
		primary.AssertExpectations(t)
	})

	t.Run("SaveSessionFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		session := &models.BookingSession{ID: "sess-6"}
		primary.On("SaveSession", ctx, session).Return(errors.New("fail")).Once()
		fallback.On("SaveSession", ctx, session).Return(nil).Once()

		err := repo.SaveSession(ctx, session)
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DeleteSessionFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("DeleteSession", ctx, "sess-7").Return(errors.New("fail")).Once()
		fallback.On("DeleteSession", ctx, "sess-7").Return(nil).Once()

		err := repo.DeleteSession(ctx, "sess-7")
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SaveSessionAlreadyDown", func(t *testing.T) {
		repo.isDown.Store(true)
		session := &models.BookingSession{ID: "sess-8"}
		fallback.On("SaveSession", ctx, session).Return(nil).Once()

		err := repo.SaveSession(ctx, session)
		assert.NoError(t, err)
		fallback.AssertExpectations(t)
	})

	t.Run("DeleteSessionAlreadyDown", func(t *testing.T) {
		repo.isDown.Store(true)
		fallback.On("DeleteSession", ctx, "sess-9").Return(nil).Once()

		err := repo.DeleteSession(ctx, "sess-9")
		assert.NoError(t, err)
		fallback.AssertExpectations(t)
	})
}
