package discount

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"domebooking/internal/backend"
	"domebooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) ApplyDiscount(ctx context.Context, slug, code string, baseAmount float64) (*models.DiscountResult, error) {
	args := m.Called(ctx, slug, code, baseAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DiscountResult), args.Error(1)
}

func testConfig() models.PricingConfig {
	return models.PricingConfig{CourtRental: 25, ServiceFeePercentage: 1, TaxPercentage: 13, Currency: "CAD"}
}

func testSession() *models.BookingSession {
	return &models.BookingSession{
		ID:           "sess-1",
		FacilitySlug: "dome-main",
		Step:         models.StepDetails,
		Pricing: models.PricingBreakdown{
			CourtRental: 25.00, ServiceFee: 0.25, Subtotal: 25.25, Tax: 3.28, FinalTotal: 28.53, Currency: "CAD",
		},
	}
}

func newService(v *mockValidator) *Service {
	logger := zerolog.Nop()
	return NewService(v, &logger)
}

func TestApplySuccessRecomputesBreakdown(t *testing.T) {
	validator := new(mockValidator)
	s := newService(validator)

	validator.On("ApplyDiscount", mock.Anything, "dome-main", "SAVE10", 25.00).
		Return(&models.DiscountResult{DiscountAmount: 10.00}, nil).Once()

	b, err := s.Apply(context.Background(), testSession(), testConfig(), "  SAVE10  ")
	require.NoError(t, err)

	assert.Equal(t, 10.00, b.DiscountAmount)
	assert.Equal(t, 15.25, b.Subtotal)
	assert.Equal(t, 1.98, b.Tax)
	assert.Equal(t, 17.23, b.FinalTotal)
	validator.AssertExpectations(t)
}

func TestApplyEmptyCode(t *testing.T) {
	validator := new(mockValidator)
	s := newService(validator)

	_, err := s.Apply(context.Background(), testSession(), testConfig(), "   ")
	assert.ErrorIs(t, err, ErrInvalidCode)
	validator.AssertNotCalled(t, "ApplyDiscount")
}

func TestApplySecondCodeRejectedWithoutNetworkCall(t *testing.T) {
	validator := new(mockValidator)
	s := newService(validator)

	session := testSession()
	session.DiscountApplied = true

	_, err := s.Apply(context.Background(), session, testConfig(), "ANOTHER")
	assert.ErrorIs(t, err, ErrAlreadyApplied)
	validator.AssertNotCalled(t, "ApplyDiscount")
}

func TestApplyNetworkFailureUsesGenericMessage(t *testing.T) {
	validator := new(mockValidator)
	s := newService(validator)

	validator.On("ApplyDiscount", mock.Anything, "dome-main", "SAVE10", 25.00).
		Return(nil, errors.New("dial tcp: connection refused")).Once()

	_, err := s.Apply(context.Background(), testSession(), testConfig(), "SAVE10")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, GenericMessage, err.Error())
}

func TestApplyKeepsBackendMessage(t *testing.T) {
	validator := new(mockValidator)
	s := newService(validator)

	validator.On("ApplyDiscount", mock.Anything, "dome-main", "EXPIRED", 25.00).
		Return(nil, &backend.APIError{Status: http.StatusUnprocessableEntity, Message: "This code has expired"}).Once()

	_, err := s.Apply(context.Background(), testSession(), testConfig(), "EXPIRED")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, "This code has expired", err.Error())
}
