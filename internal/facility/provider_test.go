package facility

import (
	"context"
	"errors"
	"testing"

	"domebooking/internal/models"
	"domebooking/internal/pricing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) GetFacility(ctx context.Context, slug string) (*models.FacilityConfig, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FacilityConfig), args.Error(1)
}

func validFacility() *models.FacilityConfig {
	return &models.FacilityConfig{
		ID:   7,
		Slug: "dome-main",
		Name: "Dome Main",
		Courts: []models.Court{
			{ID: 1, Name: "Court 1", Sport: models.SportBadminton},
			{ID: 2, Name: "Court 2", Sport: models.SportPickleball},
		},
		Pricing: models.PricingConfig{CourtRental: 25, ServiceFeePercentage: 1, TaxPercentage: 13, Currency: "CAD"},
	}
}

func newProvider(loader *mockLoader) *Provider {
	logger := zerolog.Nop()
	return NewProvider(loader, &logger)
}

func TestGetLoadsOnceAndCaches(t *testing.T) {
	loader := new(mockLoader)
	p := newProvider(loader)
	ctx := context.Background()

	loader.On("GetFacility", mock.Anything, "dome-main").Return(validFacility(), nil).Once()

	first, err := p.Get(ctx, "dome-main")
	require.NoError(t, err)

	second, err := p.Get(ctx, "dome-main")
	require.NoError(t, err)

	// Same immutable snapshot, single backend call.
	assert.Same(t, first, second)
	loader.AssertExpectations(t)
}

func TestGetDistinctSlugs(t *testing.T) {
	loader := new(mockLoader)
	p := newProvider(loader)
	ctx := context.Background()

	other := validFacility()
	other.Slug = "dome-east"

	loader.On("GetFacility", mock.Anything, "dome-main").Return(validFacility(), nil).Once()
	loader.On("GetFacility", mock.Anything, "dome-east").Return(other, nil).Once()

	main, err := p.Get(ctx, "dome-main")
	require.NoError(t, err)
	east, err := p.Get(ctx, "dome-east")
	require.NoError(t, err)

	assert.NotEqual(t, main.Slug, east.Slug)
	loader.AssertExpectations(t)
}

func TestGetLoaderFailure(t *testing.T) {
	loader := new(mockLoader)
	p := newProvider(loader)

	loader.On("GetFacility", mock.Anything, "dome-main").Return(nil, errors.New("connection refused")).Once()

	_, err := p.Get(context.Background(), "dome-main")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dome-main")
}

func TestGetRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.FacilityConfig)
	}{
		{"NoSlug", func(fc *models.FacilityConfig) { fc.Slug = "" }},
		{"NoCourts", func(fc *models.FacilityConfig) { fc.Courts = nil }},
		{"ZeroCourtID", func(fc *models.FacilityConfig) { fc.Courts[0].ID = 0 }},
		{"DuplicateCourtID", func(fc *models.FacilityConfig) { fc.Courts[1].ID = fc.Courts[0].ID }},
		{"ZeroRental", func(fc *models.FacilityConfig) { fc.Pricing.CourtRental = 0 }},
		{"NegativeTax", func(fc *models.FacilityConfig) { fc.Pricing.TaxPercentage = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := new(mockLoader)
			p := newProvider(loader)

			fc := validFacility()
			tt.mutate(fc)
			loader.On("GetFacility", mock.Anything, "dome-main").Return(fc, nil).Once()

			_, err := p.Get(context.Background(), "dome-main")
			assert.Error(t, err)
		})
	}
}

func TestGetRejectsBadPricingSentinel(t *testing.T) {
	loader := new(mockLoader)
	p := newProvider(loader)

	fc := validFacility()
	fc.Pricing.CourtRental = 0
	loader.On("GetFacility", mock.Anything, "dome-main").Return(fc, nil).Once()

	_, err := p.Get(context.Background(), "dome-main")
	assert.ErrorIs(t, err, pricing.ErrInvalidPricing)
}
