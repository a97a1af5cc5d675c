package pricing

import (
	"testing"

	"domebooking/internal/models"

	"github.com/stretchr/testify/assert"
)

func baseConfig() models.PricingConfig {
	return models.PricingConfig{
		CourtRental:          25,
		ServiceFeePercentage: 1,
		TaxPercentage:        13,
		Currency:             "CAD",
	}
}

func TestComputeWithoutDiscount(t *testing.T) {
	b := Compute(baseConfig(), 60, 0)

	assert.Equal(t, 25.00, b.CourtRental)
	assert.Equal(t, 0.25, b.ServiceFee)
	assert.Equal(t, 0.00, b.DiscountAmount)
	assert.Equal(t, 25.25, b.Subtotal)
	assert.Equal(t, 3.28, b.Tax) // 25.25 * 0.13 = 3.2825 -> 3.28
	assert.Equal(t, 28.53, b.FinalTotal)
	assert.Equal(t, "CAD", b.Currency)
}

func TestComputeWithDiscount(t *testing.T) {
	b := Compute(baseConfig(), 60, 10.00)

	assert.Equal(t, 25.00, b.CourtRental)
	assert.Equal(t, 0.25, b.ServiceFee)
	assert.Equal(t, 10.00, b.DiscountAmount)
	assert.Equal(t, 15.25, b.Subtotal)
	assert.Equal(t, 1.98, b.Tax) // 15.25 * 0.13 = 1.9825 -> 1.98
	assert.Equal(t, 17.23, b.FinalTotal)
}

func TestComputeIsDeterministic(t *testing.T) {
	first := Compute(baseConfig(), 60, 5.50)
	second := Compute(baseConfig(), 60, 5.50)
	assert.Equal(t, first, second)
}

func TestComputeDefaultsDuration(t *testing.T) {
	assert.Equal(t, Compute(baseConfig(), 60, 0), Compute(baseConfig(), 0, 0))
	assert.Equal(t, Compute(baseConfig(), 60, 0), Default(baseConfig()))
}

func TestComputedBreakdownsAlwaysValidate(t *testing.T) {
	rates := []float64{1, 19.99, 25, 42.5, 60, 113.33}
	fees := []float64{0, 1, 2.5, 7.25, 15}
	taxes := []float64{0, 5, 13, 14.975}
	discounts := []float64{0, 0.01, 5, 10}

	for _, rate := range rates {
		for _, fee := range fees {
			for _, tax := range taxes {
				for _, discountAmount := range discounts {
					cfg := models.PricingConfig{
						CourtRental:          rate,
						ServiceFeePercentage: fee,
						TaxPercentage:        tax,
					}
					if discountAmount > rate+rate*fee/100 {
						continue
					}
					b := Compute(cfg, 60, discountAmount)
					assert.True(t, Validate(b),
						"rate=%v fee=%v tax=%v discount=%v -> %+v",
						rate, fee, tax, discountAmount, b)
				}
			}
		}
	}
}

func TestValidateRejectsDrift(t *testing.T) {
	b := Compute(baseConfig(), 60, 0)
	b.FinalTotal += 0.02
	assert.False(t, Validate(b))

	b = Compute(baseConfig(), 60, 0)
	b.Subtotal -= 0.05
	assert.False(t, Validate(b))

	b = Compute(baseConfig(), 60, 0)
	b.DiscountAmount = -1
	assert.False(t, Validate(b))
}

func TestValidateToleratesOneCent(t *testing.T) {
	b := Compute(baseConfig(), 60, 0)
	b.FinalTotal += 0.01
	assert.True(t, Validate(b))
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(baseConfig()))

	bad := baseConfig()
	bad.CourtRental = 0
	assert.ErrorIs(t, ValidateConfig(bad), ErrInvalidPricing)

	bad = baseConfig()
	bad.TaxPercentage = -1
	assert.ErrorIs(t, ValidateConfig(bad), ErrInvalidPricing)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2853), MinorUnits(28.53))
	assert.Equal(t, int64(1723), MinorUnits(17.23))
	assert.Equal(t, int64(0), MinorUnits(0))
	// 19.99 is not exactly representable; rounding must still hit 1999.
	assert.Equal(t, int64(1999), MinorUnits(19.99))
}
