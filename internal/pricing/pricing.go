// Package pricing computes the itemized price for one booking. The math
// must reproduce the backend's authoritative computation cent for cent:
// two-decimal rounding at every stage, service fee taken from the
// unrounded rental, totals never re-derived by subtraction.
package pricing

import (
	"errors"
	"math"

	"domebooking/internal/models"
)

var ErrInvalidPricing = errors.New("facility pricing config is missing or invalid")

// Tolerance is the allowed drift per stage when validating a breakdown
// against recomputation.
const Tolerance = 0.01

// round2 rounds half away from zero to two decimals, matching the
// backend's money rounding.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compute derives a full breakdown from the facility pricing config.
// discountAmount is already a concrete money amount, never a percentage.
func Compute(cfg models.PricingConfig, durationMinutes int, discountAmount float64) models.PricingBreakdown {
	if durationMinutes <= 0 {
		durationMinutes = models.SlotDurationMinutes
	}

	hours := float64(durationMinutes) / 60.0
	rentalRaw := cfg.CourtRental * hours

	rental := round2(rentalRaw)
	// Fee computed from the unrounded rental to avoid compounding
	// rounding error, then rounded itself.
	serviceFee := round2(rentalRaw * cfg.ServiceFeePercentage / 100.0)
	subtotal := round2(rental + serviceFee - discountAmount)
	tax := round2(subtotal * cfg.TaxPercentage / 100.0)
	finalTotal := round2(subtotal + tax)

	return models.PricingBreakdown{
		CourtRental:    rental,
		ServiceFee:     serviceFee,
		DiscountAmount: round2(discountAmount),
		Subtotal:       subtotal,
		Tax:            tax,
		FinalTotal:     finalTotal,
		Currency:       cfg.Currency,
	}
}

// Default returns the breakdown for a fresh 60-minute booking with no
// discount, used whenever a session is created or reset.
func Default(cfg models.PricingConfig) models.PricingBreakdown {
	return Compute(cfg, models.SlotDurationMinutes, 0)
}

// Validate recomputes subtotal and final total from the stored components
// and accepts up to one cent of drift per stage. Used as a sanity
// assertion after every breakdown mutation and to detect divergence
// between portal and backend pricing.
func Validate(b models.PricingBreakdown) bool {
	if b.CourtRental < 0 || b.ServiceFee < 0 || b.DiscountAmount < 0 || b.Tax < 0 {
		return false
	}

	subtotal := round2(b.CourtRental + b.ServiceFee - b.DiscountAmount)
	if math.Abs(subtotal-b.Subtotal) > Tolerance+1e-9 {
		return false
	}

	finalTotal := round2(b.Subtotal + b.Tax)
	return math.Abs(finalTotal-b.FinalTotal) <= Tolerance+1e-9
}

// ValidateConfig rejects pricing configs the engine cannot price. A
// facility with a zero or negative hourly rate must block progress past
// slot selection rather than silently produce a garbage total.
func ValidateConfig(cfg models.PricingConfig) error {
	if cfg.CourtRental <= 0 {
		return ErrInvalidPricing
	}
	if cfg.ServiceFeePercentage < 0 || cfg.TaxPercentage < 0 {
		return ErrInvalidPricing
	}
	return nil
}

// MinorUnits converts a two-decimal money amount into integer minor
// units for the payment intent.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
