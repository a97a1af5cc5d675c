// Package discount reconciles a customer-entered code with the backend's
// discount validation service.
package discount

import (
	"context"
	"errors"
	"strings"

	"domebooking/internal/backend"
	"domebooking/internal/domain"
	"domebooking/internal/metrics"
	"domebooking/internal/models"
	"domebooking/internal/pricing"

	"github.com/rs/zerolog"
)

// GenericMessage is shown whenever the transport layer has nothing more
// specific to say.
const GenericMessage = "Invalid discount code"

var (
	// ErrInvalidCode covers empty, unknown and rejected codes. Errors
	// carrying a backend-supplied message still match it via errors.Is.
	ErrInvalidCode = errors.New(GenericMessage)

	// ErrAlreadyApplied rejects a second code without a network call.
	// The backend may not be idempotent for repeated applications, so
	// this is enforced client-side as a hard invariant.
	ErrAlreadyApplied = errors.New("a discount code has already been applied")
)

// codeError keeps the backend's wording while matching ErrInvalidCode.
type codeError struct{ msg string }

func (e *codeError) Error() string        { return e.msg }
func (e *codeError) Is(target error) bool { return target == ErrInvalidCode }

type Service struct {
	backend domain.DiscountValidator
	logger  *zerolog.Logger
}

func NewService(backend domain.DiscountValidator, logger *zerolog.Logger) *Service {
	return &Service{backend: backend, logger: logger}
}

// Apply validates the trimmed code against the current rental amount and
// recomputes the breakdown with the returned discount. On any failure the
// caller keeps its existing breakdown; this function never mutates state.
func (s *Service) Apply(ctx context.Context, session *models.BookingSession, cfg models.PricingConfig, code string) (models.PricingBreakdown, error) {
	if session.DiscountApplied {
		return models.PricingBreakdown{}, ErrAlreadyApplied
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return models.PricingBreakdown{}, ErrInvalidCode
	}

	result, err := s.backend.ApplyDiscount(ctx, session.FacilitySlug, code, session.Pricing.CourtRental)
	if err != nil {
		s.logger.Warn().Err(err).Str("facility", session.FacilitySlug).Msg("discount validation failed")
		return models.PricingBreakdown{}, &codeError{msg: messageFor(err)}
	}

	breakdown := pricing.Compute(cfg, models.SlotDurationMinutes, result.DiscountAmount)
	if !pricing.Validate(breakdown) {
		return models.PricingBreakdown{}, &codeError{msg: GenericMessage}
	}

	metrics.IncDiscountApplied()
	return breakdown, nil
}

// messageFor surfaces a backend-supplied message when there is one and
// falls back to the generic wording otherwise.
func messageFor(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericMessage
}
