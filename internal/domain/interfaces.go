package domain

import (
	"context"

	"domebooking/internal/models"
)

// FacilityLoader fetches tenant config from the backend.
type FacilityLoader interface {
	GetFacility(ctx context.Context, slug string) (*models.FacilityConfig, error)
}

// FacilityProvider serves validated, immutable facility snapshots.
type FacilityProvider interface {
	Get(ctx context.Context, slug string) (*models.FacilityConfig, error)
}

// AvailabilityFetcher fetches the per-day availability snapshot.
type AvailabilityFetcher interface {
	GetAvailability(ctx context.Context, slug, date string) (models.AvailabilityGrid, error)
	InvalidateAvailability(ctx context.Context, slug, date string)
}

// AvailabilityView is what the session machine needs from the resolver:
// a bookability verdict for the currently loaded (facility, date) grid.
type AvailabilityView interface {
	IsAvailable(courtID int64, time24 string) bool
	IsPast(date, time24 string) bool
	Err() error
}

// DiscountValidator validates and prices a discount code.
type DiscountValidator interface {
	ApplyDiscount(ctx context.Context, slug, code string, baseAmount float64) (*models.DiscountResult, error)
}

// BookingBackend covers the three operations of the irreversible
// booking/payment flow.
type BookingBackend interface {
	CreateBooking(ctx context.Context, slug string, payload models.BookingPayload) (*models.BookingResult, error)
	CreatePaymentIntent(ctx context.Context, amountMinorUnits int64, currency string) (*models.PaymentIntent, error)
	ConfirmPayment(ctx context.Context, bookingID, paymentIntentID string) error
}

// CancellationBackend exposes the cancellation screen operations.
type CancellationBackend interface {
	GetCancellationDetails(ctx context.Context, bookingID string) (*models.CancellationDetails, error)
	CancelBooking(ctx context.Context, bookingID string) error
}

// SessionRepository stores in-progress booking sessions.
type SessionRepository interface {
	GetSession(ctx context.Context, id string) (*models.BookingSession, error)
	SaveSession(ctx context.Context, session *models.BookingSession) error
	DeleteSession(ctx context.Context, id string) error
}

// EventPublisher publishes domain events to the in-process bus.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
