// Package session drives the irreversible three-step booking/payment
// flow: slot selection, details, payment, done.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"domebooking/internal/availability"
	"domebooking/internal/backend"
	"domebooking/internal/discount"
	"domebooking/internal/domain"
	"domebooking/internal/events"
	"domebooking/internal/metrics"
	"domebooking/internal/models"
	"domebooking/internal/pricing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound        = errors.New("booking session not found")
	ErrWrongStep       = errors.New("operation not allowed at this step")
	ErrSlotUnavailable = errors.New("this time slot is not available")
	ErrSlotInPast      = errors.New("this time slot has already started")
	ErrRequestInFlight = errors.New("a request is already in progress")
	ErrValidation      = errors.New("validation failed")
	ErrTenantMismatch  = errors.New("session belongs to a different facility")
)

// Machine owns the step sequence and the accumulating booking payload.
// It never trusts its own availability view for correctness: the backend
// rejects conflicting createBooking calls after a stale read.
type Machine struct {
	facilities domain.FacilityProvider
	grid       domain.AvailabilityView
	discounts  *discount.Service
	backend    domain.BookingBackend
	sessions   domain.SessionRepository
	bus        domain.EventPublisher
	validate   *validator.Validate
	logger     *zerolog.Logger
}

func NewMachine(
	facilities domain.FacilityProvider,
	grid domain.AvailabilityView,
	discounts *discount.Service,
	bookingBackend domain.BookingBackend,
	sessions domain.SessionRepository,
	bus domain.EventPublisher,
	logger *zerolog.Logger,
) *Machine {
	return &Machine{
		facilities: facilities,
		grid:       grid,
		discounts:  discounts,
		backend:    bookingBackend,
		sessions:   sessions,
		bus:        bus,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Create opens a fresh session for one tenant. A facility with unusable
// pricing fails here, before any slot can be selected.
func (m *Machine) Create(ctx context.Context, slug string) (*models.BookingSession, error) {
	fc, err := m.facilities.Get(ctx, slug)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &models.BookingSession{
		ID:           uuid.NewString(),
		FacilitySlug: fc.Slug,
		Step:         models.StepSlotSelect,
		Pricing:      pricing.Default(fc.Pricing),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (m *Machine) Get(ctx context.Context, id string) (*models.BookingSession, error) {
	return m.load(ctx, id)
}

// SelectSlot validates a (court, date, slot) pick against the resolver's
// view. Clicks on past or unavailable slots are rejected without a
// transition; a valid pick reinitializes pricing from facility defaults
// and moves to Details.
func (m *Machine) SelectSlot(ctx context.Context, id string, courtID int64, date, slotLabel string) (*models.BookingSession, error) {
	session, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Step != models.StepSlotSelect {
		return session, ErrWrongStep
	}

	fc, err := m.facilities.Get(ctx, session.FacilitySlug)
	if err != nil {
		return session, err
	}
	if fc.CourtByID(courtID) == nil {
		return session, fmt.Errorf("%w: unknown court %d", ErrValidation, courtID)
	}

	start24, err := availability.To24Hour(slotLabel)
	if err != nil {
		// Layout components send 24-hour keys directly.
		if _, err24 := availability.AddMinutes(slotLabel, 0); err24 != nil {
			return session, fmt.Errorf("%w: invalid slot %q", ErrValidation, slotLabel)
		}
		start24 = slotLabel
	}

	if gridErr := m.grid.Err(); gridErr != nil {
		return session, gridErr
	}
	if m.grid.IsPast(date, start24) {
		return session, ErrSlotInPast
	}
	if !m.grid.IsAvailable(courtID, start24) {
		return session, ErrSlotUnavailable
	}

	session.SelectedDate = date
	session.SelectedCourt = courtID
	session.SelectedSlot = start24
	session.Pricing = pricing.Default(fc.Pricing)
	session.DiscountApplied = false
	session.Customer.DiscountCode = ""
	session.Step = models.StepDetails
	session.ClearErrors()

	if err := m.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SubmitDetails validates customer fields locally, assembles the booking
// payload and calls the create-booking operation. On failure no booking
// identifier is stored and the session stays at Details with a retry path.
func (m *Machine) SubmitDetails(ctx context.Context, id string, details models.CustomerDetails) (*models.BookingSession, error) {
	session, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Step != models.StepDetails {
		return session, ErrWrongStep
	}
	if session.InFlight {
		return session, ErrRequestInFlight
	}

	details.Name = strings.TrimSpace(details.Name)
	details.Email = strings.TrimSpace(details.Email)

	if fieldErrors := m.validateDetails(&details); len(fieldErrors) > 0 {
		session.ClearErrors()
		for field, message := range fieldErrors {
			session.SetError(field, message)
		}
		if err := m.save(ctx, session); err != nil {
			return nil, err
		}
		return session, ErrValidation
	}

	fc, err := m.facilities.Get(ctx, session.FacilitySlug)
	if err != nil {
		return session, err
	}

	endTime, err := availability.AddMinutes(session.SelectedSlot, models.SlotDurationMinutes)
	if err != nil {
		return session, fmt.Errorf("%w: no slot selected", ErrValidation)
	}

	// The applied discount code is frozen; a code typed but never
	// applied is not sent.
	appliedCode := ""
	if session.DiscountApplied {
		appliedCode = session.Customer.DiscountCode
	}
	details.DiscountCode = appliedCode
	session.Customer = details

	payload := models.BookingPayload{
		FacilityID:     fc.ID,
		CourtNumber:    session.SelectedCourt,
		BookingDate:    session.SelectedDate,
		StartTime:      session.SelectedSlot,
		EndTime:        endTime,
		Duration:       models.SlotDurationMinutes,
		TotalAmount:    session.Pricing.FinalTotal,
		DiscountCode:   appliedCode,
		DiscountAmount: session.Pricing.DiscountAmount,
		CustomerName:   details.Name,
		CustomerEmail:  details.Email,
		CustomerPhone:  details.Phone,
		UserID:         details.UserID,
		Source:         models.BookingSource,
	}

	session.InFlight = true
	if err := m.save(ctx, session); err != nil {
		return nil, err
	}

	result, err := m.backend.CreateBooking(ctx, session.FacilitySlug, payload)

	session.InFlight = false
	if err != nil {
		message := "Unable to create booking. Please try again."
		if errors.Is(err, backend.ErrConflict) {
			message = "This time slot is no longer available. Please pick another slot."
		}
		session.SetError("submit", message)
		if saveErr := m.save(ctx, session); saveErr != nil {
			return nil, saveErr
		}
		m.logger.Error().Err(err).Str("session_id", session.ID).Msg("create booking failed")
		return session, err
	}

	session.BookingID = result.BookingID
	session.Step = models.StepPayment
	session.ClearErrors()
	if err := m.save(ctx, session); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	m.publishBookingEvent(events.EventBookingCreated, session)
	return session, nil
}

// EnsurePaymentIntent requests a payment intent sized to the final total
// in minor units. Idempotent: an existing client secret is reused.
func (m *Machine) EnsurePaymentIntent(ctx context.Context, id string) (*models.BookingSession, error) {
	session, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Step != models.StepPayment {
		return session, ErrWrongStep
	}
	if session.ClientSecret != "" {
		return session, nil
	}

	intent, err := m.backend.CreatePaymentIntent(ctx, pricing.MinorUnits(session.Pricing.FinalTotal), session.Pricing.Currency)
	if err != nil {
		session.SetError("payment", "Unable to start payment. Please try again.")
		if saveErr := m.save(ctx, session); saveErr != nil {
			return nil, saveErr
		}
		return session, err
	}

	session.PaymentIntentID = intent.ID
	session.ClientSecret = intent.ClientSecret
	session.ClearErrors()
	if err := m.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ConfirmPayment reports the card collector's success to the backend and
// transitions to Done. A confirm failure keeps the session at Payment and
// keeps the bookingId: the created-but-unpaid booking is the backend's to
// reconcile, never rolled back here.
func (m *Machine) ConfirmPayment(ctx context.Context, id, paymentIntentID string) (*models.BookingSession, error) {
	session, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Step != models.StepPayment {
		return session, ErrWrongStep
	}
	if session.InFlight {
		return session, ErrRequestInFlight
	}
	if paymentIntentID == "" {
		paymentIntentID = session.PaymentIntentID
	}

	session.InFlight = true
	if err := m.save(ctx, session); err != nil {
		return nil, err
	}

	err = m.backend.ConfirmPayment(ctx, session.BookingID, paymentIntentID)

	session.InFlight = false
	if err != nil {
		metrics.IncPaymentFailure()
		session.SetError("payment", "Payment confirmation failed. Please try again.")
		if saveErr := m.save(ctx, session); saveErr != nil {
			return nil, saveErr
		}
		m.logger.Error().Err(err).
			Str("session_id", session.ID).
			Str("booking_id", session.BookingID).
			Msg("confirm payment failed; booking left for backend reconciliation")
		return session, err
	}

	session.Step = models.StepDone
	session.ClearErrors()
	if err := m.save(ctx, session); err != nil {
		return nil, err
	}

	metrics.IncPaymentConfirmed()
	m.publishBookingEvent(events.EventPaymentConfirmed, session)
	return session, nil
}

// Back steps Details->SlotSelect or Payment->Details. The selected date
// survives a return to slot selection.
func (m *Machine) Back(ctx context.Context, id string) (*models.BookingSession, error) {
	session, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch session.Step {
	case models.StepDetails:
		session.Step = models.StepSlotSelect
	case models.StepPayment:
		session.Step = models.StepDetails
	default:
		return session, ErrWrongStep
	}

	session.ClearErrors()
	if err := m.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Reset clears selection, customer fields and pricing back to facility
// defaults and returns to SlotSelect.
func (m *Machine) Reset(ctx context.Context, id string) (*models.BookingSession, error) {
	session, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	fc, err := m.facilities.Get(ctx, session.FacilitySlug)
	if err != nil {
		return session, err
	}

	session.Step = models.StepSlotSelect
	session.SelectedDate = ""
	session.SelectedCourt = 0
	session.SelectedSlot = ""
	session.Customer = models.CustomerDetails{}
	session.Pricing = pricing.Default(fc.Pricing)
	session.DiscountApplied = false
	session.BookingID = ""
	session.PaymentIntentID = ""
	session.ClientSecret = ""
	session.InFlight = false
	session.ClearErrors()

	if err := m.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ApplyDiscount delegates to the reconciliation service. A failure leaves
// the existing breakdown untouched; success freezes the code.
func (m *Machine) ApplyDiscount(ctx context.Context, id, code string) (*models.BookingSession, error) {
	session, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Step != models.StepDetails {
		return session, ErrWrongStep
	}

	fc, err := m.facilities.Get(ctx, session.FacilitySlug)
	if err != nil {
		return session, err
	}

	breakdown, err := m.discounts.Apply(ctx, session, fc.Pricing, code)
	if err != nil {
		session.SetError("discountCode", err.Error())
		if saveErr := m.save(ctx, session); saveErr != nil {
			return nil, saveErr
		}
		return session, err
	}

	session.Pricing = breakdown
	session.DiscountApplied = true
	session.Customer.DiscountCode = strings.TrimSpace(code)
	if session.Errors != nil {
		delete(session.Errors, "discountCode")
	}

	if err := m.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (m *Machine) load(ctx context.Context, id string) (*models.BookingSession, error) {
	session, err := m.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotFound
	}
	return session, nil
}

func (m *Machine) save(ctx context.Context, session *models.BookingSession) error {
	session.UpdatedAt = time.Now()
	return m.sessions.SaveSession(ctx, session)
}

func (m *Machine) validateDetails(details *models.CustomerDetails) map[string]string {
	err := m.validate.Struct(details)
	if err == nil {
		return nil
	}

	fieldErrors := make(map[string]string)
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		fieldErrors["submit"] = "Invalid customer details"
		return fieldErrors
	}

	for _, fe := range invalid {
		switch fe.Field() {
		case "Name":
			fieldErrors["name"] = "Name is required"
		case "Email":
			if fe.Tag() == "required" {
				fieldErrors["email"] = "Email is required"
			} else {
				fieldErrors["email"] = "Enter a valid email address"
			}
		}
	}
	return fieldErrors
}

func (m *Machine) publishBookingEvent(eventType string, session *models.BookingSession) {
	if m.bus == nil {
		return
	}
	payload := events.BookingEventPayload{
		SessionID:    session.ID,
		BookingID:    session.BookingID,
		FacilitySlug: session.FacilitySlug,
		CourtID:      session.SelectedCourt,
		Date:         session.SelectedDate,
		StartTime:    session.SelectedSlot,
		TotalAmount:  session.Pricing.FinalTotal,
	}
	if err := m.bus.PublishJSON(eventType, payload); err != nil {
		m.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}
