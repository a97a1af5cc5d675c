package models

import "time"

// PricingBreakdown is the itemized price for one booking. Every field is
// rounded to two decimals at the point of computation and never re-derived
// by subtraction elsewhere.
type PricingBreakdown struct {
	CourtRental    float64 `json:"courtRental"`
	ServiceFee     float64 `json:"serviceFee"`
	DiscountAmount float64 `json:"discountAmount"`
	Subtotal       float64 `json:"subtotal"`
	Tax            float64 `json:"tax"`
	FinalTotal     float64 `json:"finalTotal"`
	Currency       string  `json:"currency"`
}

type CustomerDetails struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone,omitempty"`
	UserID       string `json:"userId,omitempty"`
	DiscountCode string `json:"discountCode,omitempty"`
}

// BookingSession is one customer's in-progress booking attempt.
type BookingSession struct {
	ID           string `json:"id"`
	FacilitySlug string `json:"facility_slug"`
	Step         int    `json:"step"`

	SelectedDate  string `json:"selected_date"` // "YYYY-MM-DD", portal local time
	SelectedCourt int64  `json:"selected_court"`
	SelectedSlot  string `json:"selected_slot"` // 24-hour "HH:MM"

	Customer        CustomerDetails  `json:"customer"`
	Pricing         PricingBreakdown `json:"pricing"`
	DiscountApplied bool             `json:"discount_applied"`

	// BookingID is assigned by the backend on the Details->Payment
	// transition and survives a failed payment confirmation.
	BookingID       string `json:"booking_id,omitempty"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	ClientSecret    string `json:"client_secret,omitempty"`

	// InFlight guards duplicate submissions of the two network-dependent
	// transitions (create booking, confirm payment).
	InFlight bool `json:"in_flight"`

	Errors map[string]string `json:"errors,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *BookingSession) SetError(field, message string) {
	if s.Errors == nil {
		s.Errors = make(map[string]string)
	}
	s.Errors[field] = message
}

func (s *BookingSession) ClearErrors() {
	s.Errors = nil
}

// BookingPayload is the create-booking request body.
type BookingPayload struct {
	FacilityID     int64   `json:"facilityId"`
	CourtNumber    int64   `json:"courtNumber"`
	BookingDate    string  `json:"bookingDate"` // "YYYY-MM-DD"
	StartTime      string  `json:"startTime"`   // "HH:MM"
	EndTime        string  `json:"endTime"`     // "HH:MM"
	Duration       int     `json:"duration"`    // minutes, always 60
	TotalAmount    float64 `json:"totalAmount"`
	DiscountCode   string  `json:"discountCode,omitempty"`
	DiscountAmount float64 `json:"discountAmount"`
	CustomerName   string  `json:"customerName"`
	CustomerEmail  string  `json:"customerEmail"`
	CustomerPhone  string  `json:"customerPhone,omitempty"`
	UserID         string  `json:"userId,omitempty"`
	Source         string  `json:"source"` // always "web"
}

type BookingResult struct {
	BookingID string `json:"bookingId"`
}

type DiscountResult struct {
	DiscountAmount float64 `json:"discountAmount"`
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

// CancellationDetails mirrors the backend's view of a booking for the
// cancellation screen. CanCancel enforces the 24-hour rule server-side;
// the portal only displays it.
type CancellationDetails struct {
	BookingID         string  `json:"bookingId"`
	CourtName         string  `json:"courtName"`
	BookingDate       string  `json:"bookingDate"`
	StartTime         string  `json:"startTime"`
	TotalAmount       float64 `json:"totalAmount"`
	CanCancel         bool    `json:"canCancel"`
	HoursUntilBooking float64 `json:"hoursUntilBooking"`
}
