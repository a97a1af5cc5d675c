package server

import (
	"errors"
	"net/http"
	"strings"

	"domebooking/internal/backend"
	"domebooking/internal/discount"
	"domebooking/internal/events"
	"domebooking/internal/metrics"
	"domebooking/internal/models"
	"domebooking/internal/session"
)

// handleSlots resolves the display slots and availability for a
// (facility, date). Moving the resolver target triggers the grid fetch.
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("slots")

	slug := strings.TrimSpace(r.URL.Query().Get("facility"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if slug == "" || date == "" {
		writeError(w, http.StatusBadRequest, "facility and date are required")
		return
	}

	fc, err := s.facilities.Get(r.Context(), slug)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	curSlug, curDate := s.resolver.Target()
	var refreshErr error
	if curSlug != slug || curDate != date {
		refreshErr = s.resolver.SetTarget(r.Context(), slug, date)
	} else {
		refreshErr = s.resolver.Err()
	}

	slots, err := s.resolver.Slots(fc, date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	availabilityMap := make(map[int64]map[string]bool, len(fc.Courts))
	for _, court := range fc.Courts {
		times := make(map[string]bool, len(slots))
		for _, slot := range slots {
			times[slot.Start24] = !slot.Past && s.resolver.IsAvailable(court.ID, slot.Start24)
		}
		availabilityMap[court.ID] = times
	}

	resp := map[string]any{
		"facility":     fc.Slug,
		"date":         date,
		"slots":        slots,
		"availability": availabilityMap,
	}
	if refreshErr != nil {
		// The grid is cleared on fetch failure; tell the shell to retry
		// instead of letting it render everything as unavailable silently.
		resp["refreshError"] = "availability is temporarily unavailable"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("session_create")

	var body struct {
		Facility string `json:"facility"`
	}
	if err := decodeJSON(r, &body); err != nil || strings.TrimSpace(body.Facility) == "" {
		writeError(w, http.StatusBadRequest, "facility is required")
		return
	}

	sess, err := s.sessions.Create(r.Context(), strings.TrimSpace(body.Facility))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// handleSession dispatches /api/v1/session/{id}[/{action}].
func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/session/")
	parts := strings.SplitN(rest, "/", 2)
	id := strings.TrimSpace(parts[0])
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		metrics.IncHTTP("session_get")
		sess, err := s.sessions.Get(r.Context(), id)
		s.respond(w, sess, err)
	case action == "select" && r.Method == http.MethodPost:
		metrics.IncHTTP("session_select")
		s.handleSelect(w, r, id)
	case action == "details" && r.Method == http.MethodPost:
		metrics.IncHTTP("session_details")
		s.handleDetails(w, r, id)
	case action == "discount" && r.Method == http.MethodPost:
		metrics.IncHTTP("session_discount")
		s.handleDiscount(w, r, id)
	case action == "payment/intent" && r.Method == http.MethodPost:
		metrics.IncHTTP("payment_intent")
		sess, err := s.sessions.EnsurePaymentIntent(r.Context(), id)
		s.respond(w, sess, err)
	case action == "payment/confirm" && r.Method == http.MethodPost:
		metrics.IncHTTP("payment_confirm")
		s.handleConfirm(w, r, id)
	case action == "back" && r.Method == http.MethodPost:
		metrics.IncHTTP("session_back")
		sess, err := s.sessions.Back(r.Context(), id)
		s.respond(w, sess, err)
	case action == "reset" && r.Method == http.MethodPost:
		metrics.IncHTTP("session_reset")
		sess, err := s.sessions.Reset(r.Context(), id)
		s.respond(w, sess, err)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleSelect(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		CourtID int64  `json:"courtId"`
		Date    string `json:"date"`
		Slot    string `json:"slot"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Keep the resolver on the session's (facility, date) so the pick is
	// validated against the right grid.
	if sess, err := s.sessions.Get(r.Context(), id); err == nil {
		curSlug, curDate := s.resolver.Target()
		if curSlug != sess.FacilitySlug || curDate != body.Date {
			_ = s.resolver.SetTarget(r.Context(), sess.FacilitySlug, body.Date)
		}
	}

	sess, err := s.sessions.SelectSlot(r.Context(), id, body.CourtID, body.Date, body.Slot)
	s.respond(w, sess, err)
}

func (s *HTTPServer) handleDetails(w http.ResponseWriter, r *http.Request, id string) {
	var details models.CustomerDetails
	if err := decodeJSON(r, &details); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := s.sessions.SubmitDetails(r.Context(), id, details)
	s.respond(w, sess, err)
}

func (s *HTTPServer) handleDiscount(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := s.sessions.ApplyDiscount(r.Context(), id, body.Code)
	s.respond(w, sess, err)
}

func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := s.sessions.ConfirmPayment(r.Context(), id, body.PaymentIntentID)
	s.respond(w, sess, err)
}

// handleCancellation serves GET details and POST {id}/cancel. A
// successful cancel publishes the event that re-fetches availability.
func (s *HTTPServer) handleCancellation(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/cancellation/")
	bookingID := strings.TrimSuffix(rest, "/cancel")
	if bookingID == "" {
		writeError(w, http.StatusBadRequest, "booking id is required")
		return
	}

	switch {
	case r.Method == http.MethodGet && rest == bookingID:
		metrics.IncHTTP("cancellation_details")
		details, err := s.cancellation.GetCancellationDetails(r.Context(), bookingID)
		if err != nil {
			s.writeBackendError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, details)
	case r.Method == http.MethodPost && strings.HasSuffix(rest, "/cancel"):
		metrics.IncHTTP("cancellation_cancel")
		if err := s.cancellation.CancelBooking(r.Context(), bookingID); err != nil {
			s.writeBackendError(w, err)
			return
		}
		_ = s.bus.PublishJSON(events.EventBookingCancelled, events.BookingEventPayload{BookingID: bookingID})
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRefresh lets the shell request an availability re-fetch without
// touching any session state.
func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("refresh")

	slug, date := s.resolver.Target()
	_ = s.bus.PublishJSON(events.EventAvailabilityRefresh, events.RefreshEventPayload{FacilitySlug: slug, Date: date})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

// respond maps service errors to HTTP statuses. The session snapshot is
// returned alongside most errors so the shell can render field errors.
func (s *HTTPServer) respond(w http.ResponseWriter, sess *models.BookingSession, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, sess)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, session.ErrValidation),
		errors.Is(err, session.ErrSlotInPast),
		errors.Is(err, session.ErrSlotUnavailable),
		errors.Is(err, discount.ErrAlreadyApplied),
		errors.Is(err, discount.ErrInvalidCode):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrWrongStep),
		errors.Is(err, session.ErrRequestInFlight):
		status = http.StatusConflict
	case errors.Is(err, backend.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, backend.ErrNotFound):
		status = http.StatusNotFound
	}

	writeJSON(w, status, map[string]any{
		"error":   err.Error(),
		"session": sess,
	})
}

func (s *HTTPServer) writeBackendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, backend.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
