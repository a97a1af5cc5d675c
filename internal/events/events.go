package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated      = "booking_created"
	EventBookingCancelled    = "booking_cancelled"
	EventPaymentConfirmed    = "payment_confirmed"
	EventAvailabilityRefresh = "availability_refresh"
)

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	SessionID    string  `json:"session_id,omitempty"`
	BookingID    string  `json:"booking_id"`
	FacilitySlug string  `json:"facility_slug"`
	CourtID      int64   `json:"court_id,omitempty"`
	Date         string  `json:"date,omitempty"`
	StartTime    string  `json:"start_time,omitempty"`
	TotalAmount  float64 `json:"total_amount,omitempty"`
}

// RefreshEventPayload asks availability consumers to re-fetch a grid.
// The consumer must not reset session state when handling it.
type RefreshEventPayload struct {
	FacilitySlug string `json:"facility_slug"`
	Date         string `json:"date"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(event *Event) error

// Bus provides in-process pub/sub, replacing the window-level signals the
// browser shell would otherwise broadcast.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *Bus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
