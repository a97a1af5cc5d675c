package events

import (
	"encoding/json"
	"testing"
)

func TestBus(t *testing.T) {
	bus := NewBus()

	var received *Event
	var callCount int

	handler := func(event *Event) error {
		received = event
		callCount++
		return nil
	}

	bus.Subscribe(EventBookingCancelled, handler)

	payload := BookingEventPayload{BookingID: "bk-42", FacilitySlug: "dome-main"}
	err := bus.PublishJSON(EventBookingCancelled, payload)
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}

	if received.Type != EventBookingCancelled {
		t.Errorf("expected type %s, got %s", EventBookingCancelled, received.Type)
	}

	if received.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	var decoded BookingEventPayload
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}

	if decoded.BookingID != "bk-42" {
		t.Errorf("expected booking bk-42, got %s", decoded.BookingID)
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestBusNoSubscribers(t *testing.T) {
	bus := NewBus()
	// Should not panic
	bus.Publish(&Event{Type: "unknown"})
	err := bus.PublishJSON("unknown", nil)
	if err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}
}

func TestNilBusPublishJSON(t *testing.T) {
	var bus *Bus
	if err := bus.PublishJSON(EventAvailabilityRefresh, RefreshEventPayload{}); err != nil {
		t.Errorf("PublishJSON on nil bus failed: %v", err)
	}
}
