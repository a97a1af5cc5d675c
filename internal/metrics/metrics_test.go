package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	// Increments should not panic
	assert.NotPanics(t, func() {
		IncBookingCreated()
		IncPaymentConfirmed()
		IncPaymentFailure()
		IncDiscountApplied()
		IncAvailabilityRefresh("ok")
		IncAvailabilityRefresh("error")
		IncHTTP("slots")
	})
}
