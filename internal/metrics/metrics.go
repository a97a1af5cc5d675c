package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dome_booking",
			Name:      "bookings_created_total",
			Help:      "Bookings successfully created on the backend.",
		},
	)

	paymentsConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dome_booking",
			Name:      "payments_confirmed_total",
			Help:      "Payments confirmed end to end.",
		},
	)

	paymentFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dome_booking",
			Name:      "payment_failures_total",
			Help:      "Failed payment confirmations.",
		},
	)

	availabilityRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dome_booking",
			Name:      "availability_refresh_total",
			Help:      "Availability grid fetches by result.",
		},
		[]string{"result"},
	)

	discountsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dome_booking",
			Name:      "discounts_applied_total",
			Help:      "Discount codes accepted by the backend.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dome_booking",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingsCreated,
			paymentsConfirmed,
			paymentFailures,
			availabilityRefreshes,
			discountsApplied,
			httpRequests,
		)
	})
}

func IncBookingCreated()   { bookingsCreated.Inc() }
func IncPaymentConfirmed() { paymentsConfirmed.Inc() }
func IncPaymentFailure()   { paymentFailures.Inc() }
func IncDiscountApplied()  { discountsApplied.Inc() }

// IncAvailabilityRefresh records a grid fetch; result is "ok" or "error".
func IncAvailabilityRefresh(result string) {
	availabilityRefreshes.WithLabelValues(result).Inc()
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
