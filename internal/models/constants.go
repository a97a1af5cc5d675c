package models

const (
	StepSlotSelect = 1
	StepDetails    = 2
	StepPayment    = 3
	StepDone       = 4
)

const (
	// SlotDurationMinutes is the fixed booking granularity.
	SlotDurationMinutes = 60

	// PastSlotBufferMinutes keeps customers from booking a slot they
	// cannot physically reach in time.
	PastSlotBufferMinutes = 15

	// BookingSource identifies portal-created bookings to the backend.
	BookingSource = "web"
)

// Fallback operating windows used when a facility config omits hours.
const (
	DefaultWeekdayStart = "08:00"
	DefaultWeekdayEnd   = "20:00"
	DefaultWeekendStart = "06:00"
	DefaultWeekendEnd   = "22:00"
)

const (
	// DefaultSessionTTL время жизни сессии бронирования в Redis
	DefaultSessionTTL = 24 * 60 * 60 // 24 часа в секундах

	// DefaultBackendTimeout таймаут запросов к backend API
	DefaultBackendTimeout = 10 // секунд

	// FacilityCacheTTL время жизни кэша конфигурации объекта
	FacilityCacheTTL = 30 * 60 // 30 минут в секундах

	// AvailabilityCacheTTL время жизни кэша сетки доступности
	AvailabilityCacheTTL = 30 // секунд

	// RateLimitRPS / RateLimitBurst ограничение частоты запросов API
	RateLimitRPS   = 10
	RateLimitBurst = 20
)

// DateKeyFormat is the wire format for calendar dates. The date key sent
// to the backend and the weekend/weekday decision both use the portal's
// configured local time zone, never UTC.
const DateKeyFormat = "2006-01-02"
