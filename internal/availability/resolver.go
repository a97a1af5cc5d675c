// Package availability derives bookable time slots from facility
// operating hours and reconciles them against the backend's per-day
// availability snapshot.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"domebooking/internal/domain"
	"domebooking/internal/events"
	"domebooking/internal/metrics"
	"domebooking/internal/models"

	"github.com/rs/zerolog"
)

// ErrRefreshFailed marks a grid fetch failure. The grid is cleared so a
// failed fetch can never present stale "available" slots; callers surface
// a retryable error instead.
var ErrRefreshFailed = errors.New("availability refresh failed")

// Resolver owns the current (facility, date) grid snapshot. All methods
// are safe for concurrent use; refreshes are latest-wins so a slow older
// response never overwrites a newer one.
type Resolver struct {
	backend domain.AvailabilityFetcher
	logger  *zerolog.Logger
	loc     *time.Location
	now     func() time.Time

	mu      sync.Mutex
	slug    string
	date    string
	grid    models.AvailabilityGrid
	lastErr error
	seq     uint64
	applied uint64
}

func NewResolver(backend domain.AvailabilityFetcher, loc *time.Location, logger *zerolog.Logger) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{
		backend: backend,
		logger:  logger,
		loc:     loc,
		now:     time.Now,
		grid:    models.AvailabilityGrid{},
	}
}

// SetTarget switches the resolver to a (facility, date) pair and fetches
// its grid. Selection and step state elsewhere are untouched.
func (r *Resolver) SetTarget(ctx context.Context, slug, date string) error {
	if _, err := time.ParseInLocation(models.DateKeyFormat, date, r.loc); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}

	r.mu.Lock()
	r.slug = slug
	r.date = date
	r.mu.Unlock()

	return r.Refresh(ctx)
}

// Target returns the current (slug, date) pair.
func (r *Resolver) Target() (string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slug, r.date
}

// Refresh re-fetches the grid for the current target. Stale responses
// are discarded by sequence comparison.
func (r *Resolver) Refresh(ctx context.Context) error {
	r.mu.Lock()
	slug, date := r.slug, r.date
	id := r.seq + 1
	r.seq = id
	r.mu.Unlock()

	if slug == "" || date == "" {
		return nil
	}

	grid, err := r.backend.GetAvailability(ctx, slug, date)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id <= r.applied {
		// A newer fetch already landed.
		return nil
	}
	r.applied = id

	if slug != r.slug || date != r.date {
		// Target moved while this fetch was in flight.
		return nil
	}

	if err != nil {
		r.grid = models.AvailabilityGrid{}
		r.lastErr = fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		metrics.IncAvailabilityRefresh("error")
		r.logger.Error().Err(err).Str("facility", slug).Str("date", date).Msg("availability fetch failed")
		return r.lastErr
	}

	if grid == nil {
		grid = models.AvailabilityGrid{}
	}
	r.grid = grid
	r.lastErr = nil
	metrics.IncAvailabilityRefresh("ok")
	return nil
}

// Subscribe wires the resolver to the signals that must re-fetch the grid
// without resetting session state: a cancellation elsewhere frees a slot,
// and the shell can request an explicit refresh.
func (r *Resolver) Subscribe(bus *events.Bus) {
	handler := func(*events.Event) error {
		slug, date := r.Target()
		if slug == "" || date == "" {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		r.backend.InvalidateAvailability(ctx, slug, date)
		return r.Refresh(ctx)
	}
	bus.Subscribe(events.EventBookingCancelled, handler)
	bus.Subscribe(events.EventAvailabilityRefresh, handler)
}

// Err returns the retryable error from the last refresh, nil when the
// snapshot is trustworthy.
func (r *Resolver) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// IsAvailable looks the slot up in the current grid snapshot. A key
// absent from the grid is unavailable, never an error.
func (r *Resolver) IsAvailable(courtID int64, time24 string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grid.IsAvailable(courtID, time24)
}

// IsPast reports whether a slot start is no longer bookable. Dates
// strictly before today are always past, strictly after never; for today
// the slot must start more than 15 minutes from now.
func (r *Resolver) IsPast(date, time24 string) bool {
	now := r.now().In(r.loc)
	today := now.Format(models.DateKeyFormat)

	if date < today {
		return true
	}
	if date > today {
		return false
	}

	hour, minute, err := parseHHMM(time24)
	if err != nil {
		return true
	}

	slotStart := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, r.loc)
	cutoff := now.Add(models.PastSlotBufferMinutes * time.Minute)
	return !slotStart.After(cutoff)
}

// Slots enumerates the display slots for a facility and date: one per
// whole hour in [start, end) of the weekday or weekend operating window.
func (r *Resolver) Slots(fc *models.FacilityConfig, date string) ([]models.TimeSlot, error) {
	day, err := time.ParseInLocation(models.DateKeyFormat, date, r.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	window := windowFor(fc.Hours, isWeekend(day))
	startHour, _, err := parseHHMM(window.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid operating window start: %w", err)
	}
	endHour, _, err := parseHHMM(window.End)
	if err != nil {
		return nil, fmt.Errorf("invalid operating window end: %w", err)
	}

	slots := make([]models.TimeSlot, 0, endHour-startHour)
	for hour := startHour; hour < endHour; hour++ {
		time24 := fmt.Sprintf("%02d:00", hour)
		display, err := To12Hour(time24)
		if err != nil {
			return nil, err
		}
		slots = append(slots, models.TimeSlot{
			Display:  display,
			Start24:  time24,
			Duration: models.SlotDurationMinutes,
			Past:     r.IsPast(date, time24),
		})
	}
	return slots, nil
}

// windowFor picks the weekend or weekday window, degrading to hardcoded
// defaults when the facility config omits hours.
func windowFor(hours models.OperatingHours, weekend bool) models.HoursWindow {
	window := hours.Weekday
	fallback := models.HoursWindow{Start: models.DefaultWeekdayStart, End: models.DefaultWeekdayEnd}
	if weekend {
		window = hours.Weekend
		fallback = models.HoursWindow{Start: models.DefaultWeekendStart, End: models.DefaultWeekendEnd}
	}
	if window.Start == "" || window.End == "" {
		return fallback
	}
	return window
}

// SetNow overrides the clock. Tests only.
func (r *Resolver) SetNow(now func() time.Time) {
	r.now = now
}
