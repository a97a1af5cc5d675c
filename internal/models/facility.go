package models

// Sport tags carried by courts. The tag drives the displayed base rate
// before a slot is selected; actual pricing comes from PricingConfig.
const (
	SportBadminton  = "badminton"
	SportPickleball = "pickleball"
	SportCricket    = "cricket"
)

type Court struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Sport string `json:"sport"`
}

// HoursWindow is an operating window in 24-hour "HH:MM" strings.
// End is exclusive: slots are enumerated in [Start, End).
type HoursWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type OperatingHours struct {
	Weekday HoursWindow `json:"weekday"`
	Weekend HoursWindow `json:"weekend"`
}

type PricingConfig struct {
	CourtRental          float64 `json:"courtRental"`
	ServiceFeePercentage float64 `json:"serviceFeePercentage"`
	TaxPercentage        float64 `json:"taxPercentage"`
	Currency             string  `json:"currency"`
}

// FacilityConfig is one tenant's snapshot: courts, pricing and hours.
// Immutable once loaded; reloaded only on tenant switch.
type FacilityConfig struct {
	ID      int64          `json:"id"`
	Slug    string         `json:"slug"`
	Name    string         `json:"name"`
	Courts  []Court        `json:"courts"`
	Pricing PricingConfig  `json:"pricing"`
	Hours   OperatingHours `json:"operatingHours"`
}

func (f *FacilityConfig) CourtByID(id int64) *Court {
	for i := range f.Courts {
		if f.Courts[i].ID == id {
			return &f.Courts[i]
		}
	}
	return nil
}

// AvailabilityGrid maps court id -> 24-hour "HH:MM" -> bookable.
// Sourced wholesale from the backend per (facility, date). A key absent
// from the grid means unavailable, never available.
type AvailabilityGrid map[int64]map[string]bool

func (g AvailabilityGrid) IsAvailable(courtID int64, time24 string) bool {
	times, ok := g[courtID]
	if !ok {
		return false
	}
	return times[time24]
}

// TimeSlot is derived display data, never persisted.
type TimeSlot struct {
	Display  string `json:"display"`  // "2:00 PM"
	Start24  string `json:"start"`    // "14:00"
	Duration int    `json:"duration"` // minutes, always 60
	Past     bool   `json:"past"`
}
