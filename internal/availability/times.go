package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseHHMM splits a 24-hour "HH:MM" string.
func parseHHMM(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// To12Hour converts "14:00" to "2:00 PM". Noon is "12:00 PM", midnight
// "12:00 AM".
func To12Hour(time24 string) (string, error) {
	hour, minute, err := parseHHMM(time24)
	if err != nil {
		return "", err
	}

	period := "AM"
	displayHour := hour
	switch {
	case hour == 0:
		displayHour = 12
	case hour == 12:
		period = "PM"
	case hour > 12:
		displayHour = hour - 12
		period = "PM"
	}

	return fmt.Sprintf("%d:%02d %s", displayHour, minute, period), nil
}

// To24Hour reverses To12Hour: "2:00 PM" -> "14:00".
func To24Hour(display string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(display))
	if len(fields) != 2 {
		return "", fmt.Errorf("invalid 12-hour time %q", display)
	}

	period := strings.ToUpper(fields[1])
	if period != "AM" && period != "PM" {
		return "", fmt.Errorf("invalid period in %q", display)
	}

	parts := strings.SplitN(fields[0], ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid 12-hour time %q", display)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 1 || hour > 12 {
		return "", fmt.Errorf("invalid hour in %q", display)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", display)
	}

	if period == "AM" && hour == 12 {
		hour = 0
	} else if period == "PM" && hour != 12 {
		hour += 12
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// AddMinutes shifts a 24-hour "HH:MM" time forward with hour rollover,
// wrapping past midnight.
func AddMinutes(time24 string, minutes int) (string, error) {
	hour, minute, err := parseHHMM(time24)
	if err != nil {
		return "", err
	}

	total := hour*60 + minute + minutes
	total = ((total % (24 * 60)) + 24*60) % (24 * 60)

	return fmt.Sprintf("%02d:%02d", total/60, total%60), nil
}

// isWeekend uses the local (facility wall clock) day of week, never a
// UTC-shifted date. A UTC/local mismatch near midnight would apply the
// wrong operating window.
func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
