package service

import (
	"fmt"
	"time"
)

// EffectiveCutoffDate computes the latest agency-local calendar date whose
// pending installments are past due at the given instant. If the agency's
// local time of day has reached the configured cutoff, that is today;
// before the cutoff it is yesterday, so a due-today installment is not
// marked overdue until the agency's cutoff time has passed.
//
// The result is a date-only value (midnight UTC); only its calendar
// components are meaningful.
func EffectiveCutoffDate(timezone, cutoffTime string, asOf time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	cutoff, err := parseTimeOfDay(cutoffTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid overdue_cutoff_time %q: %w", cutoffTime, err)
	}

	local := asOf.In(loc)
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	if secondsOfDay(local) < cutoff {
		date = date.AddDate(0, 0, -1)
	}
	return date, nil
}

// parseTimeOfDay parses "15:04" or "15:04:05" into seconds since midnight
func parseTimeOfDay(s string) (int, error) {
	var layouts = []string{"15:04:05", "15:04"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return secondsOfDay(t), nil
		}
	}
	return 0, fmt.Errorf("expected HH:MM or HH:MM:SS")
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
