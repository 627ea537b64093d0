package reconcile

import (
	"time"

	"github.com/geo-tg/ljb-asset-workorder-updates/internal/domain"
)

// Named frequency durations in epoch milliseconds, as stored by the unified
// work-order service. "End of Month" is listed with its nominal 28-day value
// but always resolves through the calendar rule in NextDue.
var intervalMS = map[string]int64{
	"Daily":        86400000,
	"Shift Start":  43200000,
	"Weekly":       604800000,
	"Monthly":      2678400000,
	"End of Month": 2419200000,
}

// IntervalDuration resolves a named frequency to its fixed duration.
// The bool is false for unknown names and for "End of Month", whose length
// depends on the reference date.
func IntervalDuration(name string) (int64, bool) {
	if name == "End of Month" {
		return 0, false
	}
	ms, ok := intervalMS[name]
	return ms, ok
}

// NextDue computes the due date of the cycle following an inspection
// completed at ref.
//
// Named frequencies add their fixed duration; "End of Month" lands on the
// last calendar day of the month containing ref+28d, so a completion on
// Jan 31 rolls to Feb 28 (or Feb 29 in a leap year). Legacy numeric
// intervals add the day count. An interval that resolves to nothing returns
// fallback (the asset's currently recorded due date).
func NextDue(iv domain.Interval, ref time.Time, fallback time.Time) time.Time {
	switch {
	case iv.Name == "End of Month":
		shifted := ref.Add(time.Duration(intervalMS["End of Month"]) * time.Millisecond)
		return lastDayOfMonth(shifted)
	case iv.Name != "":
		if ms, ok := IntervalDuration(iv.Name); ok {
			return ref.Add(time.Duration(ms) * time.Millisecond)
		}
		return fallback
	case iv.Days > 0:
		return ref.Add(time.Duration(iv.Days) * 24 * time.Hour)
	default:
		return fallback
	}
}

// lastDayOfMonth keeps the clock time of t and moves the day to the last
// calendar day of t's month.
func lastDayOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// DaysBetween returns the whole-calendar-day difference to − from.
// Both values are reduced to their calendar date first so partial-day
// remainders never shift the count; anchoring the dates at UTC noon keeps
// DST transitions from producing 23- or 25-hour "days".
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 12, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 12, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Round(24*time.Hour) / (24 * time.Hour))
}
