package deadlines

import (
	"time"

	"github.com/domyzanna/pittima/internal/models"
)

// NextDate computes the due date for the next cycle of a recurring deadline.
// Returns false for one-time deadlines (no roll-forward). Day-of-month is
// preserved where valid and clamped to the last day of the target month on
// overflow (Jan 31 + 1 month = last day of February).
func NextDate(current time.Time, r models.Recurrence) (time.Time, bool) {
	switch r {
	case models.RecurrenceMonthly:
		return addMonthsClamped(current, 1), true
	case models.RecurrenceQuarterly:
		return addMonthsClamped(current, 3), true
	case models.RecurrenceSemiannual:
		return addMonthsClamped(current, 6), true
	case models.RecurrenceAnnual:
		return addMonthsClamped(current, 12), true
	default:
		return time.Time{}, false
	}
}

// addMonthsClamped shifts t by the given number of months without the
// overflow normalization of time.AddDate (which would turn Jan 31 + 1 month
// into Mar 2/3).
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// First of the target month, then clamp the day
	first := time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}

	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
