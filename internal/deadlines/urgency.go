package deadlines

import (
	"math"
	"time"
)

// Urgency classifies a deadline's time pressure.
type Urgency string

const (
	UrgencyExpired Urgency = "expired"
	UrgencyHigh    Urgency = "high"
	UrgencyMedium  Urgency = "medium"
	UrgencyLow     Urgency = "low"
)

// Classify maps whole days remaining to an urgency tier.
// Tiers are non-overlapping: <0 expired, 0..7 high, 8..30 medium, >30 low.
func Classify(daysRemaining int) Urgency {
	switch {
	case daysRemaining < 0:
		return UrgencyExpired
	case daysRemaining <= 7:
		return UrgencyHigh
	case daysRemaining <= 30:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// DaysUntil returns the number of whole calendar days between now and due,
// both taken at local midnight in loc. Ceiling division keeps the count
// stable across DST-shortened days: same calendar day is always 0.
func DaysUntil(now, due time.Time, loc *time.Location) int {
	diff := Midnight(due, loc).Sub(Midnight(now, loc))
	return int(math.Ceil(diff.Hours() / 24))
}

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
