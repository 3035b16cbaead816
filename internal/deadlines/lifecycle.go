package deadlines

import (
	"fmt"
	"time"

	"github.com/domyzanna/pittima/internal/models"
)

// Eligible reports whether a deadline qualifies for a reminder on the run
// whose reference day is today (already truncated to local midnight).
// IsCompleted is the authoritative exclusion flag and wins over whatever
// notification status is stored. A deadline already marked notified stays
// eligible: every run inside the window re-notifies, the mark is bookkeeping
// only. Only suppression takes a deadline out of the rotation.
func Eligible(d *models.Deadline, today time.Time, loc *time.Location) bool {
	if d.IsCompleted {
		return false
	}
	switch d.NotificationStatus {
	case models.NotificationStatusPending, models.NotificationStatusActive, models.NotificationStatusNotified:
	default:
		return false
	}
	return !Midnight(d.NotificationStartDate, loc).After(today)
}

// Complete marks a deadline done. For one-time deadlines this is terminal:
// the deadline leaves the scheduling population permanently.
func Complete(d *models.Deadline, at time.Time) {
	d.IsCompleted = true
	d.CompletedAt = &at
}

// Renew rolls a recurring deadline forward one cycle: fresh expiration date,
// notification status reset to pending, completion flags cleared. The
// derived NotificationStartDate is recomputed by the model's save hook.
func Renew(d *models.Deadline) error {
	next, ok := NextDate(d.ExpirationDate, d.Recurrence)
	if !ok {
		return fmt.Errorf("deadline %q is one-time and cannot be renewed", d.Name)
	}
	d.ExpirationDate = next
	d.NotificationStatus = models.NotificationStatusPending
	d.IsCompleted = false
	d.CompletedAt = nil
	return nil
}
