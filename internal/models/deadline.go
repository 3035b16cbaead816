package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification status constants
const (
	NotificationStatusPending    = "pending"
	NotificationStatusActive     = "active"
	NotificationStatusNotified   = "notified"
	NotificationStatusSuppressed = "suppressed"
)

// Recurrence describes how a deadline rolls forward when renewed.
type Recurrence string

const (
	RecurrenceOneTime    Recurrence = "one-time"
	RecurrenceMonthly    Recurrence = "monthly"
	RecurrenceQuarterly  Recurrence = "quarterly"
	RecurrenceSemiannual Recurrence = "semiannual"
	RecurrenceAnnual     Recurrence = "annual"
)

// Valid reports whether r is one of the known recurrence values.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceOneTime, RecurrenceMonthly, RecurrenceQuarterly, RecurrenceSemiannual, RecurrenceAnnual:
		return true
	}
	return false
}

// Deadline represents one tracked obligation (insurance renewal, vehicle
// document, subscription, ...) owned by a user.
type Deadline struct {
	gorm.Model
	UserID      uint  `gorm:"not null;index"`
	User        User  `gorm:"constraint:OnDelete:CASCADE;"`
	CategoryID  *uint `gorm:"index"` // weak reference, lookup only
	Name        string `gorm:"not null"`
	Description string `gorm:"type:text"`

	ExpirationDate   time.Time  `gorm:"not null;index"`
	Recurrence       Recurrence `gorm:"not null;default:'one-time'"`
	NotifyDaysBefore int        `gorm:"not null;default:30"`

	// NotificationStartDate is derived: ExpirationDate minus NotifyDaysBefore
	// days. Recomputed on every save, never written directly.
	NotificationStartDate time.Time `gorm:"not null;index"`

	NotificationStatus string `gorm:"not null;default:'pending';index"`
	IsCompleted        bool   `gorm:"not null;default:false;index"`
	CompletedAt        *time.Time
}

// BeforeSave keeps the derived NotificationStartDate in sync with
// ExpirationDate and NotifyDaysBefore.
func (d *Deadline) BeforeSave(tx *gorm.DB) error {
	d.NotificationStartDate = d.ExpirationDate.AddDate(0, 0, -d.NotifyDaysBefore)
	return nil
}
