package models

import (
	"time"

	"gorm.io/gorm"
)

// Plan constants gate premium features (WhatsApp delivery requires "plus").
// Billing/checkout is handled by an external service; only the resulting
// plan name is stored here.
const (
	PlanFree = "free"
	PlanPlus = "plus"
)

// User represents an application user known to the identity directory.
// Authentication itself is external; this record mirrors the directory
// fields the notification engine needs plus local settings.
type User struct {
	gorm.Model
	Email         string `gorm:"uniqueIndex:idx_users_email_not_deleted,where:deleted_at IS NULL;not null"`
	EmailVerified bool   `gorm:"not null;default:false"`
	DisplayName   string `gorm:"not null;default:''"`
	Plan          string `gorm:"not null;default:'free'"`
	Role          string `gorm:"not null;default:'user'"` // enum: 'user' or 'admin'
	LastLoginAt   *time.Time

	// Associations
	Deadlines         []Deadline         `gorm:"constraint:OnDelete:CASCADE;"`
	PushSubscriptions []PushSubscription `gorm:"constraint:OnDelete:CASCADE;"`
	WhatsAppProfile   *WhatsAppProfile   `gorm:"constraint:OnDelete:CASCADE;"`
}

// WhatsAppEligible reports whether the watchman may send WhatsApp messages
// to this user. All four conditions are required; the dispatcher itself
// never re-checks them.
func (u *User) WhatsAppEligible() bool {
	p := u.WhatsAppProfile
	return p != nil && p.Verified && p.Enabled && p.ConsentGiven && u.Plan == PlanPlus
}
