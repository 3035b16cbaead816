package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PushSubscription is one registered device token for web/mobile push.
// A user may hold several (one per browser/device). Tokens the provider
// reports as permanently invalid are removed in batch by the watchman.
type PushSubscription struct {
	gorm.Model
	UserID uint   `gorm:"not null;index"`
	User   User   `gorm:"constraint:OnDelete:CASCADE;"`
	Token  string `gorm:"uniqueIndex;not null"`

	// Metadata is the validated raw subscription blob posted by the client
	// (browser, platform, endpoint keys). Kept for diagnostics only.
	Metadata datatypes.JSON `gorm:"type:jsonb"`
}
