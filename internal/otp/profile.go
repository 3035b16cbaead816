package otp

import (
	"context"
	"errors"
	"fmt"

	"github.com/domyzanna/pittima/internal/models"
	"gorm.io/gorm"
)

// GormProfileStore writes verification outcomes to the whats_app_profiles
// table.
type GormProfileStore struct {
	db *gorm.DB
}

// NewGormProfileStore creates a profile store on the given database.
func NewGormProfileStore(db *gorm.DB) *GormProfileStore {
	return &GormProfileStore{db: db}
}

// ConfirmPhone marks the user's WhatsApp number verified and persists the
// now-confirmed phone. Field-level update, never a full-document write, so
// concurrent settings changes on other fields survive.
func (s *GormProfileStore) ConfirmPhone(ctx context.Context, userID uint, phone string) error {
	var profile models.WhatsAppProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = models.WhatsAppProfile{
			UserID:      userID,
			PhoneNumber: phone,
			Verified:    true,
		}
		if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to create whatsapp profile: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load whatsapp profile: %w", err)
	}

	// Struct-based update so the encryption save hook runs on the phone
	// number; Select limits the write to the two touched fields.
	profile.PhoneNumber = phone
	profile.Verified = true
	if err := s.db.WithContext(ctx).Model(&profile).
		Select("PhoneNumber", "Verified").Updates(&profile).Error; err != nil {
		return fmt.Errorf("failed to update whatsapp profile: %w", err)
	}
	return nil
}
