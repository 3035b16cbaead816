package database

import (
	"log"
	"time"

	"github.com/domyzanna/pittima/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedDevData populates the database with development test data.
// Idempotent: skips if data already exists.
func SeedDevData(db *gorm.DB) error {
	// Check if seed data already exists
	var existingUser models.User
	result := db.Where("email = ?", "dev@pittima.local").First(&existingUser)
	if result.Error == nil {
		log.Println("Seed data already exists, skipping")
		return nil
	}

	// Default categories
	categories := []models.Category{
		{Name: "Insurance", Icon: "shield"},
		{Name: "Vehicle", Icon: "car"},
		{Name: "Subscriptions", Icon: "repeat"},
		{Name: "Documents", Icon: "file"},
	}
	for i := range categories {
		if err := db.Where("name = ?", categories[i].Name).FirstOrCreate(&categories[i]).Error; err != nil {
			return err
		}
	}

	// Create test user
	user := models.User{
		Email:         "dev@pittima.local",
		EmailVerified: true,
		DisplayName:   "Dev User",
		Plan:          models.PlanPlus,
		Role:          "admin",
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}

	now := time.Now()

	// One deadline already inside its notification window, one outside,
	// one completed (must never be picked up by the watchman).
	deadlines := []models.Deadline{
		{
			UserID:           user.ID,
			CategoryID:       &categories[0].ID,
			Name:             "Car insurance renewal",
			ExpirationDate:   now.AddDate(0, 0, 10),
			Recurrence:       models.RecurrenceAnnual,
			NotifyDaysBefore: 30,
		},
		{
			UserID:           user.ID,
			CategoryID:       &categories[2].ID,
			Name:             "Streaming subscription",
			ExpirationDate:   now.AddDate(0, 2, 0),
			Recurrence:       models.RecurrenceMonthly,
			NotifyDaysBefore: 7,
		},
		{
			UserID:           user.ID,
			CategoryID:       &categories[3].ID,
			Name:             "Passport pickup",
			ExpirationDate:   now.AddDate(0, 0, -5),
			Recurrence:       models.RecurrenceOneTime,
			NotifyDaysBefore: 14,
			IsCompleted:      true,
			CompletedAt:      &now,
		},
	}
	for i := range deadlines {
		if err := db.Create(&deadlines[i]).Error; err != nil {
			return err
		}
	}

	// Sample push subscription
	sub := models.PushSubscription{
		UserID:   user.ID,
		Token:    "dev-push-token-1",
		Metadata: datatypes.JSON([]byte(`{"platform":"web","browser":"firefox"}`)),
	}
	if err := db.Create(&sub).Error; err != nil {
		return err
	}

	// WhatsApp profile, already verified so the full fan-out can be
	// exercised with stub providers
	profile := models.WhatsAppProfile{
		UserID:       user.ID,
		PhoneNumber:  "+390000000000",
		Verified:     true,
		Enabled:      true,
		ConsentGiven: true,
	}
	if err := db.Create(&profile).Error; err != nil {
		return err
	}

	log.Println("Seeded dev data: 1 user, 4 categories, 3 deadlines, 1 push subscription, 1 whatsapp profile")
	return nil
}
