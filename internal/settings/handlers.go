package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/domyzanna/pittima/internal/models"
	"github.com/domyzanna/pittima/internal/otp"
)

func sessionUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// RegisterPushHandler stores a device push token for the current user.
// Re-registering an existing token refreshes its metadata instead of
// duplicating the row.
func RegisterPushHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}

		var blob map[string]interface{}
		if err := c.ShouldBindJSON(&blob); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
			return
		}

		if err := ValidatePushSubscription(blob); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		token := blob["token"].(string)
		metadata, err := json.Marshal(blob)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to encode subscription"})
			return
		}

		sub := models.PushSubscription{
			UserID:   userID,
			Token:    token,
			Metadata: metadata,
		}
		err = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "metadata", "updated_at"}),
		}).Create(&sub).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to register subscription"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// DeletePushHandler removes one of the current user's push tokens.
func DeletePushHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}

		res := db.Where("user_id = ? AND token = ?", userID, c.Param("token")).
			Delete(&models.PushSubscription{})
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to remove subscription"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "subscription not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type whatsAppPayload struct {
	PhoneNumber  *string `json:"phoneNumber"`
	Enabled      *bool   `json:"enabled"`
	ConsentGiven *bool   `json:"consentGiven"`
}

type whatsAppView struct {
	PhoneNumber  string `json:"phoneNumber"`
	Verified     bool   `json:"verified"`
	Enabled      bool   `json:"enabled"`
	ConsentGiven bool   `json:"consentGiven"`
}

// GetWhatsAppHandler returns the current user's WhatsApp settings.
func GetWhatsAppHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}

		var profile models.WhatsAppProfile
		err := db.Where("user_id = ?", userID).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": true, "whatsapp": whatsAppView{}})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load settings"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "whatsapp": whatsAppView{
			PhoneNumber:  profile.PhoneNumber,
			Verified:     profile.Verified,
			Enabled:      profile.Enabled,
			ConsentGiven: profile.ConsentGiven,
		}})
	}
}

// UpdateWhatsAppHandler edits the current user's WhatsApp settings.
// Changing the phone number clears Verified and Enabled until the new
// number passes OTP verification again. Enabling requires a verified
// number.
func UpdateWhatsAppHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}

		var payload whatsAppPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
			return
		}

		var profile models.WhatsAppProfile
		err := db.Where("user_id = ?", userID).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = models.WhatsAppProfile{UserID: userID}
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load settings"})
			return
		}

		if payload.PhoneNumber != nil {
			normalized, err := otp.NormalizePhone(*payload.PhoneNumber)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
				return
			}
			if normalized != profile.PhoneNumber {
				profile.PhoneNumber = normalized
				profile.Verified = false
				profile.Enabled = false
			}
		}

		if payload.ConsentGiven != nil {
			profile.ConsentGiven = *payload.ConsentGiven
		}

		if payload.Enabled != nil {
			if *payload.Enabled && !profile.Verified {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "verify your phone number before enabling WhatsApp reminders"})
				return
			}
			profile.Enabled = *payload.Enabled
		}

		// The save hook encrypts PhoneNumber in place; keep the plaintext
		// for the response.
		plainPhone := profile.PhoneNumber
		if err := db.Save(&profile).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to save settings"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "whatsapp": whatsAppView{
			PhoneNumber:  plainPhone,
			Verified:     profile.Verified,
			Enabled:      profile.Enabled,
			ConsentGiven: profile.ConsentGiven,
		}})
	}
}
