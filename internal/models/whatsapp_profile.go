package models

import (
	"github.com/domyzanna/pittima/internal/crypto"
	"gorm.io/gorm"
)

var encryptor *crypto.PhoneEncryptor

// InitEncryption initializes the phone-number encryptor for the models
// package. Must be called before any database operations involving
// WhatsAppProfile.
func InitEncryption(encryptionKey string) error {
	var err error
	encryptor, err = crypto.NewPhoneEncryptor(encryptionKey)
	return err
}

// WhatsAppProfile holds a user's WhatsApp delivery settings. The phone
// number is stored encrypted at rest. Verified flips to true only through
// the OTP flow; changing the number resets both Verified and Enabled.
type WhatsAppProfile struct {
	gorm.Model
	UserID       uint   `gorm:"not null;uniqueIndex"`
	PhoneNumber  string `gorm:"type:text"` // stored encrypted
	Verified     bool   `gorm:"not null;default:false"`
	Enabled      bool   `gorm:"not null;default:false"`
	ConsentGiven bool   `gorm:"not null;default:false"`
}

// BeforeSave encrypts the phone number before saving to database.
// Always encrypts non-empty numbers (GCM produces different output each
// time due to random nonce).
func (p *WhatsAppProfile) BeforeSave(tx *gorm.DB) error {
	if encryptor == nil {
		// Allow operations without encryption (e.g., for testing or if encryption not initialized)
		return nil
	}

	if p.PhoneNumber != "" {
		encrypted, err := encryptor.Encrypt(p.PhoneNumber)
		if err != nil {
			return err
		}
		p.PhoneNumber = encrypted
	}

	return nil
}

// AfterFind decrypts the phone number after loading from database
func (p *WhatsAppProfile) AfterFind(tx *gorm.DB) error {
	if encryptor == nil {
		return nil
	}

	if p.PhoneNumber != "" {
		decrypted, err := encryptor.Decrypt(p.PhoneNumber)
		if err != nil {
			return err
		}
		p.PhoneNumber = decrypted
	}

	return nil
}
