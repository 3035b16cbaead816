// Package otp implements the phone-verification flow that gates WhatsApp
// delivery: a 4-digit code sent over WhatsApp, verified under an attempt
// limit and a 10-minute expiry.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/domyzanna/pittima/internal/channels"
)

const (
	// ChallengeTTL is how long an issued code stays valid.
	ChallengeTTL = 10 * time.Minute
	// MaxAttempts is the number of verify attempts before a fresh code
	// is required.
	MaxAttempts = 5
)

// Challenge is one live verification attempt for a user. At most one
// exists per user; issuing a new code overwrites the previous challenge.
type Challenge struct {
	Code      string
	Phone     string
	ExpiresAt time.Time
	Attempts  int
}

// Store persists challenges keyed by user ID.
type Store interface {
	Put(ctx context.Context, userID uint, ch Challenge) error
	Get(ctx context.Context, userID uint) (*Challenge, error)
	IncrementAttempts(ctx context.Context, userID uint) (int, error)
	Clear(ctx context.Context, userID uint) error
}

// ProfileStore applies the outcome of a successful verification to the
// user's WhatsApp profile.
type ProfileStore interface {
	ConfirmPhone(ctx context.Context, userID uint, phone string) error
}

// Outcome is the structured result returned to the caller. Validation
// failures are messages, never errors: the UI layer renders them directly.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service issues and verifies OTP challenges.
type Service struct {
	store    Store
	profiles ProfileStore
	whatsapp channels.WhatsAppSender
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates an OTP service.
func NewService(store Store, profiles ProfileStore, whatsapp channels.WhatsAppSender, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		whatsapp: whatsapp,
		logger:   logger,
		now:      time.Now,
	}
}

var phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// NormalizePhone strips separators and validates the E.164-ish shape the
// WhatsApp provider expects.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	if !phonePattern.MatchString(cleaned) {
		return "", fmt.Errorf("invalid phone number, expected international format like +391234567890")
	}
	return cleaned, nil
}

// Issue generates a fresh 4-digit code for the given phone number,
// overwrites any prior challenge, and sends the code over WhatsApp.
// A send failure is reported to the caller but the challenge stays
// persisted, so a resend simply re-issues.
func (s *Service) Issue(ctx context.Context, userID uint, phoneNumber string) Outcome {
	phone, err := NormalizePhone(phoneNumber)
	if err != nil {
		return Outcome{Message: err.Error()}
	}

	code, err := generateCode()
	if err != nil {
		s.logger.Error("Failed to generate OTP code", "user_id", userID, "error", err)
		return Outcome{Message: "could not generate verification code, try again"}
	}

	ch := Challenge{
		Code:      code,
		Phone:     phone,
		ExpiresAt: s.now().Add(ChallengeTTL),
		Attempts:  0,
	}
	if err := s.store.Put(ctx, userID, ch); err != nil {
		s.logger.Error("Failed to persist OTP challenge", "user_id", userID, "error", err)
		return Outcome{Message: "could not start verification, try again"}
	}

	res := s.whatsapp.Send(ctx, channels.WhatsAppMessage{
		To:   phone,
		Body: fmt.Sprintf("Your Pittima verification code is %s. It expires in 10 minutes.", code),
	})
	if !res.Success {
		s.logger.Warn("OTP send failed", "user_id", userID, "reason", res.Message)
		return Outcome{Message: "could not deliver the code, use resend to try again"}
	}

	s.logger.Info("OTP challenge issued", "user_id", userID)
	return Outcome{Success: true, Message: "verification code sent"}
}

// Verify checks a submitted code against the live challenge.
// Order matters: the attempt cap is checked first and does not consume
// further attempts; expiry rejects even a correct code; otherwise the
// attempt is counted before comparison so a correct-but-late guess still
// burns one.
func (s *Service) Verify(ctx context.Context, userID uint, code string) Outcome {
	ch, err := s.store.Get(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load OTP challenge", "user_id", userID, "error", err)
		return Outcome{Message: "verification unavailable, try again"}
	}
	if ch == nil {
		return Outcome{Message: "no verification in progress, request a code first"}
	}

	if ch.Attempts >= MaxAttempts {
		return Outcome{Message: "too many attempts, request a new code"}
	}

	if s.now().After(ch.ExpiresAt) {
		return Outcome{Message: "code expired, request a new code"}
	}

	attempts, err := s.store.IncrementAttempts(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to record OTP attempt", "user_id", userID, "error", err)
		return Outcome{Message: "verification unavailable, try again"}
	}

	if strings.TrimSpace(code) != ch.Code {
		remaining := MaxAttempts - attempts
		if remaining <= 0 {
			return Outcome{Message: "too many attempts, request a new code"}
		}
		return Outcome{Message: fmt.Sprintf("incorrect code, %d attempts remaining", remaining)}
	}

	if err := s.profiles.ConfirmPhone(ctx, userID, ch.Phone); err != nil {
		s.logger.Error("Failed to confirm phone number", "user_id", userID, "error", err)
		return Outcome{Message: "verification succeeded but could not be saved, try again"}
	}

	if err := s.store.Clear(ctx, userID); err != nil {
		// Profile is already confirmed; a stale challenge only blocks
		// until its TTL runs out.
		s.logger.Warn("Failed to clear OTP challenge", "user_id", userID, "error", err)
	}

	s.logger.Info("Phone number verified", "user_id", userID)
	return Outcome{Success: true, Message: "phone number verified"}
}

// generateCode draws a uniform 4-digit code in [1000, 9999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", 1000+n.Int64()), nil
}
