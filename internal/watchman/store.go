package watchman

import (
	"context"
	"errors"
	"fmt"

	"github.com/domyzanna/pittima/internal/models"
	"gorm.io/gorm"
)

// Store is the watchman's view of the data layer: a paginated user
// iterator plus the per-user reads and the two batch writes the run
// performs. Kept narrow so the batch can be tested without a database.
type Store interface {
	// ForEachUserPage walks all users in bounded pages. Returning an
	// error from fn aborts the walk.
	ForEachUserPage(ctx context.Context, pageSize int, fn func(users []models.User) error) error

	DeadlinesForUser(ctx context.Context, userID uint) ([]models.Deadline, error)
	PushSubscriptionsForUser(ctx context.Context, userID uint) ([]models.PushSubscription, error)
	WhatsAppProfileForUser(ctx context.Context, userID uint) (*models.WhatsAppProfile, error)

	// MarkNotified stamps the notified status on the given deadlines.
	MarkNotified(ctx context.Context, deadlineIDs []uint) error
	// RemovePushTokens deletes dead tokens for one user in a single write.
	RemovePushTokens(ctx context.Context, userID uint, tokens []string) error
}

// GormStore implements Store on the Postgres database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates the production store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// ForEachUserPage iterates users in primary-key order using batched
// queries, so memory stays bounded no matter how large the directory grows.
func (s *GormStore) ForEachUserPage(ctx context.Context, pageSize int, fn func(users []models.User) error) error {
	var page []models.User
	result := s.db.WithContext(ctx).FindInBatches(&page, pageSize, func(tx *gorm.DB, batch int) error {
		return fn(page)
	})
	if result.Error != nil {
		return fmt.Errorf("failed to enumerate users: %w", result.Error)
	}
	return nil
}

func (s *GormStore) DeadlinesForUser(ctx context.Context, userID uint) ([]models.Deadline, error) {
	var out []models.Deadline
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load deadlines: %w", err)
	}
	return out, nil
}

func (s *GormStore) PushSubscriptionsForUser(ctx context.Context, userID uint) ([]models.PushSubscription, error) {
	var out []models.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load push subscriptions: %w", err)
	}
	return out, nil
}

func (s *GormStore) WhatsAppProfileForUser(ctx context.Context, userID uint) (*models.WhatsAppProfile, error) {
	var profile models.WhatsAppProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load whatsapp profile: %w", err)
	}
	return &profile, nil
}

func (s *GormStore) MarkNotified(ctx context.Context, deadlineIDs []uint) error {
	if len(deadlineIDs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&models.Deadline{}).
		Where("id IN ?", deadlineIDs).
		Update("notification_status", models.NotificationStatusNotified).Error
	if err != nil {
		return fmt.Errorf("failed to mark deadlines notified: %w", err)
	}
	return nil
}

func (s *GormStore) RemovePushTokens(ctx context.Context, userID uint, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND token IN ?", userID, tokens).
		Delete(&models.PushSubscription{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove push tokens: %w", err)
	}
	return nil
}
