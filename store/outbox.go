package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/fitquest/models"
)

// Outbox holds feed posts waiting for another publish attempt.
type Outbox struct {
	db *gorm.DB
}

// NewOutbox returns an Outbox backed by db.
func NewOutbox(db *gorm.DB) *Outbox {
	return &Outbox{db: db}
}

// Enqueue stores a pending post.
func (s *Outbox) Enqueue(ctx context.Context, p models.PendingFeedPost) error {
	p.ID = 0
	return s.db.WithContext(ctx).Create(&p).Error
}

// Due returns up to limit posts whose next attempt is not after now.
func (s *Outbox) Due(ctx context.Context, now time.Time, limit int) ([]models.PendingFeedPost, error) {
	var out []models.PendingFeedPost
	err := s.db.WithContext(ctx).
		Where("next_attempt_at <= ?", now).
		Order("next_attempt_at ASC").Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Done removes a post that no longer needs publishing.
func (s *Outbox) Done(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.PendingFeedPost{}, id).Error
}

// Reschedule records a failed attempt and the time of the next one.
func (s *Outbox) Reschedule(ctx context.Context, id uint, attempts int, lastErr string, next time.Time) error {
	return s.db.WithContext(ctx).Model(&models.PendingFeedPost{}).Where("id = ?", id).Updates(map[string]interface{}{
		"attempts":        attempts,
		"last_error":      lastErr,
		"next_attempt_at": next,
	}).Error
}
