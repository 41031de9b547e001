package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/models"
)

// Participants is the gorm Participant Store.
type Participants struct {
	db  *gorm.DB
	now func() time.Time
}

// NewParticipants returns a Participants backed by db.
func NewParticipants(db *gorm.DB) *Participants {
	return &Participants{db: db, now: time.Now}
}

// Enroll creates a participation with progress 0.
func (s *Participants) Enroll(ctx context.Context, userID, challengeID uint) (*models.Participation, error) {
	p := models.Participation{UserID: userID, ChallengeID: challengeID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Participation{}).
			Where("user_id = ? AND challenge_id = ?", userID, challengeID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return engine.ErrAlreadyEnrolled
		}
		return tx.Create(&p).Error
	})
	if isDuplicate(err) || errors.Is(err, engine.ErrAlreadyEnrolled) {
		return nil, fmt.Errorf("user %d challenge %d: %w", userID, challengeID, engine.ErrAlreadyEnrolled)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get returns the participation of the pair.
func (s *Participants) Get(ctx context.Context, userID, challengeID uint) (*models.Participation, error) {
	var p models.Participation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		First(&p).Error
	if err != nil {
		return nil, notFound(err, "participation of user %d in challenge %d", userID, challengeID)
	}
	return &p, nil
}

// ListByUser returns all participations of the user, oldest first.
func (s *Participants) ListByUser(ctx context.Context, userID uint) ([]models.Participation, error) {
	var out []models.Participation
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&out).Error
	return out, err
}

// ListByChallenge returns all participations of the challenge, oldest first.
func (s *Participants) ListByChallenge(ctx context.Context, challengeID uint) ([]models.Participation, error) {
	var out []models.Participation
	err := s.db.WithContext(ctx).Where("challenge_id = ?", challengeID).Order("id ASC").Find(&out).Error
	return out, err
}

// UpdateProgress replaces progress and completed when the stored version
// matches expectedVersion, and bumps the version.
func (s *Participants) UpdateProgress(ctx context.Context, userID, challengeID uint, progress int, completed bool, expectedVersion int64) error {
	updates := map[string]interface{}{
		"progress":  progress,
		"completed": completed,
		"version":   gorm.Expr("version + 1"),
	}
	if completed {
		updates["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", s.now())
	}

	db := s.db.WithContext(ctx)
	res := db.Model(&models.Participation{}).
		Where("user_id = ? AND challenge_id = ? AND version = ?", userID, challengeID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.Participation{}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("participation of user %d in challenge %d: %w", userID, challengeID, engine.ErrNotFound)
	}
	return fmt.Errorf("participation of user %d in challenge %d at version %d: %w", userID, challengeID, expectedVersion, engine.ErrConflict)
}

// Unenroll deletes the participation. Missing rows are not an error.
func (s *Participants) Unenroll(ctx context.Context, userID, challengeID uint) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Delete(&models.Participation{}).Error
}
