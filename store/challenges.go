package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/models"
)

// Challenges is the gorm Challenge Catalog.
type Challenges struct {
	db *gorm.DB
}

// NewChallenges returns a Challenges backed by db.
func NewChallenges(db *gorm.DB) *Challenges {
	return &Challenges{db: db}
}

// Get returns the challenge with the given id.
func (s *Challenges) Get(ctx context.Context, id uint) (*models.Challenge, error) {
	var ch models.Challenge
	if err := s.db.WithContext(ctx).First(&ch, id).Error; err != nil {
		return nil, notFound(err, "challenge %d", id)
	}
	return &ch, nil
}

// ListByType returns every challenge of type t ordered by level.
func (s *Challenges) ListByType(ctx context.Context, t models.ChallengeType) ([]models.Challenge, error) {
	return s.List(ctx, ChallengeFilter{Type: t})
}

// ChallengeFilter narrows List. Zero values match everything.
type ChallengeFilter struct {
	Type        models.ChallengeType
	CommunityID *uint
	GlobalOnly  bool
}

// List returns challenges matching f ordered by type, level and id.
func (s *Challenges) List(ctx context.Context, f ChallengeFilter) ([]models.Challenge, error) {
	q := s.db.WithContext(ctx).Model(&models.Challenge{})
	if f.Type != "" {
		q = q.Where("challenge_type = ?", f.Type)
	}
	switch {
	case f.CommunityID != nil:
		q = q.Where("community_id = ?", *f.CommunityID)
	case f.GlobalOnly:
		q = q.Where("community_id IS NULL")
	}
	var out []models.Challenge
	err := q.Order("challenge_type ASC").Order("level ASC").Order("id ASC").Find(&out).Error
	return out, err
}

// Create validates and inserts ch. A community challenge needs an existing community.
func (s *Challenges) Create(ctx context.Context, ch *models.Challenge) error {
	if ch.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidChallenge)
	}
	if !ch.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidChallenge, ch.Type)
	}
	if ch.Level < 1 {
		return fmt.Errorf("%w: level must be at least 1", ErrInvalidChallenge)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ch.CommunityID != nil {
			var count int64
			if err := tx.Model(&models.Community{}).Where("id = ?", *ch.CommunityID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("community %d: %w", *ch.CommunityID, engine.ErrCommunityNotFound)
			}
		}
		return tx.Create(ch).Error
	})
}

// Delete removes the challenge together with its participations.
func (s *Challenges) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Challenge{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("challenge %d: %w", id, engine.ErrNotFound)
		}
		return tx.Where("challenge_id = ?", id).Delete(&models.Participation{}).Error
	})
}
