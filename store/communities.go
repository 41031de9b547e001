package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/models"
)

// Communities manages communities and their members.
type Communities struct {
	db *gorm.DB
}

// NewCommunities returns a Communities backed by db.
func NewCommunities(db *gorm.DB) *Communities {
	return &Communities{db: db}
}

// Create inserts c and makes its creator the first member.
func (s *Communities) Create(ctx context.Context, c *models.Community) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Community{}).Where("name = ?", c.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrNameTaken
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Create(&models.CommunityMember{CommunityID: c.ID, UserID: c.CreatedBy}).Error
	})
	if isDuplicate(err) {
		err = ErrNameTaken
	}
	if errors.Is(err, ErrNameTaken) {
		return fmt.Errorf("community %q: %w", c.Name, ErrNameTaken)
	}
	return err
}

// Get returns the community with the given id, or engine.ErrCommunityNotFound.
func (s *Communities) Get(ctx context.Context, id uint) (*models.Community, error) {
	var c models.Community
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("community %d: %w", id, engine.ErrCommunityNotFound)
		}
		return nil, err
	}
	return &c, nil
}

// Join adds the user to the community. Joining twice is not an error.
func (s *Communities) Join(ctx context.Context, communityID, userID uint) error {
	if _, err := s.Get(ctx, communityID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CommunityMember{CommunityID: communityID, UserID: userID}).Error
}

// IsMember reports whether the user belongs to the community.
func (s *Communities) IsMember(ctx context.Context, communityID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error
	return count > 0, err
}
