package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/models"
)

// Users reads and writes user rows.
type Users struct {
	db *gorm.DB
}

// NewUsers returns a Users backed by db.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// GetUser returns the user with the given id.
func (s *Users) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err, "user %d", id)
	}
	return &u, nil
}

// GetByUsername looks a user up by name.
func (s *Users) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err, "user %q", username)
	}
	return &u, nil
}

// Create inserts u. Duplicate names return ErrUsernameTaken.
func (s *Users) Create(ctx context.Context, u *models.User) error {
	var count int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Where("username = ?", u.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%q: %w", u.Username, ErrUsernameTaken)
	}
	if err := db.Create(u).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%q: %w", u.Username, ErrUsernameTaken)
		}
		return err
	}
	return nil
}

// UpdateWeights stores the goal and weight fields and returns the fresh row.
func (s *Users) UpdateWeights(ctx context.Context, id uint, goal string, start, current, target float64) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"goal":           goal,
		"start_weight":   start,
		"current_weight": current,
		"target_weight":  target,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("user %d: %w", id, engine.ErrNotFound)
	}
	return s.GetUser(ctx, id)
}

// SetStreak stores the latest computed streak.
func (s *Users) SetStreak(ctx context.Context, id uint, streak int) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("streak", streak).Error
}
