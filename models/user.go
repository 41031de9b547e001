package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// User represents a tracked participant. Passwords are stored as bcrypt hashes only.
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Username      string         `gorm:"size:64;not null;uniqueIndex" json:"username"`
	PasswordHash  string         `gorm:"size:255" json:"-"`
	Goal          string         `gorm:"size:64" json:"goal"`
	StartWeight   float64        `json:"start_weight"`
	CurrentWeight float64        `json:"current_weight"`
	TargetWeight  float64        `json:"target_weight"`
	Streak        int            `gorm:"default:0" json:"streak"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// GoalPercent reports how far the user has moved from the start weight toward
// the target weight, as a whole percentage in [0, 100]. It returns false when
// no usable target is set.
func (u *User) GoalPercent() (int, bool) {
	span := u.StartWeight - u.TargetWeight
	if u.TargetWeight <= 0 || u.StartWeight <= 0 || span == 0 {
		return 0, false
	}
	pct := (u.StartWeight - u.CurrentWeight) / span * 100
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	return int(math.Floor(pct)), true
}
