package models

import "time"

// Participation links a user to a challenge. Progress never exceeds the
// challenge level and Completed never goes back to false.
type Participation struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex:uk_participation_pair" json:"user_id"`
	ChallengeID uint       `gorm:"not null;uniqueIndex:uk_participation_pair;index" json:"challenge_id"`
	Progress    int        `gorm:"default:0" json:"progress"`
	Completed   bool       `gorm:"default:false;index" json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Version is bumped on every progress write and guards against lost updates.
	Version   int64     `gorm:"default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
