package models

import (
	"fmt"
	"strings"
	"time"
)

// ChallengeType is the closed set of progress rules a challenge can follow.
type ChallengeType string

const (
	ChallengeStreak   ChallengeType = "Streak"
	ChallengeMeal     ChallengeType = "Meal"
	ChallengeActivity ChallengeType = "Activity"
	ChallengeGoal     ChallengeType = "Goal"
)

// ChallengeTypes lists every valid type in display order.
var ChallengeTypes = []ChallengeType{ChallengeStreak, ChallengeMeal, ChallengeActivity, ChallengeGoal}

// Valid reports whether t is one of the known types.
func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeStreak, ChallengeMeal, ChallengeActivity, ChallengeGoal:
		return true
	}
	return false
}

// ParseChallengeType matches s case-insensitively against the known types.
func ParseChallengeType(s string) (ChallengeType, error) {
	for _, t := range ChallengeTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown challenge type %q", s)
}

// Challenge is a catalog entry. CommunityID is nil for global challenges.
type Challenge struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"size:128;not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Type        ChallengeType `gorm:"column:challenge_type;size:16;not null;index" json:"type"`
	Level       int           `gorm:"not null" json:"level"`
	CommunityID *uint         `gorm:"index" json:"community_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsCommunity reports whether completions are announced to a community feed.
func (c *Challenge) IsCommunity() bool {
	return c.CommunityID != nil
}
