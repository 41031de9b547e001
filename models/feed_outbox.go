package models

import "time"

// PendingFeedPost is a completion announcement that could not be published
// and waits for the retry worker.
type PendingFeedPost struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CommunityID   uint      `gorm:"not null;index" json:"community_id"`
	ChallengeID   uint      `gorm:"not null" json:"challenge_id"`
	UserID        uint      `gorm:"not null" json:"user_id"`
	Username      string    `gorm:"size:64;not null" json:"username"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	PostedAt      time.Time `json:"posted_at"`
	Attempts      int       `gorm:"default:0" json:"attempts"`
	LastError     string    `gorm:"size:512" json:"last_error"`
	NextAttemptAt time.Time `gorm:"index" json:"next_attempt_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// FeedPost converts the pending row back into the post it stands for.
func (p *PendingFeedPost) FeedPost() FeedPost {
	return FeedPost{
		CommunityID: p.CommunityID,
		UserID:      p.UserID,
		Username:    p.Username,
		Content:     p.Content,
		CreatedAt:   p.PostedAt,
	}
}
