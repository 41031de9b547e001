package engine

import (
	"context"

	"github.com/cppla/fitquest/models"
)

// ParticipantStore persists participations. UpdateProgress replaces progress
// and completed together and only succeeds when the stored version still
// equals expectedVersion; otherwise it returns ErrConflict, or ErrNotFound if
// the pair no longer exists.
type ParticipantStore interface {
	Enroll(ctx context.Context, userID, challengeID uint) (*models.Participation, error)
	Get(ctx context.Context, userID, challengeID uint) (*models.Participation, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Participation, error)
	ListByChallenge(ctx context.Context, challengeID uint) ([]models.Participation, error)
	UpdateProgress(ctx context.Context, userID, challengeID uint, progress int, completed bool, expectedVersion int64) error
	Unenroll(ctx context.Context, userID, challengeID uint) error
}

// Catalog is the read side of the challenge catalog.
type Catalog interface {
	Get(ctx context.Context, challengeID uint) (*models.Challenge, error)
	ListByType(ctx context.Context, t models.ChallengeType) ([]models.Challenge, error)
}

// UserLookup resolves users by id.
type UserLookup interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
}

// FeedPublisher appends a post to a community feed. It returns
// ErrCommunityNotFound when the community does not exist.
type FeedPublisher interface {
	Publish(ctx context.Context, communityID uint, post models.FeedPost) error
}

// Outbox keeps announcements that failed to publish for a later retry.
type Outbox interface {
	Enqueue(ctx context.Context, pending models.PendingFeedPost) error
}

// Memberships answers community membership questions.
type Memberships interface {
	IsMember(ctx context.Context, communityID, userID uint) (bool, error)
}
