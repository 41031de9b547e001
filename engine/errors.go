package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the engine and the stores behind it. Stores wrap
// them with context; callers compare with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyEnrolled   = errors.New("already enrolled")
	ErrConflict          = errors.New("concurrent update conflict")
	ErrCommunityNotFound = errors.New("community not found")
	ErrInvalidEvent      = errors.New("invalid event")
	ErrNotMember         = errors.New("not a member of the community")
)

// FeedError reports a completion that was recorded but could not be announced.
// It never rolls back progress.
type FeedError struct {
	UserID      uint
	ChallengeID uint
	CommunityID uint
	Err         error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("announce completion of challenge %d by user %d to community %d: %v",
		e.ChallengeID, e.UserID, e.CommunityID, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }
