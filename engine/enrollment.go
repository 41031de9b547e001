package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cppla/fitquest/models"
)

// Enrollment handles joining and leaving challenges after checking that the
// user and the challenge exist.
type Enrollment struct {
	participants ParticipantStore
	catalog      Catalog
	users        UserLookup
	members      Memberships
	logger       *zap.Logger
}

// NewEnrollment wires an Enrollment. members may be nil, which lets anyone join community challenges.
func NewEnrollment(participants ParticipantStore, catalog Catalog, users UserLookup, members Memberships, opts ...Option) *Enrollment {
	o := buildOptions(opts)
	return &Enrollment{
		participants: participants,
		catalog:      catalog,
		users:        users,
		members:      members,
		logger:       o.logger,
	}
}

// Join enrolls the user with progress 0. A community challenge requires membership.
func (e *Enrollment) Join(ctx context.Context, userID, challengeID uint) (*models.Participation, error) {
	ch, err := e.check(ctx, userID, challengeID)
	if err != nil {
		return nil, err
	}
	if ch.IsCommunity() && e.members != nil {
		ok, err := e.members.IsMember(ctx, *ch.CommunityID, userID)
		if err != nil {
			return nil, fmt.Errorf("check membership: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("challenge %d: %w", challengeID, ErrNotMember)
		}
	}
	p, err := e.participants.Enroll(ctx, userID, challengeID)
	if err != nil {
		return nil, err
	}
	e.logger.Info("challenge joined", zap.Uint("user_id", userID), zap.Uint("challenge_id", challengeID))
	return p, nil
}

// Leave removes the participation. Leaving twice is not an error.
func (e *Enrollment) Leave(ctx context.Context, userID, challengeID uint) error {
	if _, err := e.check(ctx, userID, challengeID); err != nil {
		return err
	}
	if err := e.participants.Unenroll(ctx, userID, challengeID); err != nil {
		return err
	}
	e.logger.Info("challenge left", zap.Uint("user_id", userID), zap.Uint("challenge_id", challengeID))
	return nil
}

func (e *Enrollment) check(ctx context.Context, userID, challengeID uint) (*models.Challenge, error) {
	if _, err := e.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return e.catalog.Get(ctx, challengeID)
}

// Enrolled is a participation together with its challenge.
type Enrolled struct {
	Challenge     models.Challenge     `json:"challenge"`
	Participation models.Participation `json:"participation"`
}

// ListFilter narrows ListForUser. Zero values match everything.
type ListFilter struct {
	Type        models.ChallengeType
	CommunityID *uint
}

func (f ListFilter) match(ch *models.Challenge) bool {
	if f.Type != "" && ch.Type != f.Type {
		return false
	}
	if f.CommunityID != nil && (ch.CommunityID == nil || *ch.CommunityID != *f.CommunityID) {
		return false
	}
	return true
}

// ListForUser returns the user's participations with their challenges.
// Participations whose challenge has disappeared are left out.
func (e *Enrollment) ListForUser(ctx context.Context, userID uint, filter ListFilter) ([]Enrolled, error) {
	parts, err := e.participants.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list participations of user %d: %w", userID, err)
	}
	out := make([]Enrolled, 0, len(parts))
	for _, p := range parts {
		ch, err := e.catalog.Get(ctx, p.ChallengeID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !filter.match(ch) {
			continue
		}
		out = append(out, Enrolled{Challenge: *ch, Participation: p})
	}
	return out, nil
}
