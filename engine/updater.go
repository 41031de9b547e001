package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cppla/fitquest/models"
)

// Updater applies progress to every matching, not yet completed participation
// of a user. Each (user, challenge) pair is updated under its own lock with an
// optimistic version check, so concurrent events for the same pair never lose
// increments and completion is announced at most once.
type Updater struct {
	participants ParticipantStore
	catalog      Catalog
	notifier     *Notifier
	locker       Locker
	metrics      *Metrics
	logger       *zap.Logger
	maxRetries   int
}

// NewUpdater wires an Updater. notifier may be nil, in which case completions are not announced.
func NewUpdater(participants ParticipantStore, catalog Catalog, notifier *Notifier, opts ...Option) *Updater {
	o := buildOptions(opts)
	return &Updater{
		participants: participants,
		catalog:      catalog,
		notifier:     notifier,
		locker:       o.locker,
		metrics:      o.metrics,
		logger:       o.logger,
		maxRetries:   o.maxRetries,
	}
}

// Apply classifies ev and advances the user's participations of that type.
// Meal and Activity add one; Streak replaces progress with the event's length.
func (u *Updater) Apply(ctx context.Context, ev Event) (*Result, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	ctype, err := Classify(ev.Kind)
	if err != nil {
		return nil, err
	}
	u.metrics.event(ev.Kind)

	next := func(cur int) int { return cur + 1 }
	if ctype == models.ChallengeStreak {
		length := ev.StreakLength
		next = func(int) int { return length }
	}
	return u.run(ctx, ev.UserID, ctype, next)
}

// SetAbsolute replaces progress of the user's participations of type ctype with value.
// This is how Goal challenges move.
func (u *Updater) SetAbsolute(ctx context.Context, userID uint, ctype models.ChallengeType, value int) (*Result, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidEvent)
	}
	if !ctype.Valid() {
		return nil, fmt.Errorf("%w: unknown challenge type %q", ErrInvalidEvent, ctype)
	}
	return u.run(ctx, userID, ctype, func(int) int { return value })
}

func (u *Updater) run(ctx context.Context, userID uint, ctype models.ChallengeType, next func(int) int) (*Result, error) {
	parts, err := u.participants.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list participations of user %d: %w", userID, err)
	}

	res := &Result{UserID: userID, Type: ctype}
	for _, p := range parts {
		if p.Completed {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ch, err := u.catalog.Get(ctx, p.ChallengeID)
		if err != nil {
			reason := SkipStoreError
			if errors.Is(err, ErrNotFound) {
				reason = SkipChallengeMissing
			}
			u.skip(res, userID, p.ChallengeID, reason, err)
			continue
		}
		if ch.Type != ctype {
			continue
		}
		u.advance(ctx, res, userID, ch, next)
	}
	return res, nil
}

func (u *Updater) advance(ctx context.Context, res *Result, userID uint, ch *models.Challenge, next func(int) int) {
	unlock, err := u.locker.Lock(ctx, PairKey(userID, ch.ID))
	if err != nil {
		u.skip(res, userID, ch.ID, SkipStoreError, fmt.Errorf("lock participation: %w", err))
		return
	}
	outcome, reason, err := u.write(ctx, userID, ch, next)
	unlock()

	if reason != "" {
		u.skip(res, userID, ch.ID, reason, err)
		return
	}
	res.Updated = append(res.Updated, outcome)
	u.metrics.write(ch.Type)
	u.logger.Debug("progress written",
		zap.Uint("user_id", userID),
		zap.Uint("challenge_id", ch.ID),
		zap.Int("previous", outcome.Previous),
		zap.Int("progress", outcome.Progress),
	)

	if !outcome.JustCompleted {
		return
	}
	u.metrics.completion(ch)
	u.logger.Info("challenge completed",
		zap.Uint("user_id", userID),
		zap.Uint("challenge_id", ch.ID),
		zap.String("type", string(ch.Type)),
		zap.Int("level", ch.Level),
	)
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Notify(ctx, userID, ch); err != nil {
		var fe *FeedError
		if !errors.As(err, &fe) {
			fe = &FeedError{UserID: userID, ChallengeID: ch.ID, Err: err}
		}
		res.FeedErrors = append(res.FeedErrors, fe)
	}
}

// write runs the read-modify-write of one pair, retrying version conflicts.
// A non-empty reason means nothing was written.
func (u *Updater) write(ctx context.Context, userID uint, ch *models.Challenge, next func(int) int) (Outcome, SkipReason, error) {
	for attempt := 0; ; attempt++ {
		p, err := u.participants.Get(ctx, userID, ch.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Outcome{}, SkipParticipationMissing, err
			}
			return Outcome{}, SkipStoreError, err
		}
		if p.Completed {
			return Outcome{}, SkipAlreadyCompleted, nil
		}

		progress := clamp(next(p.Progress), 0, ch.Level)
		justCompleted := progress >= ch.Level
		if progress == p.Progress && !justCompleted {
			return Outcome{}, SkipUnchanged, nil
		}

		err = u.participants.UpdateProgress(ctx, userID, ch.ID, progress, justCompleted, p.Version)
		switch {
		case err == nil:
			return Outcome{
				ChallengeID:   ch.ID,
				ChallengeName: ch.Name,
				Previous:      p.Progress,
				Progress:      progress,
				Level:         ch.Level,
				Completed:     justCompleted,
				JustCompleted: justCompleted,
			}, "", nil
		case errors.Is(err, ErrConflict):
			u.metrics.conflict()
			if attempt >= u.maxRetries {
				return Outcome{}, SkipConflict, err
			}
			u.logger.Debug("retrying progress write after conflict",
				zap.Uint("user_id", userID),
				zap.Uint("challenge_id", ch.ID),
				zap.Int("attempt", attempt+1),
			)
		case errors.Is(err, ErrNotFound):
			return Outcome{}, SkipParticipationMissing, err
		default:
			return Outcome{}, SkipStoreError, err
		}
	}
}

func (u *Updater) skip(res *Result, userID, challengeID uint, reason SkipReason, err error) {
	s := Skip{ChallengeID: challengeID, Reason: reason, Err: err}
	if err != nil {
		s.Message = err.Error()
	}
	res.Skipped = append(res.Skipped, s)
	u.metrics.skip(reason)

	fields := []zap.Field{
		zap.Uint("user_id", userID),
		zap.Uint("challenge_id", challengeID),
		zap.String("reason", string(reason)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if reason.benign() {
		u.logger.Debug("participation skipped", fields...)
		return
	}
	u.logger.Warn("participation skipped", fields...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
