package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/fitquest/models"
)

// Notifier announces completions of community challenges in the community feed.
type Notifier struct {
	users   UserLookup
	feed    FeedPublisher
	outbox  Outbox
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewNotifier wires a Notifier. Pass WithOutbox to keep failed posts for retry.
func NewNotifier(users UserLookup, feed FeedPublisher, opts ...Option) *Notifier {
	o := buildOptions(opts)
	return &Notifier{
		users:   users,
		feed:    feed,
		outbox:  o.outbox,
		metrics: o.metrics,
		logger:  o.logger,
		now:     o.now,
	}
}

// CompletionMessage is the feed text announcing a completion.
func CompletionMessage(username, challengeName string) string {
	return fmt.Sprintf("%s has completed the \"%s\" challenge.", username, challengeName)
}

// Notify posts the completion of ch by userID to the challenge's community.
// Global challenges are a no-op. Any failure is returned as a *FeedError.
func (n *Notifier) Notify(ctx context.Context, userID uint, ch *models.Challenge) error {
	if ch == nil || !ch.IsCommunity() {
		return nil
	}
	communityID := *ch.CommunityID

	fail := func(err error) error {
		n.metrics.feedFailure()
		n.logger.Warn("completion announcement failed",
			zap.Uint("user_id", userID),
			zap.Uint("challenge_id", ch.ID),
			zap.Uint("community_id", communityID),
			zap.Error(err),
		)
		return &FeedError{UserID: userID, ChallengeID: ch.ID, CommunityID: communityID, Err: err}
	}

	user, err := n.users.GetUser(ctx, userID)
	if err != nil {
		return fail(fmt.Errorf("look up user: %w", err))
	}

	post := models.FeedPost{
		CommunityID: communityID,
		UserID:      userID,
		Username:    user.Username,
		Content:     CompletionMessage(user.Username, ch.Name),
		CreatedAt:   n.now(),
	}
	if err := n.feed.Publish(ctx, communityID, post); err != nil {
		if !errors.Is(err, ErrCommunityNotFound) {
			n.park(ctx, ch.ID, post, err)
		}
		return fail(err)
	}
	return nil
}

// park stores a failed post in the outbox. Best effort.
func (n *Notifier) park(ctx context.Context, challengeID uint, post models.FeedPost, cause error) {
	if n.outbox == nil {
		return
	}
	pending := models.PendingFeedPost{
		CommunityID:   post.CommunityID,
		ChallengeID:   challengeID,
		UserID:        post.UserID,
		Username:      post.Username,
		Content:       post.Content,
		PostedAt:      post.CreatedAt,
		LastError:     truncate(cause.Error(), 512),
		NextAttemptAt: n.now(),
	}
	if err := n.outbox.Enqueue(ctx, pending); err != nil {
		n.logger.Error("feed outbox enqueue failed",
			zap.Uint("user_id", post.UserID),
			zap.Uint("community_id", post.CommunityID),
			zap.Error(err),
		)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
