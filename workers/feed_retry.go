package workers

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/models"
)

const (
	defaultBatch = 50
	maxBackoff   = time.Hour
)

// PendingPosts is the outbox side the worker drains.
type PendingPosts interface {
	Due(ctx context.Context, now time.Time, limit int) ([]models.PendingFeedPost, error)
	Done(ctx context.Context, id uint) error
	Reschedule(ctx context.Context, id uint, attempts int, lastErr string, next time.Time) error
}

// FeedRetryWorker republishes completion announcements that failed the first time.
type FeedRetryWorker struct {
	outbox      PendingPosts
	feed        engine.FeedPublisher
	logger      *zap.Logger
	interval    time.Duration
	maxAttempts int
	batch       int
	now         func() time.Time

	sched gocron.Scheduler
}

// NewFeedRetryWorker returns a worker that runs every interval and gives up on a post after maxAttempts.
func NewFeedRetryWorker(outbox PendingPosts, feed engine.FeedPublisher, logger *zap.Logger, interval time.Duration, maxAttempts int) *FeedRetryWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	return &FeedRetryWorker{
		outbox:      outbox,
		feed:        feed,
		logger:      logger.Named("feed_retry"),
		interval:    interval,
		maxAttempts: maxAttempts,
		batch:       defaultBatch,
		now:         time.Now,
	}
}

// Start schedules RunOnce. Overlapping runs are skipped.
func (w *FeedRetryWorker) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), w.interval)
			defer cancel()
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Warn("feed retry run failed", zap.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}
	sched.Start()
	w.sched = sched
	w.logger.Info("feed retry worker started", zap.Duration("interval", w.interval), zap.Int("max_attempts", w.maxAttempts))
	return nil
}

// Stop waits for a running job and shuts the scheduler down.
func (w *FeedRetryWorker) Stop() {
	if w.sched == nil {
		return
	}
	if err := w.sched.Shutdown(); err != nil {
		w.logger.Warn("feed retry shutdown", zap.Error(err))
	}
	w.sched = nil
}

// RunOnce processes one batch of due posts and returns how many were published.
func (w *FeedRetryWorker) RunOnce(ctx context.Context) (int, error) {
	now := w.now()
	due, err := w.outbox.Due(ctx, now, w.batch)
	if err != nil {
		return 0, err
	}

	published := 0
	var errs []error
	for i := range due {
		p := &due[i]
		err := w.feed.Publish(ctx, p.CommunityID, p.FeedPost())
		switch {
		case err == nil:
			published++
			errs = append(errs, w.outbox.Done(ctx, p.ID))
		case errors.Is(err, engine.ErrCommunityNotFound):
			w.logger.Info("dropping post for deleted community",
				zap.Uint("community_id", p.CommunityID), zap.Uint("user_id", p.UserID))
			errs = append(errs, w.outbox.Done(ctx, p.ID))
		case p.Attempts+1 >= w.maxAttempts:
			w.logger.Error("giving up on feed post",
				zap.Uint("community_id", p.CommunityID),
				zap.Uint("challenge_id", p.ChallengeID),
				zap.Uint("user_id", p.UserID),
				zap.Int("attempts", p.Attempts+1),
				zap.Error(err),
			)
			errs = append(errs, w.outbox.Done(ctx, p.ID))
		default:
			attempts := p.Attempts + 1
			errs = append(errs, w.outbox.Reschedule(ctx, p.ID, attempts, truncate(err.Error(), 512), now.Add(w.backoff(attempts))))
		}
	}
	if published > 0 {
		w.logger.Debug("republished feed posts", zap.Int("count", published))
	}
	return published, errors.Join(errs...)
}

func (w *FeedRetryWorker) backoff(attempts int) time.Duration {
	d := w.interval
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
