package workers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/models"
)

type fakeOutbox struct {
	rows        map[uint]*models.PendingFeedPost
	done        []uint
	rescheduled map[uint]time.Time
}

func newFakeOutbox(rows ...models.PendingFeedPost) *fakeOutbox {
	o := &fakeOutbox{rows: map[uint]*models.PendingFeedPost{}, rescheduled: map[uint]time.Time{}}
	for i := range rows {
		r := rows[i]
		o.rows[r.ID] = &r
	}
	return o
}

func (o *fakeOutbox) Due(_ context.Context, now time.Time, limit int) ([]models.PendingFeedPost, error) {
	var out []models.PendingFeedPost
	for id := uint(1); id <= uint(len(o.rows)+len(o.done)) && len(out) < limit; id++ {
		if r, ok := o.rows[id]; ok && !r.NextAttemptAt.After(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (o *fakeOutbox) Done(_ context.Context, id uint) error {
	delete(o.rows, id)
	o.done = append(o.done, id)
	return nil
}

func (o *fakeOutbox) Reschedule(_ context.Context, id uint, attempts int, lastErr string, next time.Time) error {
	r, ok := o.rows[id]
	if !ok {
		return fmt.Errorf("row %d missing", id)
	}
	r.Attempts = attempts
	r.LastError = lastErr
	r.NextAttemptAt = next
	o.rescheduled[id] = next
	return nil
}

type fakeFeed struct {
	errFor    map[uint]error
	published []models.FeedPost
}

func (f *fakeFeed) Publish(_ context.Context, communityID uint, post models.FeedPost) error {
	if err := f.errFor[communityID]; err != nil {
		return err
	}
	post.CommunityID = communityID
	f.published = append(f.published, post)
	return nil
}

func TestRunOnceDispatchesByOutcome(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	flaky := errors.New("db unavailable")
	outbox := newFakeOutbox(
		models.PendingFeedPost{ID: 1, CommunityID: 10, UserID: 1, Username: "ann", Content: "ok", NextAttemptAt: now},
		models.PendingFeedPost{ID: 2, CommunityID: 20, UserID: 2, Username: "bo", Content: "gone", NextAttemptAt: now},
		models.PendingFeedPost{ID: 3, CommunityID: 30, UserID: 3, Username: "cy", Content: "retry", Attempts: 1, NextAttemptAt: now},
		models.PendingFeedPost{ID: 4, CommunityID: 30, UserID: 4, Username: "di", Content: "last", Attempts: 2, NextAttemptAt: now},
		models.PendingFeedPost{ID: 5, CommunityID: 10, UserID: 5, Username: "ed", Content: "later", NextAttemptAt: now.Add(time.Minute)},
	)
	feed := &fakeFeed{errFor: map[uint]error{20: engine.ErrCommunityNotFound, 30: flaky}}

	w := NewFeedRetryWorker(outbox, feed, nil, 10*time.Second, 3)
	w.now = func() time.Time { return now }

	n, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || len(feed.published) != 1 || feed.published[0].Content != "ok" {
		t.Fatalf("published %d: %+v", n, feed.published)
	}
	if fmt.Sprint(outbox.done) != "[1 2 4]" {
		t.Fatalf("done = %v", outbox.done)
	}
	r := outbox.rows[3]
	if r == nil || r.Attempts != 2 || r.LastError != "db unavailable" {
		t.Fatalf("row 3 = %+v", r)
	}
	if want := now.Add(20 * time.Second); !r.NextAttemptAt.Equal(want) {
		t.Fatalf("next attempt = %v, want %v", r.NextAttemptAt, want)
	}
	if _, ok := outbox.rows[5]; !ok {
		t.Fatal("future row must stay untouched")
	}
}

func TestBackoffCaps(t *testing.T) {
	w := NewFeedRetryWorker(newFakeOutbox(), &fakeFeed{}, nil, time.Minute, 20)
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{1, time.Minute},
		{2, 2 * time.Minute},
		{4, 8 * time.Minute},
		{7, time.Hour},
		{15, time.Hour},
	}
	for _, tc := range cases {
		if got := w.backoff(tc.attempts); got != tc.want {
			t.Errorf("backoff(%d) = %v, want %v", tc.attempts, got, tc.want)
		}
	}
}

func TestStartStop(t *testing.T) {
	w := NewFeedRetryWorker(newFakeOutbox(), &fakeFeed{}, nil, time.Hour, 3)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
