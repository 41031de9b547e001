package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cppla/fitquest/models"
)

func TestCompletionMessage(t *testing.T) {
	got := CompletionMessage("bob", "Run 5k")
	if got != `bob has completed the "Run 5k" challenge.` {
		t.Fatalf("message = %q", got)
	}
}

func TestNotifyGlobalChallengeIsNoop(t *testing.T) {
	feed := newMemFeed(7)
	n := NewNotifier(memUsers{1: {ID: 1, Username: "alice"}}, feed)
	if err := n.Notify(context.Background(), 1, &move); err != nil {
		t.Fatal(err)
	}
	if len(feed.all()) != 0 {
		t.Fatal("global challenge announced")
	}
}

func TestNotifyUnknownUser(t *testing.T) {
	feed := newMemFeed(7)
	outbox := &memOutbox{}
	n := NewNotifier(memUsers{}, feed, WithOutbox(outbox))

	err := n.Notify(context.Background(), 5, &eatGreens)
	var fe *FeedError
	if !errors.As(err, &fe) || fe.UserID != 5 || fe.CommunityID != 7 {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("cause not preserved: %v", err)
	}
	if len(outbox.pending) != 0 {
		t.Fatal("nothing to park without a username")
	}
}

func TestNotifyParksWithClock(t *testing.T) {
	feed := newMemFeed(7)
	feed.err = errors.New("timeout")
	outbox := &memOutbox{}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	n := NewNotifier(memUsers{1: {ID: 1, Username: "alice"}}, feed,
		WithOutbox(outbox),
		WithClock(func() time.Time { return at }),
	)

	if err := n.Notify(context.Background(), 1, &clubRun); err == nil {
		t.Fatal("expected feed error")
	}
	if len(outbox.pending) != 1 {
		t.Fatalf("pending = %d", len(outbox.pending))
	}
	got := outbox.pending[0]
	want := models.PendingFeedPost{
		CommunityID:   7,
		ChallengeID:   clubRun.ID,
		UserID:        1,
		Username:      "alice",
		Content:       `alice has completed the "Club Run" challenge.`,
		PostedAt:      at,
		LastError:     "timeout",
		NextAttemptAt: at,
	}
	if got != want {
		t.Fatalf("pending = %+v\nwant %+v", got, want)
	}
}
