package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/cppla/fitquest/models"
)

func newEnrollmentFixture() (*Enrollment, *memParticipants) {
	parts := newMemParticipants()
	catalog := newMemCatalog(eatGreens, move, target)
	users := memUsers{1: {ID: 1, Username: "alice"}, 2: {ID: 2, Username: "bob"}}
	members := memMembers{{user: 1, challenge: 7}: true}
	return NewEnrollment(parts, catalog, users, members), parts
}

func TestJoinStartsAtZero(t *testing.T) {
	e, _ := newEnrollmentFixture()
	p, err := e.Join(context.Background(), 1, move.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Progress != 0 || p.Completed {
		t.Fatalf("new participation = %+v", p)
	}
	if _, err := e.Join(context.Background(), 1, move.ID); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("second join err = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestJoinChecksExistence(t *testing.T) {
	e, _ := newEnrollmentFixture()
	if _, err := e.Join(context.Background(), 9, move.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user err = %v", err)
	}
	if _, err := e.Join(context.Background(), 1, 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown challenge err = %v", err)
	}
}

func TestJoinCommunityChallengeRequiresMembership(t *testing.T) {
	e, _ := newEnrollmentFixture()
	if _, err := e.Join(context.Background(), 2, eatGreens.ID); !errors.Is(err, ErrNotMember) {
		t.Fatalf("non-member err = %v, want ErrNotMember", err)
	}
	if _, err := e.Join(context.Background(), 1, eatGreens.ID); err != nil {
		t.Fatalf("member join: %v", err)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	e, parts := newEnrollmentFixture()
	if _, err := e.Join(context.Background(), 1, move.ID); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := e.Leave(context.Background(), 1, move.ID); err != nil {
			t.Fatalf("leave #%d: %v", i+1, err)
		}
	}
	if _, err := parts.Get(context.Background(), 1, move.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("participation still present: %v", err)
	}
	if _, err := e.Join(context.Background(), 1, move.ID); err != nil {
		t.Fatalf("rejoin after leave: %v", err)
	}
}

func TestListForUserFilters(t *testing.T) {
	e, parts := newEnrollmentFixture()
	ctx := context.Background()
	for _, id := range []uint{eatGreens.ID, move.ID, target.ID} {
		if _, err := e.Join(ctx, 1, id); err != nil {
			t.Fatal(err)
		}
	}
	// dangling participation whose challenge no longer exists
	if _, err := parts.Enroll(ctx, 1, 404); err != nil {
		t.Fatal(err)
	}

	all, err := e.ListForUser(ctx, 1, ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("all = %d, want 3", len(all))
	}

	goals, _ := e.ListForUser(ctx, 1, ListFilter{Type: models.ChallengeGoal})
	if len(goals) != 1 || goals[0].Challenge.ID != target.ID {
		t.Fatalf("goals = %+v", goals)
	}

	community, _ := e.ListForUser(ctx, 1, ListFilter{CommunityID: uintPtr(7)})
	if len(community) != 1 || community[0].Challenge.ID != eatGreens.ID {
		t.Fatalf("community = %+v", community)
	}
}
