package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cppla/fitquest/models"
)

type pair struct{ user, challenge uint }

type memParticipants struct {
	mu     sync.Mutex
	rows   map[pair]*models.Participation
	nextID uint

	// forced conflicts on UpdateProgress; negative means always
	conflicts int
	updates   int
	listErr   error
	getErr    error
}

func newMemParticipants() *memParticipants {
	return &memParticipants{rows: make(map[pair]*models.Participation)}
}

func (m *memParticipants) Enroll(_ context.Context, userID, challengeID uint) (*models.Participation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pair{userID, challengeID}
	if _, ok := m.rows[k]; ok {
		return nil, ErrAlreadyEnrolled
	}
	m.nextID++
	p := &models.Participation{ID: m.nextID, UserID: userID, ChallengeID: challengeID}
	m.rows[k] = p
	cp := *p
	return &cp, nil
}

func (m *memParticipants) Get(_ context.Context, userID, challengeID uint) (*models.Participation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.rows[pair{userID, challengeID}]
	if !ok {
		return nil, fmt.Errorf("participation: %w", ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *memParticipants) ListByUser(_ context.Context, userID uint) ([]models.Participation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Participation
	for k, p := range m.rows {
		if k.user == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memParticipants) ListByChallenge(_ context.Context, challengeID uint) ([]models.Participation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Participation
	for k, p := range m.rows {
		if k.challenge == challengeID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memParticipants) UpdateProgress(_ context.Context, userID, challengeID uint, progress int, completed bool, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.conflicts != 0 {
		if m.conflicts > 0 {
			m.conflicts--
		}
		return fmt.Errorf("participation: %w", ErrConflict)
	}
	p, ok := m.rows[pair{userID, challengeID}]
	if !ok {
		return fmt.Errorf("participation: %w", ErrNotFound)
	}
	if p.Version != expectedVersion {
		return fmt.Errorf("participation: %w", ErrConflict)
	}
	p.Progress = progress
	if completed && !p.Completed {
		now := time.Now()
		p.CompletedAt = &now
	}
	p.Completed = p.Completed || completed
	p.Version++
	return nil
}

func (m *memParticipants) Unenroll(_ context.Context, userID, challengeID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, pair{userID, challengeID})
	return nil
}

func (m *memParticipants) progress(userID, challengeID uint) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.rows[pair{userID, challengeID}]
	return p.Progress, p.Completed
}

type memCatalog struct {
	mu   sync.Mutex
	rows map[uint]models.Challenge
}

func newMemCatalog(chs ...models.Challenge) *memCatalog {
	c := &memCatalog{rows: make(map[uint]models.Challenge)}
	for _, ch := range chs {
		c.rows[ch.ID] = ch
	}
	return c
}

func (c *memCatalog) Get(_ context.Context, id uint) (*models.Challenge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.rows[id]
	if !ok {
		return nil, fmt.Errorf("challenge %d: %w", id, ErrNotFound)
	}
	return &ch, nil
}

func (c *memCatalog) ListByType(_ context.Context, t models.ChallengeType) ([]models.Challenge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Challenge
	for _, ch := range c.rows {
		if ch.Type == t {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memUsers map[uint]models.User

func (m memUsers) GetUser(_ context.Context, id uint) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return &u, nil
}

type memFeed struct {
	mu          sync.Mutex
	communities map[uint]bool
	posts       []models.FeedPost
	err         error
}

func newMemFeed(communityIDs ...uint) *memFeed {
	f := &memFeed{communities: make(map[uint]bool)}
	for _, id := range communityIDs {
		f.communities[id] = true
	}
	return f
}

func (f *memFeed) Publish(_ context.Context, communityID uint, post models.FeedPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if !f.communities[communityID] {
		return fmt.Errorf("community %d: %w", communityID, ErrCommunityNotFound)
	}
	post.CommunityID = communityID
	f.posts = append(f.posts, post)
	return nil
}

func (f *memFeed) all() []models.FeedPost {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.FeedPost(nil), f.posts...)
}

type memOutbox struct {
	mu      sync.Mutex
	pending []models.PendingFeedPost
}

func (o *memOutbox) Enqueue(_ context.Context, p models.PendingFeedPost) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, p)
	return nil
}

type memMembers map[pair]bool

func (m memMembers) IsMember(_ context.Context, communityID, userID uint) (bool, error) {
	return m[pair{userID, communityID}], nil
}

func uintPtr(v uint) *uint { return &v }
