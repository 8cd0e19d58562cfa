// Package memory keeps posts and reactions in process memory for single-instance
// development runs and tests. A single mutex makes every unit of work serial.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/forumpulse/internal/domain"
)

type reactionKey struct {
	PostID uuid.UUID
	UserID string
}

type Store struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	posts     map[uuid.UUID]*domain.PostCounters
	reactions map[reactionKey]domain.Reaction
}

var (
	_ domain.UnitOfWork     = (*Store)(nil)
	_ domain.ReactionStore  = (*Store)(nil)
	_ domain.CounterCache   = (*Store)(nil)
	_ domain.CounterAuditor = (*Store)(nil)
)

func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:     clock,
		posts:     make(map[uuid.UUID]*domain.PostCounters),
		reactions: make(map[reactionKey]domain.Reaction),
	}
}

// CreatePost registers a post with zero counters. Existing posts are left alone.
func (s *Store) CreatePost(postID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		s.posts[postID] = &domain.PostCounters{PostID: postID}
	}
}

// SetCounters overwrites stored counters without touching reactions. Used to seed drift.
func (s *Store) SetCounters(c domain.PostCounters) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters := c
	s.posts[c.PostID] = &counters
}

// Atomically runs fn while holding the store lock and rolls back every change fn made
// if it returns an error.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, st domain.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &txView{store: s}
	if err := fn(ctx, domain.Stores{Reactions: tx, Counters: tx}); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) Get(_ context.Context, postID uuid.UUID, userID string) (*domain.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(postID, userID), nil
}

func (s *Store) Upsert(_ context.Context, r domain.Reaction, previous domain.State) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, _, err := s.upsert(r, previous)
	return ok, err
}

func (s *Store) Remove(_ context.Context, postID uuid.UUID, userID string, previous domain.Action) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, _ := s.remove(postID, userID, previous)
	return ok, nil
}

func (s *Store) Read(_ context.Context, postID uuid.UUID) (domain.PostCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(postID)
}

func (s *Store) ApplyDelta(_ context.Context, postID uuid.UUID, delta domain.Delta) (domain.PostCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, _, err := s.applyDelta(postID, delta)
	return c, err
}

// Ping reports whether the store can serve requests. It only fails once ctx is done.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Invalidate is a no-op: reads always hit the map.
func (s *Store) Invalidate(context.Context, uuid.UUID) error {
	return nil
}

// FindDrift orders by the canonical string form, which sorts the same as the
// UUID bytes.
func (s *Store) FindDrift(_ context.Context, after uuid.UUID, limit int) ([]domain.CounterDrift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cursor := after.String()
	ids := make([]uuid.UUID, 0, len(s.posts))
	for id := range s.posts {
		if id.String() > cursor {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var drift []domain.CounterDrift
	for _, id := range ids {
		likes, dislikes := s.count(id)
		stored := *s.posts[id]
		if stored.LikeCount == likes && stored.DislikeCount == dislikes {
			continue
		}
		drift = append(drift, domain.CounterDrift{PostID: id, Stored: stored, ActualLikes: likes, ActualDislikes: dislikes})
		if limit > 0 && len(drift) == limit {
			break
		}
	}
	return drift, nil
}

func (s *Store) Repair(_ context.Context, postID uuid.UUID) (domain.PostCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.posts[postID]
	if !ok {
		return domain.PostCounters{}, domain.ErrPostNotFound
	}
	c.LikeCount, c.DislikeCount = s.count(postID)
	return *c, nil
}

func (s *Store) count(postID uuid.UUID) (likes, dislikes int64) {
	for k, r := range s.reactions {
		if k.PostID != postID {
			continue
		}
		if r.Action == domain.ActionLike {
			likes++
		} else {
			dislikes++
		}
	}
	return likes, dislikes
}

// The helpers below assume s.mu is held.

func (s *Store) get(postID uuid.UUID, userID string) *domain.Reaction {
	r, ok := s.reactions[reactionKey{postID, userID}]
	if !ok {
		return nil
	}
	return &r
}

func (s *Store) upsert(r domain.Reaction, previous domain.State) (bool, func(), error) {
	if _, ok := s.posts[r.PostID]; !ok {
		return false, nil, domain.ErrPostNotFound
	}

	key := reactionKey{r.PostID, r.UserID}
	old, exists := s.reactions[key]

	current := domain.StateNone
	if exists {
		current = domain.StateOf(old.Action)
	}
	if current != previous {
		return false, nil, nil
	}

	r.UpdatedAt = s.clock.Now()
	s.reactions[key] = r

	undo := func() { delete(s.reactions, key) }
	if exists {
		undo = func() { s.reactions[key] = old }
	}
	return true, undo, nil
}

func (s *Store) remove(postID uuid.UUID, userID string, previous domain.Action) (bool, func()) {
	key := reactionKey{postID, userID}
	old, ok := s.reactions[key]
	if !ok || old.Action != previous {
		return false, nil
	}
	delete(s.reactions, key)
	return true, func() { s.reactions[key] = old }
}

func (s *Store) read(postID uuid.UUID) (domain.PostCounters, error) {
	c, ok := s.posts[postID]
	if !ok {
		return domain.PostCounters{}, domain.ErrPostNotFound
	}
	return *c, nil
}

func (s *Store) applyDelta(postID uuid.UUID, delta domain.Delta) (domain.PostCounters, func(), error) {
	c, ok := s.posts[postID]
	if !ok {
		return domain.PostCounters{}, nil, domain.ErrPostNotFound
	}
	before := *c
	c.LikeCount = max(0, c.LikeCount+delta.Likes)
	c.DislikeCount = max(0, c.DislikeCount+delta.Dislikes)
	return *c, func() { *c = before }, nil
}

// txView is the store as seen from inside Atomically. The lock is already held.
type txView struct {
	store *Store
	undo  []func()
}

func (t *txView) Get(_ context.Context, postID uuid.UUID, userID string) (*domain.Reaction, error) {
	return t.store.get(postID, userID), nil
}

func (t *txView) Upsert(_ context.Context, r domain.Reaction, previous domain.State) (bool, error) {
	ok, undo, err := t.store.upsert(r, previous)
	t.record(undo)
	return ok, err
}

func (t *txView) Remove(_ context.Context, postID uuid.UUID, userID string, previous domain.Action) (bool, error) {
	ok, undo := t.store.remove(postID, userID, previous)
	t.record(undo)
	return ok, nil
}

func (t *txView) Read(_ context.Context, postID uuid.UUID) (domain.PostCounters, error) {
	return t.store.read(postID)
}

func (t *txView) ApplyDelta(_ context.Context, postID uuid.UUID, delta domain.Delta) (domain.PostCounters, error) {
	c, undo, err := t.store.applyDelta(postID, delta)
	t.record(undo)
	return c, err
}

func (t *txView) record(undo func()) {
	if undo != nil {
		t.undo = append(t.undo, undo)
	}
}

func (t *txView) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}
