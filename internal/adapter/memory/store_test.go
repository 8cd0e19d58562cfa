package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/forumpulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, uuid.UUID) {
	t.Helper()
	s := NewStore(clockwork.NewFakeClock())
	postID := uuid.New()
	s.CreatePost(postID)
	return s, postID
}

func TestRead_UnknownPost(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Read(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestPing(t *testing.T) {
	s, _ := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Ping(ctx), context.Canceled)
}

func TestGet_AbsentIsNotAnError(t *testing.T) {
	s, postID := newTestStore(t)

	r, err := s.Get(context.Background(), postID, "alice")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestUpsert_ConditionalOnPreviousState(t *testing.T) {
	s, postID := newTestStore(t)
	ctx := context.Background()
	like := domain.Reaction{PostID: postID, UserID: "alice", Action: domain.ActionLike}

	ok, err := s.Upsert(ctx, like, domain.StateNone)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second writer that also read "none" loses.
	ok, err = s.Upsert(ctx, like, domain.StateNone)
	require.NoError(t, err)
	assert.False(t, ok)

	dislike := domain.Reaction{PostID: postID, UserID: "alice", Action: domain.ActionDislike}
	ok, err = s.Upsert(ctx, dislike, domain.StateLiked)
	require.NoError(t, err)
	assert.True(t, ok)

	r, err := s.Get(ctx, postID, "alice")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, domain.ActionDislike, r.Action)
}

func TestUpsert_UnknownPost(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Upsert(context.Background(), domain.Reaction{PostID: uuid.New(), UserID: "alice", Action: domain.ActionLike}, domain.StateNone)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestRemove_IdempotentAndConditional(t *testing.T) {
	s, postID := newTestStore(t)
	ctx := context.Background()

	removed, err := s.Remove(ctx, postID, "alice", domain.ActionLike)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.Upsert(ctx, domain.Reaction{PostID: postID, UserID: "alice", Action: domain.ActionLike}, domain.StateNone)
	require.NoError(t, err)

	removed, err = s.Remove(ctx, postID, "alice", domain.ActionDislike)
	require.NoError(t, err)
	assert.False(t, removed, "must not delete a row whose action changed")

	removed, err = s.Remove(ctx, postID, "alice", domain.ActionLike)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestApplyDelta_ClampsAtZero(t *testing.T) {
	s, postID := newTestStore(t)
	ctx := context.Background()

	c, err := s.ApplyDelta(ctx, postID, domain.Delta{Likes: 1, Dislikes: -1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.LikeCount)
	assert.Equal(t, int64(0), c.DislikeCount)

	c, err = s.ApplyDelta(ctx, postID, domain.Delta{Likes: -5})
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.LikeCount)
}

func TestAtomically_RollsBackOnError(t *testing.T) {
	s, postID := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Atomically(ctx, func(ctx context.Context, st domain.Stores) error {
		ok, err := st.Reactions.Upsert(ctx, domain.Reaction{PostID: postID, UserID: "alice", Action: domain.ActionLike}, domain.StateNone)
		require.NoError(t, err)
		require.True(t, ok)
		_, err = st.Counters.ApplyDelta(ctx, postID, domain.Delta{Likes: 1})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	r, err := s.Get(ctx, postID, "alice")
	require.NoError(t, err)
	assert.Nil(t, r)

	c, err := s.Read(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.LikeCount)
}

func TestAtomically_RollbackRestoresOverwrittenRow(t *testing.T) {
	s, postID := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, domain.Reaction{PostID: postID, UserID: "alice", Action: domain.ActionLike}, domain.StateNone)
	require.NoError(t, err)

	_ = s.Atomically(ctx, func(ctx context.Context, st domain.Stores) error {
		_, _ = st.Reactions.Remove(ctx, postID, "alice", domain.ActionLike)
		return errors.New("abort")
	})

	r, err := s.Get(ctx, postID, "alice")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, domain.ActionLike, r.Action)
}

func TestAtomically_CancelledContext(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Atomically(ctx, func(context.Context, domain.Stores) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestFindDriftAndRepair(t *testing.T) {
	s, postID := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, domain.Reaction{PostID: postID, UserID: "alice", Action: domain.ActionLike}, domain.StateNone)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, domain.Reaction{PostID: postID, UserID: "bob", Action: domain.ActionDislike}, domain.StateNone)
	require.NoError(t, err)
	s.SetCounters(domain.PostCounters{PostID: postID, LikeCount: 7, DislikeCount: 0})

	drift, err := s.FindDrift(ctx, uuid.Nil, 10)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, postID, drift[0].PostID)
	assert.Equal(t, int64(7), drift[0].Stored.LikeCount)
	assert.Equal(t, int64(1), drift[0].ActualLikes)
	assert.Equal(t, int64(1), drift[0].ActualDislikes)

	repaired, err := s.Repair(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), repaired.LikeCount)
	assert.Equal(t, int64(1), repaired.DislikeCount)

	drift, err = s.FindDrift(ctx, uuid.Nil, 10)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestFindDrift_PagesByPostID(t *testing.T) {
	s := NewStore(clockwork.NewFakeClock())
	ctx := context.Background()

	ids := []uuid.UUID{
		uuid.MustParse("00000000-0000-0000-0000-000000000003"),
		uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		uuid.MustParse("00000000-0000-0000-0000-00000000000a"),
	}
	for _, id := range ids {
		s.CreatePost(id)
		s.SetCounters(domain.PostCounters{PostID: id, LikeCount: 2})
	}

	first, err := s.FindDrift(ctx, uuid.Nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, ids[1], first[0].PostID)
	assert.Equal(t, ids[0], first[1].PostID)

	rest, err := s.FindDrift(ctx, first[1].PostID, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[2], rest[0].PostID)

	all, err := s.FindDrift(ctx, uuid.Nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "limit 0 means no limit")
}

func TestRepair_UnknownPost(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Repair(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}
