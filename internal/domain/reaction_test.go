package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	a, err := ParseAction("like")
	require.NoError(t, err)
	assert.Equal(t, ActionLike, a)

	a, err = ParseAction("dislike")
	require.NoError(t, err)
	assert.Equal(t, ActionDislike, a)

	for _, bad := range []string{"", "LIKE", "love", " like"} {
		_, err := ParseAction(bad)
		assert.ErrorIs(t, err, ErrInvalidAction, bad)
	}
}

func TestStateRoundTrip(t *testing.T) {
	assert.Equal(t, StateLiked, StateOf(ActionLike))
	assert.Equal(t, StateDisliked, StateOf(ActionDislike))

	a, ok := StateLiked.Action()
	assert.True(t, ok)
	assert.Equal(t, ActionLike, a)

	_, ok = StateNone.Action()
	assert.False(t, ok)

	assert.Equal(t, "none", StateNone.String())
	assert.Equal(t, "like", StateLiked.String())
	assert.Equal(t, "dislike", StateDisliked.String())
}

func TestActionOpposite(t *testing.T) {
	assert.Equal(t, ActionDislike, ActionLike.Opposite())
	assert.Equal(t, ActionLike, ActionDislike.Opposite())
}
