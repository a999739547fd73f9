package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetBookPlaceAndTake(t *testing.T) {
	b := NewBetBook()
	require.NoError(t, b.Place(Bet{Player: "alice", Stake: d("50"), Sequence: 1}))
	assert.Equal(t, 1, b.Len())

	bet, ok := b.Take("alice")
	require.True(t, ok)
	assert.True(t, bet.Stake.Equal(d("50")))
	assert.Equal(t, uint64(1), bet.Sequence)

	_, ok = b.Take("alice")
	assert.False(t, ok, "a bet can only be taken once")
	assert.Equal(t, 0, b.Len())
}

func TestBetBookRejectsDuplicate(t *testing.T) {
	b := NewBetBook()
	require.NoError(t, b.Place(Bet{Player: "alice", Stake: d("10"), Sequence: 2}))

	assert.ErrorIs(t, b.Place(Bet{Player: "alice", Stake: d("20"), Sequence: 2}), ErrDuplicateBet)
	assert.ErrorIs(t, b.Place(Bet{Player: "alice", Stake: d("20"), Sequence: 1}), ErrDuplicateBet)

	bet, _ := b.Get("alice")
	assert.True(t, bet.Stake.Equal(d("10")), "rejected bet must not overwrite the live one")
}

func TestBetBookReplacesStaleBet(t *testing.T) {
	b := NewBetBook()
	require.NoError(t, b.Place(Bet{Player: "alice", Stake: d("10"), Sequence: 1}))
	require.NoError(t, b.Place(Bet{Player: "alice", Stake: d("20"), Sequence: 2}))

	bet, ok := b.Get("alice")
	require.True(t, ok)
	assert.Equal(t, uint64(2), bet.Sequence)
	assert.Equal(t, 1, b.Len())
}

func TestBetBookClearAll(t *testing.T) {
	b := NewBetBook()
	require.NoError(t, b.Place(Bet{Player: "carol", Stake: d("1"), Sequence: 1}))
	require.NoError(t, b.Place(Bet{Player: "alice", Stake: d("2"), Sequence: 1}))
	require.NoError(t, b.Place(Bet{Player: "bob", Stake: d("3"), Sequence: 1}))

	forfeited := b.ClearAll()
	require.Len(t, forfeited, 3)
	assert.Equal(t, PlayerID("alice"), forfeited[0].Player)
	assert.Equal(t, PlayerID("bob"), forfeited[1].Player)
	assert.Equal(t, PlayerID("carol"), forfeited[2].Player)
	assert.Equal(t, 0, b.Len())

	assert.Empty(t, b.ClearAll())
}
