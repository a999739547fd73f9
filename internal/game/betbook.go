package game

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Bet is a live stake on one round. The stake has already been debited.
type Bet struct {
	Player   PlayerID
	Stake    decimal.Decimal
	Sequence uint64 // Round the bet belongs to
	PlacedAt time.Time
}

// BetBook holds at most one live bet per player.
//
// BetBook is not safe for concurrent use; the Service loop owns it.
type BetBook struct {
	bets map[PlayerID]Bet
}

// NewBetBook creates an empty bet book.
func NewBetBook() *BetBook {
	return &BetBook{
		bets: make(map[PlayerID]Bet),
	}
}

// Place records bet. It fails with ErrDuplicateBet if the player already
// holds a bet for the same or a later round. A leftover bet from an earlier
// round is replaced.
func (b *BetBook) Place(bet Bet) error {
	if existing, ok := b.bets[bet.Player]; ok && existing.Sequence >= bet.Sequence {
		return ErrDuplicateBet
	}
	b.bets[bet.Player] = bet
	return nil
}

// Get returns the player's live bet without removing it.
func (b *BetBook) Get(player PlayerID) (Bet, bool) {
	bet, ok := b.bets[player]
	return bet, ok
}

// Take removes and returns the player's live bet.
func (b *BetBook) Take(player PlayerID) (Bet, bool) {
	bet, ok := b.bets[player]
	if ok {
		delete(b.bets, player)
	}
	return bet, ok
}

// Len returns the number of live bets.
func (b *BetBook) Len() int {
	return len(b.bets)
}

// ClearAll drops every live bet and returns the forfeited bets ordered by
// player.
func (b *BetBook) ClearAll() []Bet {
	forfeited := make([]Bet, 0, len(b.bets))
	for _, bet := range b.bets {
		forfeited = append(forfeited, bet)
	}
	sort.Slice(forfeited, func(i, j int) bool { return forfeited[i].Player < forfeited[j].Player })
	clear(b.bets)
	return forfeited
}
