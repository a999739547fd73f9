package game

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Bounds on stakes and top-ups. Decimal arithmetic rescales to the finer
// operand, so an unbounded exponent would make every later balance update
// on the game loop arbitrarily slow.
const (
	MaxAmountScale  = 8  // Decimal places
	MaxAmountDigits = 15 // Digits before the decimal point
)

// ValidAmount reports whether amount is a positive stake or top-up within
// MaxAmountScale and MaxAmountDigits. It inspects only the coefficient and
// exponent, never rescaling.
func ValidAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	exp := int64(amount.Exponent())
	if exp < -MaxAmountScale {
		return ErrInvalidAmount
	}
	if int64(amount.NumDigits())+exp > MaxAmountDigits {
		return ErrInvalidAmount
	}
	return nil
}

// PlayerID identifies a player. Identity and authentication live outside the
// game; any non-empty string is accepted.
type PlayerID string

// Ledger owns player balances. A balance never goes negative: a debit that
// would overdraw is rejected, never clamped.
//
// Ledger is not safe for concurrent use; the Service loop owns it.
type Ledger struct {
	balances map[PlayerID]decimal.Decimal
	opening  decimal.Decimal
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return NewLedgerWithOpening(decimal.Zero)
}

// NewLedgerWithOpening creates a ledger that grants every new player the
// given opening balance.
func NewLedgerWithOpening(opening decimal.Decimal) *Ledger {
	return &Ledger{
		balances: make(map[PlayerID]decimal.Decimal),
		opening:  opening,
	}
}

// Balance returns the player's balance, creating the opening balance for
// players seen for the first time.
func (l *Ledger) Balance(player PlayerID) decimal.Decimal {
	bal, ok := l.balances[player]
	if !ok {
		bal = l.opening
		l.balances[player] = bal
	}
	return bal
}

// Debit removes amount from the player's balance, or fails with
// ErrInsufficientFunds leaving the balance untouched.
func (l *Ledger) Debit(player PlayerID, amount decimal.Decimal) error {
	bal := l.Balance(player)
	if bal.LessThan(amount) {
		return ErrInsufficientFunds
	}
	l.balances[player] = bal.Sub(amount)
	return nil
}

// Credit adds amount to the player's balance. Panics on a negative amount;
// callers validate amounts before they reach the ledger.
func (l *Ledger) Credit(player PlayerID, amount decimal.Decimal) {
	if amount.IsNegative() {
		panic(fmt.Sprintf("LEDGER_NEGATIVE_CREDIT: %s amount %s", player, amount))
	}
	l.balances[player] = l.Balance(player).Add(amount)
}

// Total returns the sum of all balances.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, bal := range l.balances {
		total = total.Add(bal)
	}
	return total
}

// Players returns every known player in sorted order.
func (l *Ledger) Players() []PlayerID {
	players := make([]PlayerID, 0, len(l.balances))
	for p := range l.balances {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i] < players[j] })
	return players
}
