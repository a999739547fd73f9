package game

import (
	"errors"
)

var (
	// ErrRoundNotOpen is returned when a bet arrives outside the running phase.
	ErrRoundNotOpen = errors.New("round not open")

	// ErrInsufficientFunds is returned when a debit exceeds the player's balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNoActiveBet is returned when a player cashes out without a live bet.
	ErrNoActiveBet = errors.New("no active bet")

	// ErrDuplicateBet is returned when a player already holds a bet for the round.
	ErrDuplicateBet = errors.New("duplicate bet")

	// ErrInvalidAmount is returned for zero, negative or out-of-range stakes
	// and top-ups.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrServiceStopped is returned once the game loop has exited.
	ErrServiceStopped = errors.New("game service stopped")
)

// ActionError records which player action failed and why.
type ActionError struct {
	Op     string   // Action that failed (e.g. "place_bet", "cashout")
	Player PlayerID // Player that issued the action
	Err    error    // One of the sentinel errors above, or a context error
}

func (e *ActionError) Error() string {
	return e.Op + " [" + string(e.Player) + "]: " + e.Err.Error()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

var codes = []struct {
	code string
	err  error
}{
	{"round_not_open", ErrRoundNotOpen},
	{"insufficient_funds", ErrInsufficientFunds},
	{"no_active_bet", ErrNoActiveBet},
	{"duplicate_bet", ErrDuplicateBet},
	{"invalid_amount", ErrInvalidAmount},
	{"service_stopped", ErrServiceStopped},
}

// Code returns the stable wire code for err, or "internal_error" when err is
// not one of the game's sentinel errors.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_error"
}

// FromCode is the inverse of Code. Unknown codes yield nil.
func FromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
