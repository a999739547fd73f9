// Package protocol defines the JSON messages exchanged between the crash
// server, its HTTP action clients and WebSocket spectators.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/lox/crashgame/internal/game"
)

// ErrUnknownEvent is returned by FromEvent for event types with no wire form
var ErrUnknownEvent = errors.New("unknown event type")

// Message is the WebSocket envelope
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps data in an envelope stamped with now
func NewMessage(messageType MessageType, data any, now time.Time) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: now,
	}, nil
}

// Decode unmarshals the message payload into v
func (m *Message) Decode(v any) error {
	return json.Unmarshal(m.Data, v)
}

// FromEvent converts a game event into its wire message. Amounts are rounded
// to two decimals for display.
func FromEvent(ev game.Event, now time.Time) (*Message, error) {
	switch e := ev.(type) {
	case game.RoundStarted:
		return NewMessage(TypeStart, Start{
			Sequence:        e.Sequence,
			CrashMultiplier: e.CrashMultiplier,
		}, now)
	case game.MultiplierUpdated:
		return NewMessage(TypeUpdate, Update{
			Sequence:   e.Sequence,
			Multiplier: e.Multiplier,
		}, now)
	case game.RoundCrashed:
		return NewMessage(TypeCrash, Crash{
			Sequence:        e.Sequence,
			CrashMultiplier: e.CrashMultiplier,
			Multiplier:      e.Multiplier,
			Forfeited:       e.Forfeited,
		}, now)
	case game.BetPlaced:
		return NewMessage(TypeBet, Bet{
			Sequence: e.Sequence,
			Player:   string(e.Player),
			Stake:    e.Stake.Round(2),
		}, now)
	case game.CashedOut:
		return NewMessage(TypeCashout, Cashout{
			Sequence:   e.Sequence,
			Player:     string(e.Player),
			Stake:      e.Stake.Round(2),
			Multiplier: e.Multiplier,
			Payout:     e.Payout.Round(2),
		}, now)
	default:
		return nil, ErrUnknownEvent
	}
}

// StateFrom converts a round snapshot into a state payload
func StateFrom(state game.RoundState) State {
	return State{
		Phase:      state.Phase.String(),
		Sequence:   state.Sequence,
		Tick:       state.Tick,
		Multiplier: state.Multiplier,
	}
}

// UserID is a player identifier that decodes from either a JSON string or a
// JSON integer, so clients sending numeric user ids keep working.
type UserID string

// UnmarshalJSON implements json.Unmarshaler
func (u *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*u = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return errors.New("user_id must be a string or an integer")
	}
	*u = UserID(n.String())
	return nil
}

// Player returns the id as a game player
func (u UserID) Player() game.PlayerID {
	return game.PlayerID(u)
}
