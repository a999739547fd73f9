package game

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType represents a game event type with type safety
type EventType string

// EventType constants for round and player events
const (
	EventTypeStart   EventType = "start"
	EventTypeUpdate  EventType = "update"
	EventTypeCrash   EventType = "crash"
	EventTypeBet     EventType = "bet"
	EventTypeCashout EventType = "cashout"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is anything the game loop publishes to spectators. Within one round,
// start precedes every update, and exactly one crash follows the last update.
type Event interface {
	EventType() EventType
	RoundSequence() uint64
}

// EventSink receives events from the game loop. Publish must not block.
type EventSink interface {
	Publish(Event)
}

// RoundStarted is published when a new round opens
type RoundStarted struct {
	Sequence        uint64
	CrashMultiplier decimal.Decimal // Rounded to two decimals for display
	StartedAt       time.Time
}

func (e RoundStarted) EventType() EventType  { return EventTypeStart }
func (e RoundStarted) RoundSequence() uint64 { return e.Sequence }

// MultiplierUpdated is published on every tick of a running round
type MultiplierUpdated struct {
	Sequence   uint64
	Tick       int64
	Multiplier decimal.Decimal
}

func (e MultiplierUpdated) EventType() EventType  { return EventTypeUpdate }
func (e MultiplierUpdated) RoundSequence() uint64 { return e.Sequence }

// RoundCrashed is published once per round, right after the update that
// reached the crash target
type RoundCrashed struct {
	Sequence        uint64
	CrashMultiplier decimal.Decimal // Rounded to two decimals for display
	Multiplier      decimal.Decimal // Multiplier at the crashing tick
	Forfeited       int             // Bets dropped by the crash
}

func (e RoundCrashed) EventType() EventType  { return EventTypeCrash }
func (e RoundCrashed) RoundSequence() uint64 { return e.Sequence }

// BetPlaced is published after a bet is accepted
type BetPlaced struct {
	Sequence uint64
	Player   PlayerID
	Stake    decimal.Decimal
}

func (e BetPlaced) EventType() EventType  { return EventTypeBet }
func (e BetPlaced) RoundSequence() uint64 { return e.Sequence }

// CashedOut is published after a successful cashout
type CashedOut struct {
	Sequence   uint64
	Player     PlayerID
	Stake      decimal.Decimal
	Multiplier decimal.Decimal
	Payout     decimal.Decimal
}

func (e CashedOut) EventType() EventType  { return EventTypeCashout }
func (e CashedOut) RoundSequence() uint64 { return e.Sequence }

type discardSink struct{}

func (discardSink) Publish(Event) {}

type multiSink []EventSink

func (m multiSink) Publish(ev Event) {
	for _, sink := range m {
		sink.Publish(ev)
	}
}

// Sinks publishes every event to each sink in order.
func Sinks(sinks ...EventSink) EventSink {
	return multiSink(sinks)
}
