package protocol

import (
	"github.com/shopspring/decimal"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Server -> Client
	TypeState   MessageType = "state"
	TypeStart   MessageType = "start"
	TypeUpdate  MessageType = "update"
	TypeCrash   MessageType = "crash"
	TypeBet     MessageType = "bet"
	TypeCashout MessageType = "cashout"
	TypeError   MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Spectator payloads (WebSocket, server -> client)

// State is sent once when a spectator connects
type State struct {
	Phase      string          `json:"phase"`
	Sequence   uint64          `json:"sequence"`
	Tick       int64           `json:"tick"` // Updates at or below this tick are older than the state
	Multiplier decimal.Decimal `json:"multiplier"`
}

// Start is sent when a round opens
type Start struct {
	Sequence        uint64          `json:"sequence"`
	CrashMultiplier decimal.Decimal `json:"crash_multiplier"`
}

// Update is sent on every tick
type Update struct {
	Sequence   uint64          `json:"sequence"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// Crash is sent once per round
type Crash struct {
	Sequence        uint64          `json:"sequence"`
	CrashMultiplier decimal.Decimal `json:"crash_multiplier"`
	Multiplier      decimal.Decimal `json:"multiplier"`
	Forfeited       int             `json:"forfeited"`
}

// Bet announces an accepted bet
type Bet struct {
	Sequence uint64          `json:"sequence"`
	Player   string          `json:"player"`
	Stake    decimal.Decimal `json:"stake"`
}

// Cashout announces a cashout
type Cashout struct {
	Sequence   uint64          `json:"sequence"`
	Player     string          `json:"player"`
	Stake      decimal.Decimal `json:"stake"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
}

// Error carries a stable code and a human readable message
type Error struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

// Action payloads (HTTP)

// TopUpRequest credits a player's balance
type TopUpRequest struct {
	UserID UserID          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// BetRequest places a bet on the running round
type BetRequest struct {
	UserID UserID          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// CashoutRequest cashes out the player's live bet
type CashoutRequest struct {
	UserID UserID `json:"user_id"`
}

// BalanceResponse reports a balance rounded to two decimals
type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// TopUpResponse confirms a top-up
type TopUpResponse struct {
	Message string          `json:"message"`
	Balance decimal.Decimal `json:"balance"`
}

// BetResponse confirms a bet
type BetResponse struct {
	Message  string          `json:"message"`
	Sequence uint64          `json:"sequence"`
	Stake    decimal.Decimal `json:"stake"`
	Balance  decimal.Decimal `json:"balance"`
}

// CashoutResponse confirms a cashout
type CashoutResponse struct {
	Message    string          `json:"message"`
	Sequence   uint64          `json:"sequence"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
	Balance    decimal.Decimal `json:"balance"`
}
