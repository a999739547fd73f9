// Package game implements the round state machine of a multiplayer crash game.
//
// A shared multiplier climbs from 1.00 in fixed steps on a fixed clock until
// it reaches a crash point drawn before the round starts. Players bet while
// the round is running and cash out before the crash to win stake times the
// current multiplier; bets still live at the crash are forfeited.
//
// # Basic Usage
//
// The Service owns all mutable game state and must be driven by Run:
//
//	svc := game.NewService(logger, game.WithSink(hub))
//	go svc.Run(ctx)
//
//	svc.TopUp(ctx, "alice", decimal.NewFromInt(100))
//	svc.PlaceBet(ctx, "alice", decimal.NewFromInt(50))
//	// ... multiplier climbs ...
//	receipt, err := svc.Cashout(ctx, "alice")
//
// # Deterministic Testing
//
// Inject a quartz mock clock and a fixed crash point:
//
//	clock := quartz.NewMock(t)
//	svc := game.NewService(logger,
//	    game.WithClock(clock),
//	    game.WithCrashSource(game.FixedCrash(decimal.RequireFromString("1.75"))),
//	)
//
// # Architecture
//
// The Service delegates to three single-owner components:
//   - Engine: phase, sequence, multiplier and crash target of the current round
//   - BetBook: at most one live bet per player
//   - Ledger: non-negative player balances
//
// None of them lock; the Service loop is the only goroutine that touches them,
// so ticks and player actions never interleave. Events leave the loop through
// an EventSink which must not block.
package game
