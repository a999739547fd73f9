package game

import (
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
)

// Phase is the lifecycle stage of the current round
type Phase string

const (
	PhaseIdle    Phase = "idle"    // Before the first round
	PhaseRunning Phase = "running" // Multiplier climbing, bets and cashouts accepted
	PhaseCrashed Phase = "crashed" // Round over, waiting for the next one
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// RoundState is a read-only snapshot of the current round
type RoundState struct {
	Phase      Phase           `json:"phase"`
	Sequence   uint64          `json:"sequence"`
	Tick       int64           `json:"tick"`
	Multiplier decimal.Decimal `json:"multiplier"`
	StartedAt  time.Time       `json:"started_at"`
}

// EngineConfig holds the multiplier curve and crash distribution
type EngineConfig struct {
	Start    decimal.Decimal // Multiplier at round start
	Step     decimal.Decimal // Increment per tick
	MinCrash decimal.Decimal // Lower bound of the crash distribution
	MaxCrash decimal.Decimal // Upper bound of the crash distribution
}

// DefaultEngineConfig climbs from 1.00 by 0.01 and crashes uniformly in [1.5, 3.0).
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Start:    decimal.NewFromInt(1),
		Step:     decimal.New(1, -2),
		MinCrash: decimal.RequireFromString("1.5"),
		MaxCrash: decimal.NewFromInt(3),
	}
}

// CrashSource draws the crash target for a new round
type CrashSource interface {
	Draw(min, max decimal.Decimal) decimal.Decimal
}

// CrashFunc adapts a function to CrashSource
type CrashFunc func(min, max decimal.Decimal) decimal.Decimal

// Draw calls f(min, max)
func (f CrashFunc) Draw(min, max decimal.Decimal) decimal.Decimal {
	return f(min, max)
}

// FixedCrash returns a source that crashes every round at the given points in
// turn, repeating the last one.
func FixedCrash(points ...decimal.Decimal) CrashSource {
	i := 0
	return CrashFunc(func(_, _ decimal.Decimal) decimal.Decimal {
		p := points[i]
		if i < len(points)-1 {
			i++
		}
		return p
	})
}

// UniformCrash draws crash targets from a continuous uniform distribution.
type UniformCrash struct {
	rng *rand.Rand
}

// NewUniformCrash creates a uniform source backed by rng
func NewUniformCrash(rng *rand.Rand) *UniformCrash {
	return &UniformCrash{rng: rng}
}

// Draw returns a value in [min, max) at full precision
func (u *UniformCrash) Draw(min, max decimal.Decimal) decimal.Decimal {
	f := decimal.NewFromFloat(u.rng.Float64())
	return min.Add(max.Sub(min).Mul(f))
}

// Engine is the round state machine. The multiplier is derived from the
// integer tick count (start + ticks*step), so no rounding error accumulates
// and the crash target is compared exactly.
//
// Engine is not safe for concurrent use; the Service loop owns it.
type Engine struct {
	cfg   EngineConfig
	crash CrashSource

	phase      Phase
	sequence   uint64
	ticks      int64
	multiplier decimal.Decimal
	crashAt    decimal.Decimal
	startedAt  time.Time
}

// NewEngine creates an engine in the idle phase
func NewEngine(cfg EngineConfig, crash CrashSource) *Engine {
	return &Engine{
		cfg:        cfg,
		crash:      crash,
		phase:      PhaseIdle,
		multiplier: cfg.Start,
	}
}

// StartRound opens the next round: draws the crash target, resets the
// multiplier and bumps the sequence.
func (e *Engine) StartRound(now time.Time) RoundStarted {
	e.sequence++
	e.ticks = 0
	e.multiplier = e.cfg.Start
	e.crashAt = e.crash.Draw(e.cfg.MinCrash, e.cfg.MaxCrash)
	e.phase = PhaseRunning
	e.startedAt = now

	return RoundStarted{
		Sequence:        e.sequence,
		CrashMultiplier: e.crashAt.Round(2),
		StartedAt:       now,
	}
}

// Tick advances a running round by one step. It returns the update for the
// step and, when the new multiplier reaches the crash target, the crash event
// after it. Outside the running phase it returns nil.
func (e *Engine) Tick() []Event {
	if e.phase != PhaseRunning {
		return nil
	}

	e.ticks++
	e.multiplier = e.cfg.Start.Add(e.cfg.Step.Mul(decimal.NewFromInt(e.ticks)))

	events := []Event{MultiplierUpdated{
		Sequence:   e.sequence,
		Tick:       e.ticks,
		Multiplier: e.multiplier,
	}}

	if e.multiplier.GreaterThanOrEqual(e.crashAt) {
		e.phase = PhaseCrashed
		events = append(events, RoundCrashed{
			Sequence:        e.sequence,
			CrashMultiplier: e.crashAt.Round(2),
			Multiplier:      e.multiplier,
		})
	}

	return events
}

// State returns a snapshot of the current round
func (e *Engine) State() RoundState {
	return RoundState{
		Phase:      e.phase,
		Sequence:   e.sequence,
		Tick:       e.ticks,
		Multiplier: e.multiplier,
		StartedAt:  e.startedAt,
	}
}

// CrashMultiplier returns the full-precision crash target of the current round
func (e *Engine) CrashMultiplier() decimal.Decimal {
	return e.crashAt
}
