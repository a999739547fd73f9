package game

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"

	"github.com/lox/crashgame/internal/randutil"
)

// Config holds game loop timing and the engine curve
type Config struct {
	Engine       EngineConfig
	TickInterval time.Duration // Period of the multiplier clock
	RoundPause   time.Duration // Pause after a crash, and before the first round
	InboxSize    int           // Pending player actions before callers block

	OpeningBalance decimal.Decimal // Granted to each player on first sight
}

// DefaultConfig ticks every 100ms and pauses 3s between rounds.
func DefaultConfig() Config {
	return Config{
		Engine:       DefaultEngineConfig(),
		TickInterval: 100 * time.Millisecond,
		RoundPause:   3 * time.Second,
		InboxSize:    256,
	}
}

// BetReceipt confirms an accepted bet
type BetReceipt struct {
	Player   PlayerID
	Stake    decimal.Decimal
	Sequence uint64
	Balance  decimal.Decimal // Balance after the debit
}

// CashoutReceipt confirms a cashout
type CashoutReceipt struct {
	Player     PlayerID
	Stake      decimal.Decimal
	Multiplier decimal.Decimal // Multiplier at the instant of the cashout
	Payout     decimal.Decimal // Stake times multiplier, exact
	Sequence   uint64
	Balance    decimal.Decimal // Balance after the credit
}

// Service is the game façade. A single loop goroutine (Run) owns the Engine,
// BetBook and Ledger; ticks, the round pause and player actions are processed
// one at a time, so a cashout either completes before a crash clears the bets
// or runs after it and finds nothing to cash out.
type Service struct {
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock
	sink   EventSink
	crash  CrashSource

	engine *Engine
	bets   *BetBook
	ledger *Ledger

	inbox   chan func()
	stopped chan struct{}

	mu       sync.RWMutex // Guards snapshot for readers outside the loop
	snapshot RoundState
}

// Option configures a Service
type Option func(*Service)

// WithConfig replaces the default configuration
func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

// WithClock sets the clock driving ticks and pauses
func WithClock(clock quartz.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithSink sets where events are published
func WithSink(sink EventSink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithCrashSource sets how crash targets are drawn
func WithCrashSource(src CrashSource) Option {
	return func(s *Service) { s.crash = src }
}

// NewService creates a game service. Call Run to start the loop.
func NewService(logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:     DefaultConfig(),
		logger:  logger.WithPrefix("game"),
		clock:   quartz.NewReal(),
		sink:    discardSink{},
		bets:    NewBetBook(),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.crash == nil {
		s.crash = NewUniformCrash(randutil.New(randutil.Seed()))
	}
	s.ledger = NewLedgerWithOpening(s.cfg.OpeningBalance)
	s.engine = NewEngine(s.cfg.Engine, s.crash)
	s.inbox = make(chan func(), s.cfg.InboxSize)
	s.snapshot = s.engine.State()
	return s
}

// Run drives the game until ctx is cancelled. It must be called once.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.stopped)

	ticker := s.clock.NewTicker(s.cfg.TickInterval, "game", "tick")
	defer ticker.Stop()
	pause := s.clock.NewTimer(s.cfg.RoundPause, "game", "pause")
	defer pause.Stop()

	s.logger.Info("Game loop started", "tick", s.cfg.TickInterval, "pause", s.cfg.RoundPause)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Game loop stopping", "sequence", s.engine.State().Sequence)
			return nil

		case <-ticker.C:
			if s.tick() {
				pause.Reset(s.cfg.RoundPause, "game", "pause")
			}

		case <-pause.C:
			s.startRound()

		case fn := <-s.inbox:
			fn()
		}
	}
}

// Snapshot returns the round state as of the last tick or round start.
func (s *Service) Snapshot() RoundState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Balance returns the player's balance.
func (s *Service) Balance(ctx context.Context, player PlayerID) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := s.do(ctx, func() { bal = s.ledger.Balance(player) })
	if err != nil {
		return decimal.Zero, &ActionError{Op: "balance", Player: player, Err: err}
	}
	return bal, nil
}

// TopUp credits amount to the player and returns the new balance.
func (s *Service) TopUp(ctx context.Context, player PlayerID, amount decimal.Decimal) (decimal.Decimal, error) {
	var bal decimal.Decimal
	var opErr error
	err := s.do(ctx, func() { bal, opErr = s.topUp(player, amount) })
	if err == nil {
		err = opErr
	}
	if err != nil {
		return decimal.Zero, &ActionError{Op: "top_up", Player: player, Err: err}
	}
	return bal, nil
}

// PlaceBet debits stake and records a bet on the running round.
func (s *Service) PlaceBet(ctx context.Context, player PlayerID, stake decimal.Decimal) (BetReceipt, error) {
	var receipt BetReceipt
	var opErr error
	err := s.do(ctx, func() { receipt, opErr = s.placeBet(player, stake) })
	if err == nil {
		err = opErr
	}
	if err != nil {
		return BetReceipt{}, &ActionError{Op: "place_bet", Player: player, Err: err}
	}
	return receipt, nil
}

// Cashout settles the player's live bet at the current multiplier.
func (s *Service) Cashout(ctx context.Context, player PlayerID) (CashoutReceipt, error) {
	var receipt CashoutReceipt
	var opErr error
	err := s.do(ctx, func() { receipt, opErr = s.cashout(player) })
	if err == nil {
		err = opErr
	}
	if err != nil {
		return CashoutReceipt{}, &ActionError{Op: "cashout", Player: player, Err: err}
	}
	return receipt, nil
}

// do runs fn on the loop goroutine and waits for it. A request the loop has
// accepted always runs to completion, even if ctx is cancelled meanwhile.
func (s *Service) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	req := func() {
		fn()
		close(done)
	}

	select {
	case s.inbox <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrServiceStopped
	}

	select {
	case <-done:
		return nil
	case <-s.stopped:
		// The loop may have run req just before exiting.
		select {
		case <-done:
			return nil
		default:
			return ErrServiceStopped
		}
	}
}

func (s *Service) startRound() {
	started := s.engine.StartRound(s.clock.Now())
	s.storeSnapshot()
	s.logger.Info("Round started", "sequence", started.Sequence, "crashAt", started.CrashMultiplier)
	s.sink.Publish(started)
}

// tick advances the engine one step and reports whether the round crashed.
func (s *Service) tick() bool {
	events := s.engine.Tick()
	if len(events) == 0 {
		return false
	}
	s.storeSnapshot()

	crashed := false
	for _, ev := range events {
		switch e := ev.(type) {
		case MultiplierUpdated:
			s.logger.Debug("Tick", "sequence", e.Sequence, "multiplier", e.Multiplier)
		case RoundCrashed:
			forfeited := s.bets.ClearAll()
			e.Forfeited = len(forfeited)
			ev = e
			crashed = true
			s.logger.Info("Round crashed",
				"sequence", e.Sequence,
				"crashAt", e.CrashMultiplier,
				"ticks", s.engine.State().Tick,
				"forfeited", e.Forfeited)
		}
		s.sink.Publish(ev)
	}
	return crashed
}

func (s *Service) topUp(player PlayerID, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidAmount(amount); err != nil {
		return decimal.Zero, err
	}
	s.ledger.Credit(player, amount)
	bal := s.ledger.Balance(player)
	s.logger.Debug("Balance topped up", "player", player, "amount", amount, "balance", bal)
	return bal, nil
}

func (s *Service) placeBet(player PlayerID, stake decimal.Decimal) (BetReceipt, error) {
	if err := ValidAmount(stake); err != nil {
		return BetReceipt{}, err
	}

	state := s.engine.State()
	if state.Phase != PhaseRunning {
		s.logger.Debug("Bet rejected", "player", player, "phase", state.Phase)
		return BetReceipt{}, ErrRoundNotOpen
	}
	if _, ok := s.bets.Get(player); ok {
		return BetReceipt{}, ErrDuplicateBet
	}

	if err := s.ledger.Debit(player, stake); err != nil {
		s.logger.Debug("Bet rejected", "player", player, "stake", stake, "error", err)
		return BetReceipt{}, err
	}

	bet := Bet{
		Player:   player,
		Stake:    stake,
		Sequence: state.Sequence,
		PlacedAt: s.clock.Now(),
	}
	if err := s.bets.Place(bet); err != nil {
		s.ledger.Credit(player, stake)
		return BetReceipt{}, err
	}

	s.logger.Debug("Bet placed", "player", player, "stake", stake, "sequence", state.Sequence)
	s.sink.Publish(BetPlaced{Sequence: state.Sequence, Player: player, Stake: stake})

	return BetReceipt{
		Player:   player,
		Stake:    stake,
		Sequence: state.Sequence,
		Balance:  s.ledger.Balance(player),
	}, nil
}

func (s *Service) cashout(player PlayerID) (CashoutReceipt, error) {
	bet, ok := s.bets.Take(player)
	if !ok {
		return CashoutReceipt{}, ErrNoActiveBet
	}

	// Bets are cleared at the crash, so a live bet implies a running round.
	multiplier := s.engine.State().Multiplier
	payout := bet.Stake.Mul(multiplier)
	s.ledger.Credit(player, payout)

	s.logger.Debug("Cashed out", "player", player, "stake", bet.Stake, "multiplier", multiplier, "payout", payout)
	s.sink.Publish(CashedOut{
		Sequence:   bet.Sequence,
		Player:     player,
		Stake:      bet.Stake,
		Multiplier: multiplier,
		Payout:     payout,
	})

	return CashoutReceipt{
		Player:     player,
		Stake:      bet.Stake,
		Multiplier: multiplier,
		Payout:     payout,
		Sequence:   bet.Sequence,
		Balance:    s.ledger.Balance(player),
	}, nil
}

func (s *Service) storeSnapshot() {
	state := s.engine.State()
	s.mu.Lock()
	s.snapshot = state
	s.mu.Unlock()
}
