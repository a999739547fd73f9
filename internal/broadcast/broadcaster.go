// Package broadcast fans game events out to spectator subscriptions.
//
// The game loop hands events to Publish, which only waits briefly and only
// for start and crash events. A dedicated
// goroutine (Run) copies each event into every subscription's buffered
// channel without waiting; a subscription that keeps falling behind is
// evicted, so one stalled spectator cannot delay the round clock or other
// spectators.
package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lox/crashgame/internal/game"
)

// Options controls buffering and eviction
type Options struct {
	Inbox     int // Events queued between the game loop and the fan-out goroutine
	Buffer    int // Events buffered per subscription
	MaxMisses int // Consecutive full-buffer misses before a subscription is evicted

	// PhaseWait bounds how long Publish waits for inbox space for a start or
	// crash event before evicting every subscription
	PhaseWait time.Duration
}

// DefaultOptions returns options suited to a 10 Hz tick rate
func DefaultOptions() Options {
	return Options{
		Inbox:     1024,
		Buffer:    64,
		MaxMisses: 3,
		PhaseWait: 20 * time.Millisecond,
	}
}

// Stats counts fan-out outcomes since the broadcaster was created
type Stats struct {
	Subscribers int
	Delivered   uint64 // Events handed to a subscription
	Missed      uint64 // Events skipped because a subscription buffer was full
	Evicted     uint64 // Subscriptions removed for falling behind
	Dropped     uint64 // Events rejected by Publish because the inbox was full
}

// Broadcaster is a registry of subscriptions plus the goroutine that feeds them.
type Broadcaster struct {
	logger *log.Logger
	opts   Options
	inbox  chan game.Event

	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription

	delivered atomic.Uint64
	missed    atomic.Uint64
	evicted   atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a broadcaster. Call Run to start delivering events.
func New(logger *log.Logger, opts Options) *Broadcaster {
	def := DefaultOptions()
	if opts.Inbox <= 0 {
		opts.Inbox = def.Inbox
	}
	if opts.Buffer <= 0 {
		opts.Buffer = def.Buffer
	}
	if opts.MaxMisses <= 0 {
		opts.MaxMisses = def.MaxMisses
	}
	if opts.PhaseWait <= 0 {
		opts.PhaseWait = def.PhaseWait
	}

	return &Broadcaster{
		logger: logger.WithPrefix("broadcast"),
		opts:   opts,
		inbox:  make(chan game.Event, opts.Inbox),
		subs:   make(map[uuid.UUID]*Subscription),
	}
}

// Publish queues ev for delivery. It implements game.EventSink. When the
// inbox is full an update, bet or cashout is dropped and counted at once. A
// start or crash waits up to PhaseWait for space; if none frees up, every
// subscription is evicted rather than left with a round that never opens
// or never ends. Evicted spectators reconnect to a fresh state.
func (b *Broadcaster) Publish(ev game.Event) {
	select {
	case b.inbox <- ev:
		return
	default:
	}

	if !isPhaseEvent(ev) {
		b.dropped.Add(1)
		b.logger.Warn("Broadcast inbox full, dropping event", "type", ev.EventType(), "sequence", ev.RoundSequence())
		return
	}

	timer := time.NewTimer(b.opts.PhaseWait)
	defer timer.Stop()
	select {
	case b.inbox <- ev:
		return
	case <-timer.C:
	}

	b.dropped.Add(1)
	subs := b.detachAll()
	b.evicted.Add(uint64(len(subs)))
	for _, sub := range subs {
		sub.close()
	}
	b.logger.Error("Broadcast inbox full, evicting all subscribers",
		"type", ev.EventType(), "sequence", ev.RoundSequence(), "evicted", len(subs))
}

func isPhaseEvent(ev game.Event) bool {
	switch ev.EventType() {
	case game.EventTypeStart, game.EventTypeCrash:
		return true
	default:
		return false
	}
}

// Run delivers queued events until ctx is cancelled, then closes every
// subscription.
func (b *Broadcaster) Run(ctx context.Context) error {
	defer b.closeAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-b.inbox:
			b.fanOut(ev)
		}
	}
}

// Subscribe registers a new subscription for player.
func (b *Broadcaster) Subscribe(player game.PlayerID) *Subscription {
	sub := &Subscription{
		id:     uuid.New(),
		player: player,
		events: make(chan game.Event, b.opts.Buffer),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	total := len(b.subs)
	b.mu.Unlock()

	b.logger.Debug("Subscribed", "player", player, "id", sub.id, "total", total)
	return sub
}

// Unsubscribe removes sub and closes its Done channel. Safe to call more
// than once.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	_, ok := b.subs[sub.id]
	delete(b.subs, sub.id)
	total := len(b.subs)
	b.mu.Unlock()

	sub.close()
	if ok {
		b.logger.Debug("Unsubscribed", "player", sub.player, "id", sub.id, "total", total)
	}
}

// Count returns the number of live subscriptions
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Stats returns a snapshot of the fan-out counters
func (b *Broadcaster) Stats() Stats {
	return Stats{
		Subscribers: b.Count(),
		Delivered:   b.delivered.Load(),
		Missed:      b.missed.Load(),
		Evicted:     b.evicted.Load(),
		Dropped:     b.dropped.Load(),
	}
}

func (b *Broadcaster) fanOut(ev game.Event) {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.events <- ev:
			sub.misses = 0
			b.delivered.Add(1)
			continue
		default:
		}

		b.missed.Add(1)
		sub.misses++
		if sub.misses >= b.opts.MaxMisses {
			b.evicted.Add(1)
			b.logger.Warn("Subscriber falling behind, evicting", "player", sub.player, "id", sub.id, "misses", sub.misses)
			b.Unsubscribe(sub)
		}
	}
}

func (b *Broadcaster) closeAll() {
	for _, sub := range b.detachAll() {
		sub.close()
	}
}

// detachAll empties the registry and returns what it held
func (b *Broadcaster) detachAll() map[uuid.UUID]*Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs
	b.subs = make(map[uuid.UUID]*Subscription)
	return subs
}

// Subscription is one spectator's feed. Events is never closed; readers
// select on Done to learn the subscription has ended.
type Subscription struct {
	id        uuid.UUID
	player    game.PlayerID
	events    chan game.Event
	done      chan struct{}
	closeOnce sync.Once
	misses    int // Only touched by the fan-out goroutine
}

// ID returns the subscription handle
func (s *Subscription) ID() uuid.UUID { return s.id }

// Player returns the player the subscription belongs to
func (s *Subscription) Player() game.PlayerID { return s.player }

// Events returns the event feed
func (s *Subscription) Events() <-chan game.Event { return s.events }

// Done is closed when the subscription is removed or evicted
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.done) })
}
