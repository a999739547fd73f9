package broadcast

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/crashgame/internal/game"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func update(seq uint64, tick int64) game.Event {
	return game.MultiplierUpdated{
		Sequence:   seq,
		Tick:       tick,
		Multiplier: decimal.NewFromInt(1).Add(decimal.New(tick, -2)),
	}
}

func startBroadcaster(t *testing.T, opts Options) (*Broadcaster, context.CancelFunc) {
	t.Helper()
	b := New(testLogger(), opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = b.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return b, cancel
}

func receive(t *testing.T, sub *Subscription) game.Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBroadcasterDeliversInOrder(t *testing.T) {
	t.Parallel()
	b, _ := startBroadcaster(t, DefaultOptions())
	alice := b.Subscribe("alice")
	bob := b.Subscribe("bob")
	assert.Equal(t, 2, b.Count())

	for i := int64(1); i <= 10; i++ {
		b.Publish(update(1, i))
	}

	for _, sub := range []*Subscription{alice, bob} {
		for i := int64(1); i <= 10; i++ {
			ev := receive(t, sub)
			assert.Equal(t, i, ev.(game.MultiplierUpdated).Tick)
		}
	}

	require.Eventually(t, func() bool { return b.Stats().Delivered == 20 }, time.Second, 5*time.Millisecond)
}

func TestBroadcasterUnsubscribe(t *testing.T) {
	t.Parallel()
	b, _ := startBroadcaster(t, DefaultOptions())
	sub := b.Subscribe("alice")
	other := b.Subscribe("bob")

	b.Unsubscribe(sub)
	b.Unsubscribe(sub) // idempotent
	assert.Equal(t, 1, b.Count())

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done must be closed after Unsubscribe")
	}

	b.Publish(update(1, 1))
	receive(t, other)
	assert.Empty(t, sub.Events(), "removed subscription receives nothing")
}

func TestBroadcasterEvictsSlowSubscriber(t *testing.T) {
	t.Parallel()
	b, _ := startBroadcaster(t, Options{Inbox: 64, Buffer: 2, MaxMisses: 3})
	slow := b.Subscribe("slow")
	fast := b.Subscribe("fast")

	// The fast subscriber drains every event before the next one is
	// published; the slow one never reads.
	for i := int64(1); i <= 10; i++ {
		b.Publish(update(1, i))
		ev := receive(t, fast)
		assert.Equal(t, i, ev.(game.MultiplierUpdated).Tick)
	}

	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("slow subscriber was not evicted")
	}

	stats := b.Stats()
	assert.Equal(t, uint64(1), stats.Evicted)
	assert.Equal(t, uint64(3), stats.Missed)
	assert.Equal(t, 1, stats.Subscribers)
	assert.Len(t, slow.Events(), 2, "slow subscriber keeps what it was handed before eviction")
}

func TestBroadcasterMissesResetOnDelivery(t *testing.T) {
	t.Parallel()
	b := New(testLogger(), Options{Inbox: 8, Buffer: 1, MaxMisses: 2})
	sub := b.Subscribe("alice")

	b.fanOut(update(1, 1)) // fills the buffer
	b.fanOut(update(1, 2)) // miss 1
	<-sub.Events()
	b.fanOut(update(1, 3)) // delivered, misses reset
	b.fanOut(update(1, 4)) // miss 1 again

	assert.Equal(t, 1, b.Count(), "misses are consecutive, not cumulative")
	assert.Equal(t, 1, sub.misses)
}

func TestBroadcasterPublishNeverBlocks(t *testing.T) {
	t.Parallel()
	b := New(testLogger(), Options{Inbox: 2, Buffer: 1, MaxMisses: 1})

	done := make(chan struct{})
	go func() {
		for i := int64(0); i < 100; i++ {
			b.Publish(update(1, i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with nobody draining the inbox")
	}
	assert.Equal(t, uint64(98), b.Stats().Dropped)
}

func TestBroadcasterRunClosesSubscriptionsOnShutdown(t *testing.T) {
	t.Parallel()
	b, cancel := startBroadcaster(t, DefaultOptions())
	sub := b.Subscribe("alice")

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription not closed on shutdown")
	}
	assert.Equal(t, 0, b.Count())
}

func TestBroadcasterPhaseEventWaitsForInbox(t *testing.T) {
	t.Parallel()
	b := New(testLogger(), Options{Inbox: 1, Buffer: 8, MaxMisses: 3, PhaseWait: 5 * time.Second})
	sub := b.Subscribe("alice")

	b.Publish(update(1, 1)) // fills the inbox
	b.Publish(update(1, 2))
	assert.Equal(t, uint64(1), b.Stats().Dropped, "updates are dropped at once")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()

	b.Publish(game.RoundCrashed{Sequence: 1, Multiplier: decimal.RequireFromString("1.01")})

	assert.Equal(t, int64(1), receive(t, sub).(game.MultiplierUpdated).Tick)
	assert.Equal(t, game.EventTypeCrash, receive(t, sub).EventType())
	assert.Equal(t, uint64(1), b.Stats().Dropped, "the crash waited for space")
	assert.Equal(t, 1, b.Count())
}

func TestBroadcasterEvictsAllWhenPhaseEventCannotQueue(t *testing.T) {
	t.Parallel()
	b := New(testLogger(), Options{Inbox: 1, Buffer: 8, MaxMisses: 3, PhaseWait: 10 * time.Millisecond})
	alice := b.Subscribe("alice")
	bob := b.Subscribe("bob")

	b.Publish(update(1, 1)) // nobody drains the inbox
	b.Publish(game.RoundStarted{Sequence: 2})

	for _, sub := range []*Subscription{alice, bob} {
		select {
		case <-sub.Done():
		default:
			t.Fatalf("%s kept a feed that lost a round start", sub.Player())
		}
	}

	stats := b.Stats()
	assert.Equal(t, 0, stats.Subscribers)
	assert.Equal(t, uint64(2), stats.Evicted)
	assert.Equal(t, uint64(1), stats.Dropped)

	late := b.Subscribe("carol")
	b.Publish(update(2, 1))
	assert.Equal(t, 1, b.Count(), "new subscriptions are unaffected")
	select {
	case <-late.Done():
		t.Fatal("late subscriber must not be closed")
	default:
	}
}
