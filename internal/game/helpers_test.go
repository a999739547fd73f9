package game

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingSink) OfType(et EventType) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.EventType() == et {
			out = append(out, ev)
		}
	}
	return out
}

// newTestService returns a service whose loop is not running; tests drive it
// through startRound and tick directly.
func newTestService(t *testing.T, crashAt ...decimal.Decimal) (*Service, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.Engine.MinCrash = d("1.01")
	svc := NewService(testLogger(),
		WithConfig(cfg),
		WithClock(quartz.NewMock(t)),
		WithSink(sink),
		WithCrashSource(FixedCrash(crashAt...)),
	)
	return svc, sink
}

// advanceUntil steps the mock clock one tick at a time until cond holds.
func advanceUntil(t *testing.T, ctx context.Context, clock *quartz.Mock, step time.Duration, cond func() bool) {
	t.Helper()
	for i := 0; i < 2000; i++ {
		if cond() {
			return
		}
		clock.Advance(step).MustWait(ctx)
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met while advancing clock")
}
