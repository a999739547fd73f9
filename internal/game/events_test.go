package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSinksPublishInOrder(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	sink := Sinks(a, b)

	sink.Publish(RoundStarted{Sequence: 1})
	sink.Publish(MultiplierUpdated{Sequence: 1, Tick: 1})

	for _, rec := range []*recordingSink{a, b} {
		events := rec.Events()
		if assert.Len(t, events, 2) {
			assert.Equal(t, EventTypeStart, events[0].EventType())
			assert.Equal(t, EventTypeUpdate, events[1].EventType())
		}
	}
}
