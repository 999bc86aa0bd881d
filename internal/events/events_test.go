package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type captureSink struct {
	got []Event
}

func (c *captureSink) Emit(ev Event) { c.got = append(c.got, ev) }

func TestMultiFansOut(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	sinks := Multi{a, b}

	ev := Event{
		Type:       SLAdjusted,
		Time:       time.Now(),
		Symbol:     "XAUUSD",
		PositionID: "pos-1",
		Old:        2675,
		New:        2690,
		Reason:     "swing structure update",
	}
	sinks.Emit(ev)

	assert.Equal(t, []Event{ev}, a.got)
	assert.Equal(t, []Event{ev}, b.got)
}

func TestLogSinkHandlesSparseEvents(t *testing.T) {
	s := NewLogSink()
	// Must not panic on events with only the required fields.
	s.Emit(Event{Type: DegradedHealth, Symbol: "XAUUSD"})
	s.Emit(Event{Type: PlanRejected, Symbol: "EURUSD", Reason: "ranging market"})
}
