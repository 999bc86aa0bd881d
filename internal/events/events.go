// Package events defines the decision events the engine emits. Storage and
// alerting of these events happen outside the engine; sinks are pluggable.
package events

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Type enumerates the emitted decision events.
type Type string

const (
	PlanAdmitted   Type = "plan_admitted"
	PlanRejected   Type = "plan_rejected"
	SLAdjusted     Type = "sl_adjusted"
	TPExtended     Type = "tp_extended"
	PositionClosed Type = "position_closed"
	DegradedHealth Type = "degraded_health"
	ModifyFailure  Type = "modify_failure"
)

// Event is one structured decision record.
type Event struct {
	Type       Type      `json:"type"`
	Time       time.Time `json:"time"`
	Symbol     string    `json:"symbol"`
	PositionID string    `json:"position_id,omitempty"`
	LegID      string    `json:"leg_id,omitempty"`
	Old        float64   `json:"old,omitempty"`
	New        float64   `json:"new,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Sink consumes emitted events. Implementations must not block the worker
// for long; slow sinks should buffer internally.
type Sink interface {
	Emit(ev Event)
}

// LogSink writes every event to the structured log.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink builds a sink over the global logger.
func NewLogSink() *LogSink {
	return &LogSink{logger: log.With().Str("component", "events").Logger()}
}

func (s *LogSink) Emit(ev Event) {
	entry := s.logger.Info().
		Str("event", string(ev.Type)).
		Str("symbol", ev.Symbol)
	if ev.PositionID != "" {
		entry = entry.Str("position_id", ev.PositionID)
	}
	if ev.LegID != "" {
		entry = entry.Str("leg_id", ev.LegID)
	}
	if ev.Old != 0 || ev.New != 0 {
		entry = entry.Float64("old", ev.Old).Float64("new", ev.New)
	}
	if ev.Reason != "" {
		entry = entry.Str("reason", ev.Reason)
	}
	entry.Msg("decision event")
}

// Multi fans one event out to several sinks.
type Multi []Sink

func (m Multi) Emit(ev Event) {
	for _, sink := range m {
		sink.Emit(ev)
	}
}
