package models

import (
	"time"
)

// TPLevel is one rung of a take-profit ladder: a risk-multiple ratio and the
// percentage of the position allocated to it.
type TPLevel struct {
	Ratio         float64 `json:"ratio"`
	AllocationPct int     `json:"allocation_pct"`
}

// RiskPlan is the planner's verdict for one signal. Created and discarded per
// signal; never stored.
type RiskPlan struct {
	Symbol          string    `json:"symbol"`
	Direction       Direction `json:"direction"`
	EntryPrice      float64   `json:"entry_price"`
	StopLoss        float64   `json:"stop_loss"`
	TPLadder        []TPLevel `json:"tp_ladder"`
	Confidence      float64   `json:"confidence"`
	RiskMultiplier  float64   `json:"risk_multiplier"`
	Admitted        bool      `json:"admitted"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
}

// LegStatus is the lifecycle state of a single leg.
type LegStatus string

const (
	LegOpen   LegStatus = "OPEN"
	LegClosed LegStatus = "CLOSED"
)

// Leg is one of several partial orders comprising a single logical position,
// each with its own take-profit.
type Leg struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	Quantity   float64   `json:"quantity"`
	TakeProfit float64   `json:"take_profit"`
	Status     LegStatus `json:"status"`
	ClosedAt   time.Time `json:"closed_at,omitempty"`
}

// PositionState is the reconciliation state machine for one position.
type PositionState string

const (
	PositionOpened          PositionState = "OPENED"
	PositionMonitoring      PositionState = "MONITORING"
	PositionPartiallyClosed PositionState = "PARTIALLY_CLOSED"
	PositionClosed          PositionState = "CLOSED"
)

// Position is an open trade with its legs and the shared stop-loss. It is
// mutated only by the dynamic controllers through the ledger, one write per
// tick, by the single worker that owns its symbol.
type Position struct {
	ID         string        `json:"id"`
	Symbol     string        `json:"symbol"`
	Direction  Direction     `json:"direction"`
	EntryPrice float64       `json:"entry_price"`
	OpenedAt   time.Time     `json:"opened_at"`
	State      PositionState `json:"state"`
	Legs       []Leg         `json:"legs"`

	StopLoss         float64 `json:"stop_loss"`
	SLAdjustments    int     `json:"sl_adjustments"`
	TPExtensions     int     `json:"tp_extensions"`
	LastSLReason     string  `json:"last_sl_reason,omitempty"`
	LastTPReason     string  `json:"last_tp_reason,omitempty"`

	// Last-evaluation memory for detectors that react to deltas.
	LastVolRatio    float64 `json:"last_vol_ratio"`
	LastADX         float64 `json:"last_adx"`
	LastConsistency float64 `json:"last_consistency"`
	LastSwingStop   float64 `json:"last_swing_stop"`
	LastATR         float64 `json:"last_atr"`
}

// OpenLegs returns the legs still open, in ladder order.
func (p *Position) OpenLegs() []Leg {
	var open []Leg
	for _, leg := range p.Legs {
		if leg.Status == LegOpen {
			open = append(open, leg)
		}
	}
	return open
}

// FurthestOpenLeg returns the last open leg of the ladder, the only one the
// TP controller may extend.
func (p *Position) FurthestOpenLeg() (Leg, bool) {
	open := p.OpenLegs()
	if len(open) == 0 {
		return Leg{}, false
	}
	return open[len(open)-1], true
}

// UnrealizedMove is the signed favorable price move for this position:
// positive when the position is in profit.
func (p *Position) UnrealizedMove(price float64) float64 {
	return (price - p.EntryPrice) * p.Direction.Sign()
}
