package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schundi365/IndianTradingbot-sub006/internal/sizing"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// ErrNotFound is returned when a position id is unknown to the ledger.
var ErrNotFound = errors.New("position not found")

// Ledger is the authoritative in-memory store of open positions. It is the
// only shared mutable state in the engine; every access goes through one
// mutex. Each position is logically owned by the worker of its symbol, so
// contention is limited to the map itself.
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]*models.Position
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{positions: make(map[string]*models.Position)}
}

// Create records a newly admitted position from its plan, sized legs and the
// broker order ids, one order id per leg.
func (l *Ledger) Create(plan *models.RiskPlan, legs []sizing.LegOrder, orderIDs []string, now time.Time) models.Position {
	pos := &models.Position{
		ID:         uuid.NewString(),
		Symbol:     plan.Symbol,
		Direction:  plan.Direction,
		EntryPrice: plan.EntryPrice,
		OpenedAt:   now,
		State:      models.PositionOpened,
		StopLoss:   plan.StopLoss,
	}
	for i, leg := range legs {
		orderID := ""
		if i < len(orderIDs) {
			orderID = orderIDs[i]
		}
		pos.Legs = append(pos.Legs, models.Leg{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			Quantity:   leg.Quantity,
			TakeProfit: leg.TakeProfit,
			Status:     models.LegOpen,
		})
	}

	l.mu.Lock()
	l.positions[pos.ID] = pos
	l.mu.Unlock()
	return *pos
}

// Get returns a copy of one position.
func (l *Ledger) Get(id string) (models.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.positions[id]
	if !ok {
		return models.Position{}, false
	}
	return clone(pos), true
}

// BySymbol returns copies of the open positions for one symbol.
func (l *Ledger) BySymbol(symbol string) []models.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.Position
	for _, pos := range l.positions {
		if pos.Symbol == symbol && pos.State != models.PositionClosed {
			out = append(out, clone(pos))
		}
	}
	return out
}

// All returns copies of every tracked position.
func (l *Ledger) All() []models.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, clone(pos))
	}
	return out
}

// SetMonitoring transitions a freshly opened position into monitoring once
// order placement is confirmed.
func (l *Ledger) SetMonitoring(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[id]
	if !ok {
		return ErrNotFound
	}
	if pos.State == models.PositionOpened {
		pos.State = models.PositionMonitoring
	}
	return nil
}

// ApplyStopLoss records a confirmed stop-loss move.
func (l *Ledger) ApplyStopLoss(id string, newSL float64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[id]
	if !ok {
		return ErrNotFound
	}
	pos.StopLoss = newSL
	pos.SLAdjustments++
	pos.LastSLReason = reason
	return nil
}

// ApplyTakeProfit records a confirmed take-profit extension on one leg and
// bumps the extension counter.
func (l *Ledger) ApplyTakeProfit(id, legID string, newTP float64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[id]
	if !ok {
		return ErrNotFound
	}
	for i := range pos.Legs {
		if pos.Legs[i].ID == legID {
			pos.Legs[i].TakeProfit = newTP
			pos.TPExtensions++
			pos.LastTPReason = reason
			return nil
		}
	}
	return ErrNotFound
}

// UpdateEvalState stores the detector memory for the next tick: last seen
// volatility ratio, ADX, consistency, ATR and the last swing-derived stop.
func (l *Ledger) UpdateEvalState(id string, volRatio, adx, consistency, atr, swingStop float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[id]
	if !ok {
		return ErrNotFound
	}
	pos.LastVolRatio = volRatio
	pos.LastADX = adx
	pos.LastConsistency = consistency
	pos.LastATR = atr
	if swingStop != 0 {
		pos.LastSwingStop = swingStop
	}
	return nil
}

// Reconcile marks as closed every leg whose order id is absent from the
// broker's live order list, and advances the position state machine.
// It returns the position after reconciliation and whether it just closed.
func (l *Ledger) Reconcile(id string, liveOrderIDs []string, now time.Time) (models.Position, bool, error) {
	live := make(map[string]bool, len(liveOrderIDs))
	for _, oid := range liveOrderIDs {
		live[oid] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[id]
	if !ok {
		return models.Position{}, false, ErrNotFound
	}

	open := 0
	for i := range pos.Legs {
		if pos.Legs[i].Status != models.LegOpen {
			continue
		}
		if !live[pos.Legs[i].OrderID] {
			pos.Legs[i].Status = models.LegClosed
			pos.Legs[i].ClosedAt = now
			continue
		}
		open++
	}

	justClosed := false
	switch {
	case open == 0:
		if pos.State != models.PositionClosed {
			pos.State = models.PositionClosed
			justClosed = true
		}
	case open < len(pos.Legs):
		pos.State = models.PositionPartiallyClosed
	}
	return clone(pos), justClosed, nil
}

// Remove drops a closed position from the ledger.
func (l *Ledger) Remove(id string) {
	l.mu.Lock()
	delete(l.positions, id)
	l.mu.Unlock()
}

func clone(pos *models.Position) models.Position {
	out := *pos
	out.Legs = append([]models.Leg(nil), pos.Legs...)
	return out
}
