package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schundi365/IndianTradingbot-sub006/internal/sizing"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

func seedPosition(t *testing.T, l *Ledger) models.Position {
	t.Helper()
	plan := &models.RiskPlan{
		Symbol:     "XAUUSD",
		Direction:  models.Long,
		EntryPrice: 2700,
		StopLoss:   2680,
	}
	legs := []sizing.LegOrder{
		{Quantity: 0.02, TakeProfit: 2730},
		{Quantity: 0.02, TakeProfit: 2760},
		{Quantity: 0.03, TakeProfit: 2800},
	}
	pos := l.Create(plan, legs, []string{"o1", "o2", "o3"}, time.Now())
	require.NoError(t, l.SetMonitoring(pos.ID))
	return pos
}

func TestCreateAndGet(t *testing.T) {
	l := New()
	pos := seedPosition(t, l)

	got, ok := l.Get(pos.ID)
	require.True(t, ok)
	assert.Equal(t, models.PositionMonitoring, got.State)
	assert.Equal(t, 2680.0, got.StopLoss)
	require.Len(t, got.Legs, 3)
	assert.Equal(t, "o2", got.Legs[1].OrderID)
	assert.NotEmpty(t, got.Legs[0].ID)
	assert.NotEqual(t, got.Legs[0].ID, got.Legs[1].ID)

	_, ok = l.Get("nope")
	assert.False(t, ok)
}

func TestCopiesAreIsolated(t *testing.T) {
	l := New()
	pos := seedPosition(t, l)

	got, _ := l.Get(pos.ID)
	got.Legs[0].TakeProfit = 9999
	got.StopLoss = 1

	again, _ := l.Get(pos.ID)
	assert.Equal(t, 2730.0, again.Legs[0].TakeProfit)
	assert.Equal(t, 2680.0, again.StopLoss)
}

func TestApplyStopLoss(t *testing.T) {
	l := New()
	pos := seedPosition(t, l)

	require.NoError(t, l.ApplyStopLoss(pos.ID, 2690, "swing structure update"))
	got, _ := l.Get(pos.ID)
	assert.Equal(t, 2690.0, got.StopLoss)
	assert.Equal(t, 1, got.SLAdjustments)
	assert.Equal(t, "swing structure update", got.LastSLReason)

	assert.ErrorIs(t, l.ApplyStopLoss("nope", 1, ""), ErrNotFound)
}

func TestApplyTakeProfitBumpsExtensionBudget(t *testing.T) {
	l := New()
	pos := seedPosition(t, l)

	legID := pos.Legs[2].ID
	require.NoError(t, l.ApplyTakeProfit(pos.ID, legID, 2850, "breakout"))
	require.NoError(t, l.ApplyTakeProfit(pos.ID, legID, 2900, "momentum"))

	got, _ := l.Get(pos.ID)
	assert.Equal(t, 2900.0, got.Legs[2].TakeProfit)
	assert.Equal(t, 2, got.TPExtensions)
	assert.Equal(t, "momentum", got.LastTPReason)
}

func TestReconcilePartialThenFullClose(t *testing.T) {
	l := New()
	pos := seedPosition(t, l)
	now := time.Now()

	// First leg's order disappeared from the broker: partial close.
	got, justClosed, err := l.Reconcile(pos.ID, []string{"o2", "o3"}, now)
	require.NoError(t, err)
	assert.False(t, justClosed)
	assert.Equal(t, models.PositionPartiallyClosed, got.State)
	assert.Equal(t, models.LegClosed, got.Legs[0].Status)
	assert.Equal(t, now, got.Legs[0].ClosedAt)
	require.Len(t, got.OpenLegs(), 2)

	furthest, ok := got.FurthestOpenLeg()
	require.True(t, ok)
	assert.Equal(t, 2800.0, furthest.TakeProfit)

	// Everything gone: full close, reported exactly once.
	got, justClosed, err = l.Reconcile(pos.ID, nil, now)
	require.NoError(t, err)
	assert.True(t, justClosed)
	assert.Equal(t, models.PositionClosed, got.State)

	_, justClosed, err = l.Reconcile(pos.ID, nil, now)
	require.NoError(t, err)
	assert.False(t, justClosed)
}

func TestReconcileKeepsMonitoringWhenAllLive(t *testing.T) {
	l := New()
	pos := seedPosition(t, l)

	got, justClosed, err := l.Reconcile(pos.ID, []string{"o1", "o2", "o3", "other"}, time.Now())
	require.NoError(t, err)
	assert.False(t, justClosed)
	assert.Equal(t, models.PositionMonitoring, got.State)
}

func TestUpdateEvalStateKeepsSwingStop(t *testing.T) {
	l := New()
	pos := seedPosition(t, l)

	require.NoError(t, l.UpdateEvalState(pos.ID, 1.1, 28, 0.75, 9.5, 2685))
	// A tick with no swing proposal must not erase the remembered stop.
	require.NoError(t, l.UpdateEvalState(pos.ID, 1.2, 29, 0.80, 9.8, 0))

	got, _ := l.Get(pos.ID)
	assert.Equal(t, 1.2, got.LastVolRatio)
	assert.Equal(t, 29.0, got.LastADX)
	assert.Equal(t, 0.80, got.LastConsistency)
	assert.Equal(t, 9.8, got.LastATR)
	assert.Equal(t, 2685.0, got.LastSwingStop)
}

func TestBySymbolExcludesClosed(t *testing.T) {
	l := New()
	pos := seedPosition(t, l)
	require.Len(t, l.BySymbol("XAUUSD"), 1)
	assert.Empty(t, l.BySymbol("EURUSD"))

	_, _, err := l.Reconcile(pos.ID, nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, l.BySymbol("XAUUSD"))

	l.Remove(pos.ID)
	assert.Empty(t, l.All())
}
