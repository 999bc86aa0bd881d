package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schundi365/IndianTradingbot-sub006/config"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

func testController(t *testing.T) *Controller {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return NewController(cfg)
}

func longPosition() *models.Position {
	return &models.Position{
		ID:         "pos-1",
		Symbol:     "XAUUSD",
		Direction:  models.Long,
		EntryPrice: 100,
		StopLoss:   95,
		State:      models.PositionMonitoring,
		Legs: []models.Leg{
			{ID: "leg-1", OrderID: "o1", Status: models.LegClosed, TakeProfit: 103},
			{ID: "leg-2", OrderID: "o2", Status: models.LegOpen, TakeProfit: 106},
			{ID: "leg-3", OrderID: "o3", Status: models.LegOpen, TakeProfit: 110},
		},
		// Neutral detector memory.
		LastConsistency: 0.90,
		LastATR:         2,
	}
}

// quietSnapshot triggers no extension detector for a long position.
func quietSnapshot() *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Symbol: "XAUUSD",
		Price:  105,
		ATR:    2,
		ADX:    20,
		Candles: []models.Candle{
			{High: 106, Low: 103, Close: 105},
			{High: 106, Low: 103, Close: 104.5},
			{High: 106, Low: 103, Close: 105},
		},
	}
}

func calmRegime() models.RegimeClassification {
	return models.RegimeClassification{Regime: models.WeakTrend, Consistency: 0.60}
}

func TestNoTriggerNoExtension(t *testing.T) {
	c := testController(t)
	assert.Nil(t, c.Evaluate(longPosition(), quietSnapshot(), calmRegime()))
}

func TestOnlyFurthestOpenLegIsExtended(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	snap := quietSnapshot()
	cls := models.RegimeClassification{Regime: models.StrongTrend, Consistency: 0.90}
	snap.ADX = 35

	res := c.Evaluate(pos, snap, cls)
	require.NotNil(t, res)
	assert.Equal(t, "strong_trend", res.Detector)
	assert.Equal(t, "leg-3", res.LegID)
	// 110 + 0.5 * (110 - 100)
	assert.InDelta(t, 115.0, res.TakeProfit, 1e-9)
}

func TestBreakoutOutranksStrongTrend(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	snap := quietSnapshot()
	snap.Price = 115
	snap.BreakoutAboveResistance = true
	// The cleared resistance now counts as a support below price.
	snap.Supports = []models.Level{{Price: 112, Touches: 3}}
	cls := models.RegimeClassification{Regime: models.StrongTrend, Consistency: 0.90}
	snap.ADX = 35

	res := c.Evaluate(pos, snap, cls)
	require.NotNil(t, res)
	assert.Equal(t, "breakout", res.Detector)
	// level 112 + 2.0 ATR, within the 10-unit step cap.
	assert.InDelta(t, 116.0, res.TakeProfit, 1e-9)
}

func TestExtensionsAreOutwardOnly(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	snap := quietSnapshot()
	snap.Price = 108
	snap.BreakoutAboveResistance = true
	// Proposal 104 + 4 = 108 sits inside the current 110 target.
	snap.Supports = []models.Level{{Price: 104, Touches: 3}}

	assert.Nil(t, c.Evaluate(pos, snap, calmRegime()))
}

func TestSingleStepIsCapped(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	snap := quietSnapshot()
	snap.Price = 140
	snap.ATR = 10
	snap.BreakoutAboveResistance = true
	// Proposal 135 + 20 = 155: a 45-unit jump over a 10-unit distance.
	snap.Supports = []models.Level{{Price: 135, Touches: 3}}

	res := c.Evaluate(pos, snap, calmRegime())
	require.NotNil(t, res)
	// Step capped at 1.0 * |110 - 100|.
	assert.InDelta(t, 120.0, res.TakeProfit, 1e-9)
}

func TestMinimumIncrementSuppressed(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	snap := quietSnapshot()
	snap.Price = 110.6
	snap.ATR = 0.1
	snap.BreakoutAboveResistance = true
	// Proposal 110.2 + 0.2 = 110.4: only 0.4 over a 110 target, under
	// the 0.5% minimum increment.
	snap.Supports = []models.Level{{Price: 110.2, Touches: 3}}

	assert.Nil(t, c.Evaluate(pos, snap, calmRegime()))
}

func TestExtensionBudgetExhausted(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	pos.TPExtensions = 5
	snap := quietSnapshot()
	cls := models.RegimeClassification{Regime: models.StrongTrend, Consistency: 0.90}
	snap.ADX = 35

	assert.Nil(t, c.Evaluate(pos, snap, cls))
}

func TestNoExtensionAtALoss(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	snap := quietSnapshot()
	snap.Price = 98 // under water
	cls := models.RegimeClassification{Regime: models.StrongTrend, Consistency: 0.90}
	snap.ADX = 35

	assert.Nil(t, c.Evaluate(pos, snap, cls))
}

func TestMomentumAcceleration(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	snap := quietSnapshot()
	snap.Candles = []models.Candle{
		{Close: 100},
		{Close: 101}, // +1
		{Close: 103}, // +2, twice the prior move
	}

	res := c.Evaluate(pos, snap, calmRegime())
	require.NotNil(t, res)
	assert.Equal(t, "momentum", res.Detector)
	// 110 + 0.4 * 10
	assert.InDelta(t, 114.0, res.TakeProfit, 1e-9)
}

func TestVolatilityExpansionNeedsFavorableMove(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	pos.LastATR = 2
	snap := quietSnapshot()
	snap.ATR = 2.8 // +40%
	snap.Candles = []models.Candle{
		{Close: 104},
		{Close: 105},
		{Close: 105.5}, // favorable, but decelerating: momentum stays quiet
	}

	res := c.Evaluate(pos, snap, calmRegime())
	require.NotNil(t, res)
	assert.Equal(t, "volatility_expansion", res.Detector)
	// 110 + 0.3 * 10
	assert.InDelta(t, 113.0, res.TakeProfit, 1e-9)

	// Same expansion against the position: nothing fires.
	snap.Candles[2].Close = 104.5
	snap.Candles[1].Close = 104.8
	assert.Nil(t, c.Evaluate(pos, snap, calmRegime()))
}

func TestContinuationPattern(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	snap := quietSnapshot()
	snap.Candles = []models.Candle{
		{High: 104, Low: 101, Close: 102},
		{High: 105, Low: 102, Close: 103},
		{High: 106, Low: 103, Close: 103.5},
		{High: 107, Low: 104, Close: 104.2},
	}

	res := c.Evaluate(pos, snap, calmRegime())
	require.NotNil(t, res)
	assert.Equal(t, "continuation_pattern", res.Detector)
	// 110 + 0.2 * 10
	assert.InDelta(t, 112.0, res.TakeProfit, 1e-9)
}

func TestFreshLevelClearExtends(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	snap := quietSnapshot()
	snap.Price = 109.3
	// Prior close sat below the level; this bar clears it.
	snap.Candles = []models.Candle{{Close: 108.7}, {Close: 109.0}, {Close: 109.3}}
	snap.Supports = []models.Level{{Price: 109, Touches: 2}}

	res := c.Evaluate(pos, snap, calmRegime())
	require.NotNil(t, res)
	assert.Equal(t, "sr_clearance", res.Detector)
	// 109 + 1.5 ATR
	assert.InDelta(t, 112.0, res.TakeProfit, 1e-9)
}

func TestStaleClearedLevelStaysSilent(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	pos.LastConsistency = 0.70
	snap := quietSnapshot()
	snap.Price = 108
	// An old support the price passed many bars ago must not claim the
	// tick away from the consistency cross below it in priority.
	snap.Supports = []models.Level{{Price: 50, Touches: 3}}
	cls := models.RegimeClassification{Regime: models.WeakTrend, Consistency: 0.85}

	res := c.Evaluate(pos, snap, cls)
	require.NotNil(t, res)
	assert.Equal(t, "consistency", res.Detector)
	assert.InDelta(t, 112.0, res.TakeProfit, 1e-9)
}

func TestConsistencyCrossFiresOnce(t *testing.T) {
	c := testController(t)
	pos := longPosition()
	pos.LastConsistency = 0.70
	snap := quietSnapshot()
	cls := models.RegimeClassification{Regime: models.WeakTrend, Consistency: 0.85}

	res := c.Evaluate(pos, snap, cls)
	require.NotNil(t, res)
	assert.Equal(t, "consistency", res.Detector)
	assert.InDelta(t, 112.0, res.TakeProfit, 1e-9)

	// Already above the bar last tick: no re-trigger.
	pos.LastConsistency = 0.85
	assert.Nil(t, c.Evaluate(pos, snap, cls))
}
