package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schundi365/IndianTradingbot-sub006/config"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

func testSizer(t *testing.T) *Sizer {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return New(cfg)
}

func goldPlan() *models.RiskPlan {
	return &models.RiskPlan{
		Symbol:     "XAUUSD",
		Direction:  models.Long,
		EntryPrice: 2700,
		StopLoss:   2680,
		TPLadder: []models.TPLevel{
			{Ratio: 1.5, AllocationPct: 30},
			{Ratio: 3.0, AllocationPct: 30},
			{Ratio: 5.0, AllocationPct: 40},
		},
		RiskMultiplier: 1.0,
		Admitted:       true,
	}
}

func goldLots() models.LotConstraints {
	return models.LotConstraints{
		MinLot:        0.01,
		LotStep:       0.01,
		PipValue:      1,
		ContractSize:  100,
		MarginPerUnit: 100,
	}
}

func TestSizeSplitsLaddersAndFloorsToStep(t *testing.T) {
	s := testSizer(t)
	account := models.AccountState{Equity: 50_000, FreeMargin: 50_000}

	legs, err := s.Size(goldPlan(), account, goldLots())
	require.NoError(t, err)
	require.Len(t, legs, 3)

	// 0.3% of 50k = 150 risk; 20 price units of stop over contract size
	// 100 gives 0.075 total. Allocations 30/30/40 floor to the lot step.
	assert.InDelta(t, 0.02, legs[0].Quantity, 1e-9)
	assert.InDelta(t, 0.02, legs[1].Quantity, 1e-9)
	assert.InDelta(t, 0.03, legs[2].Quantity, 1e-9)

	// Targets are risk multiples of the 20-unit stop distance.
	assert.InDelta(t, 2730, legs[0].TakeProfit, 1e-9)
	assert.InDelta(t, 2760, legs[1].TakeProfit, 1e-9)
	assert.InDelta(t, 2800, legs[2].TakeProfit, 1e-9)
}

func TestSizeShortTargetsBelowEntry(t *testing.T) {
	s := testSizer(t)
	plan := goldPlan()
	plan.Direction = models.Short
	plan.EntryPrice = 2700
	plan.StopLoss = 2720

	legs, err := s.Size(plan, models.AccountState{Equity: 50_000, FreeMargin: 50_000}, goldLots())
	require.NoError(t, err)
	for _, leg := range legs {
		assert.Less(t, leg.TakeProfit, plan.EntryPrice)
	}
}

func TestSizeDropsSubMinimumLegsWithoutRedistribution(t *testing.T) {
	s := testSizer(t)
	// Tiny equity: total 0.0015 lots, every allocation rounds below the
	// minimum except none. Use one that leaves only the 40% leg alive.
	account := models.AccountState{Equity: 20_000, FreeMargin: 20_000}

	legs, err := s.Size(goldPlan(), account, goldLots())
	require.NoError(t, err)

	// Total 0.03: allocations 0.009/0.009/0.012 floor to 0.00/0.00/0.01.
	require.Len(t, legs, 1)
	assert.InDelta(t, 0.01, legs[0].Quantity, 1e-9)
	assert.InDelta(t, 2800, legs[0].TakeProfit, 1e-9)
}

func TestSizeInsufficientMargin(t *testing.T) {
	s := testSizer(t)

	_, err := s.Size(goldPlan(), models.AccountState{Equity: 1_000, FreeMargin: 1_000}, goldLots())
	assert.ErrorIs(t, err, ErrInsufficientMargin)

	_, err = s.Size(goldPlan(), models.AccountState{Equity: 50_000, FreeMargin: 0}, goldLots())
	assert.ErrorIs(t, err, ErrInsufficientMargin)
}

func TestSizeMarginCapReducesPosition(t *testing.T) {
	s := testSizer(t)
	lots := goldLots()
	lots.MarginPerUnit = 600_000

	// Uncapped total would be 0.075 needing 45k margin; the cap allows
	// 0.8 * 50k = 40k, so the whole position shrinks proportionally.
	account := models.AccountState{Equity: 50_000, FreeMargin: 50_000}
	legs, err := s.Size(goldPlan(), account, lots)
	require.NoError(t, err)
	total := 0.0
	for _, leg := range legs {
		total += leg.Quantity
	}
	assert.Less(t, total, 0.075)
	assert.LessOrEqual(t, total*lots.MarginPerUnit, s.cfg.MarginUseCap*account.FreeMargin+1e-6)
}

func TestSizeInvalidLotConstraints(t *testing.T) {
	s := testSizer(t)
	account := models.AccountState{Equity: 50_000, FreeMargin: 50_000}

	bad := goldLots()
	bad.LotStep = 0
	_, err := s.Size(goldPlan(), account, bad)
	assert.ErrorIs(t, err, ErrInvalidLotStep)

	bad = goldLots()
	bad.ContractSize = 0
	_, err = s.Size(goldPlan(), account, bad)
	assert.ErrorIs(t, err, ErrInvalidLotStep)

	plan := goldPlan()
	plan.StopLoss = plan.EntryPrice
	_, err = s.Size(plan, account, goldLots())
	assert.ErrorIs(t, err, ErrInvalidLotStep)
}

func TestFloorToStep(t *testing.T) {
	assert.InDelta(t, 0.02, floorToStep(0.0225, 0.01), 1e-12)
	assert.InDelta(t, 0.03, floorToStep(0.03, 0.01), 1e-12)
	assert.InDelta(t, 0.07, floorToStep(0.0799, 0.01), 1e-12)
	assert.InDelta(t, 0.1, floorToStep(0.1, 0.1), 1e-12)
}
