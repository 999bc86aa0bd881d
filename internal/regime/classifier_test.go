package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schundi365/IndianTradingbot-sub006/config"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		snap     models.MarketSnapshot
		expected models.Regime
	}{
		{
			name:     "strong trend",
			snap:     models.MarketSnapshot{ADX: 30, TrendConsistency: 0.80, ATR: 10, ATRAvg: 10},
			expected: models.StrongTrend,
		},
		{
			name:     "strong adx but inconsistent",
			snap:     models.MarketSnapshot{ADX: 30, TrendConsistency: 0.55, ATR: 10, ATRAvg: 10},
			expected: models.WeakTrend,
		},
		{
			name:     "volatile overrides weak trend",
			snap:     models.MarketSnapshot{ADX: 20, TrendConsistency: 0.60, ATR: 14, ATRAvg: 10},
			expected: models.Volatile,
		},
		{
			name:     "volatile never overrides strong trend",
			snap:     models.MarketSnapshot{ADX: 30, TrendConsistency: 0.80, ATR: 14, ATRAvg: 10},
			expected: models.StrongTrend,
		},
		{
			name:     "weak trend",
			snap:     models.MarketSnapshot{ADX: 20, TrendConsistency: 0.60, ATR: 10, ATRAvg: 10},
			expected: models.WeakTrend,
		},
		{
			name:     "ranging by default",
			snap:     models.MarketSnapshot{ADX: 10, TrendConsistency: 0.40, ATR: 10, ATRAvg: 10},
			expected: models.Ranging,
		},
		{
			name:     "threshold boundaries are exclusive",
			snap:     models.MarketSnapshot{ADX: 25, TrendConsistency: 0.70, ATR: 13, ATRAvg: 10},
			expected: models.Ranging,
		},
		{
			name:     "missing average atr defaults to neutral volatility",
			snap:     models.MarketSnapshot{ADX: 10, TrendConsistency: 0.40, ATR: 10},
			expected: models.Ranging,
		},
	}

	classifier := New(testConfig(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := classifier.Classify(&tt.snap)
			assert.Equal(t, tt.expected, out.Regime)
		})
	}
}

func TestClassifyRecomputesConsistencyFromCandles(t *testing.T) {
	classifier := New(testConfig(t))

	// 10 rising closes: every move agrees with the dominant direction.
	candles := make([]models.Candle, 11)
	for i := range candles {
		candles[i] = models.Candle{Close: 100 + float64(i)}
	}
	snap := &models.MarketSnapshot{
		ADX:     30,
		ATR:     10,
		ATRAvg:  10,
		Candles: candles,
		// Supplied ratio is stale; the candle window must win.
		TrendConsistency: 0.10,
	}

	out := classifier.Classify(snap)
	assert.Equal(t, models.StrongTrend, out.Regime)
	assert.InDelta(t, 1.0, out.Consistency, 1e-9)
}

func TestClassifyReportsVolatilityRatio(t *testing.T) {
	classifier := New(testConfig(t))
	out := classifier.Classify(&models.MarketSnapshot{ADX: 10, ATR: 15, ATRAvg: 10})
	assert.InDelta(t, 1.5, out.VolatilityRatio, 1e-9)
}
