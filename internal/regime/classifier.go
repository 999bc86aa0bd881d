package regime

import (
	"github.com/schundi365/IndianTradingbot-sub006/config"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// Classifier derives a market regime from a snapshot. It is a pure function
// over the snapshot: no side effects, no error cases. Missing indicator
// fields fall back to neutral values and lower the consistency score.
type Classifier struct {
	adxStrong       float64
	adxWeak         float64
	consStrong      float64
	consWeak        float64
	volatileRatio   float64
	consistencyBars int
}

// New builds a classifier from engine configuration.
func New(cfg *config.Config) *Classifier {
	return &Classifier{
		adxStrong:       cfg.ADXStrongTrend,
		adxWeak:         cfg.ADXWeakTrend,
		consStrong:      cfg.ConsStrongTrend,
		consWeak:        cfg.ConsWeakTrend,
		volatileRatio:   cfg.VolatileRatio,
		consistencyBars: cfg.ConsistencyBars,
	}
}

// Classify maps a snapshot to a regime classification.
func (c *Classifier) Classify(snap *models.MarketSnapshot) models.RegimeClassification {
	consistency := c.consistency(snap)
	volRatio := volatilityRatio(snap)

	out := models.RegimeClassification{
		Regime:          models.Ranging,
		TrendStrength:   snap.ADX,
		VolatilityRatio: volRatio,
		Consistency:     consistency,
	}

	switch {
	case snap.ADX > c.adxStrong && consistency > c.consStrong:
		out.Regime = models.StrongTrend
	case volRatio > c.volatileRatio:
		// High volatility overrides Ranging and WeakTrend but never a
		// strong trend.
		out.Regime = models.Volatile
	case snap.ADX > c.adxWeak && consistency > c.consWeak:
		out.Regime = models.WeakTrend
	}

	return out
}

// consistency is the fraction of recent close-to-close moves agreeing with
// the dominant direction over the configured window.
func (c *Classifier) consistency(snap *models.MarketSnapshot) float64 {
	candles := snap.Candles
	if len(candles) > c.consistencyBars+1 {
		candles = candles[len(candles)-c.consistencyBars-1:]
	}
	if len(candles) < 2 {
		// Too little history to recompute: trust the supplied ratio,
		// which is zero when absent and keeps the score low.
		return snap.TrendConsistency
	}

	up, down := 0, 0
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			up++
		case candles[i].Close < candles[i-1].Close:
			down++
		}
	}

	total := len(candles) - 1
	if up >= down {
		return float64(up) / float64(total)
	}
	return float64(down) / float64(total)
}

func volatilityRatio(snap *models.MarketSnapshot) float64 {
	if snap.ATRAvg <= 0 || snap.ATR <= 0 {
		return 1.0
	}
	return snap.ATR / snap.ATRAvg
}
