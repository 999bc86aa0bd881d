package stops

import (
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// Category tags which kind of condition proposed an adjustment. The safety
// validation only allows a genuine widen for volatility and trend-strength
// triggers under a strong trend.
type Category int

const (
	CategoryReversal Category = iota
	CategoryMACross
	CategoryVolatility
	CategorySwing
	CategoryLevelBreak
	CategoryTrendStrength
)

// Adjustment is a candidate stop-loss move proposed by one detector.
type Adjustment struct {
	StopLoss float64
	Reason   string
	Category Category

	// SwingStop is set by the swing detector so the controller can record
	// the swing-derived stop for the tighter-or-equal rule on later ticks.
	SwingStop float64
}

// Detector is one independent stop-loss condition. Detectors never mutate
// anything; they look at the position and the live market and either propose
// a new stop or return nil.
type Detector interface {
	Name() string
	Evaluate(pos *models.Position, snap *models.MarketSnapshot, cls models.RegimeClassification) *Adjustment
}

const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// rsiExtremeAgainst reports whether RSI sits at the extreme that argues for
// the opposite side of the position.
func rsiExtremeAgainst(rsi float64, dir models.Direction) bool {
	if rsi == 0 {
		return false
	}
	if dir == models.Long {
		return rsi >= rsiOverbought
	}
	return rsi <= rsiOversold
}

// maAgainst reports whether the moving averages are crossed against the
// position direction.
func maAgainst(snap *models.MarketSnapshot, dir models.Direction) bool {
	if snap.FastMA == 0 || snap.SlowMA == 0 {
		return false
	}
	if dir == models.Long {
		return snap.FastMA < snap.SlowMA
	}
	return snap.FastMA > snap.SlowMA
}
