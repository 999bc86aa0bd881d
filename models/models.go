package models

import (
	"time"
)

// Candle represents a single price candle
type Candle struct {
	Datetime string  `json:"datetime"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume,omitempty"`
}

// Direction is the side of a position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Sign returns +1 for Long and -1 for Short, so price arithmetic can be
// written once for both sides.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// Regime is the classified market state.
type Regime string

const (
	StrongTrend Regime = "STRONG_TREND"
	WeakTrend   Regime = "WEAK_TREND"
	Ranging     Regime = "RANGING"
	Volatile    Regime = "VOLATILE"
)

// RegimeClassification is derived deterministically from a MarketSnapshot.
// It is never persisted, always recomputed.
type RegimeClassification struct {
	Regime          Regime  `json:"regime"`
	TrendStrength   float64 `json:"trend_strength"`
	VolatilityRatio float64 `json:"volatility_ratio"`
	Consistency     float64 `json:"consistency"`
}

// Level is a support or resistance price level with its touch count.
type Level struct {
	Price   float64 `json:"price"`
	Touches int     `json:"touches"`
}

// MarketSnapshot is the immutable per-symbol, per-tick view of the market.
// Indicator fields arrive precomputed; the risk engine never computes them.
type MarketSnapshot struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`

	Candles []Candle `json:"candles,omitempty"`
	Price   float64  `json:"price"`
	Spread  float64  `json:"spread"`

	ADX      float64 `json:"adx"`
	ATR      float64 `json:"atr"`
	ATRAvg   float64 `json:"atr_avg"`
	RSI      float64 `json:"rsi"`
	MACDHist float64 `json:"macd_hist"`
	FastMA   float64 `json:"fast_ma"`
	SlowMA   float64 `json:"slow_ma"`

	// Swing points, oldest first.
	SwingHighs []float64 `json:"swing_highs,omitempty"`
	SwingLows  []float64 `json:"swing_lows,omitempty"`

	Supports    []Level `json:"supports,omitempty"`
	Resistances []Level `json:"resistances,omitempty"`

	// TrendConsistency is the fraction of recent bars agreeing with the
	// dominant direction, supplied for windows too short to recompute.
	TrendConsistency float64 `json:"trend_consistency"`

	// Price-action flags.
	HigherHighs             bool `json:"higher_highs"`
	HigherLows              bool `json:"higher_lows"`
	LowerHighs              bool `json:"lower_highs"`
	LowerLows               bool `json:"lower_lows"`
	BreakoutAboveResistance bool `json:"breakout_above_resistance"`
	BreakdownBelowSupport   bool `json:"breakdown_below_support"`
}

// NearestSupport returns the closest support below price, if any.
func (s *MarketSnapshot) NearestSupport() (Level, bool) {
	return NearestLevelBelow(s.Supports, s.Price)
}

// NearestResistance returns the closest resistance above price, if any.
func (s *MarketSnapshot) NearestResistance() (Level, bool) {
	return NearestLevelAbove(s.Resistances, s.Price)
}

// NearestLevelBelow returns the closest level strictly below price.
func NearestLevelBelow(levels []Level, price float64) (Level, bool) {
	var best Level
	found := false
	for _, lv := range levels {
		if lv.Price < price && (!found || lv.Price > best.Price) {
			best = lv
			found = true
		}
	}
	return best, found
}

// NearestLevelAbove returns the closest level strictly above price.
func NearestLevelAbove(levels []Level, price float64) (Level, bool) {
	var best Level
	found := false
	for _, lv := range levels {
		if lv.Price > price && (!found || lv.Price < best.Price) {
			best = lv
			found = true
		}
	}
	return best, found
}

// Signal is a raw directional entry signal. Its generation is out of scope.
type Signal struct {
	Symbol         string    `json:"symbol"`
	Direction      Direction `json:"direction"`
	BaseConfidence float64   `json:"base_confidence"`
}

// AccountState is the broker account view used for sizing.
type AccountState struct {
	Equity     float64 `json:"equity"`
	FreeMargin float64 `json:"free_margin"`
	Currency   string  `json:"currency"`
}

// LotConstraints are the broker's sizing rules for one instrument.
type LotConstraints struct {
	MinLot        float64 `json:"min_lot"`
	LotStep       float64 `json:"lot_step"`
	PipValue      float64 `json:"pip_value"`
	ContractSize  float64 `json:"contract_size"`
	MarginPerUnit float64 `json:"margin_per_unit"`
}
