package calculate

import (
	"math"
	"sort"

	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// SwingPoints extracts recent swing highs and swing lows: bars whose high
// (low) dominates the two bars on either side. Results are oldest first.
func SwingPoints(candles []models.Candle) (highs, lows []float64) {
	for i := 2; i < len(candles)-2; i++ {
		if candles[i].High > candles[i-1].High &&
			candles[i].High > candles[i-2].High &&
			candles[i].High > candles[i+1].High &&
			candles[i].High > candles[i+2].High {
			highs = append(highs, candles[i].High)
		}
		if candles[i].Low < candles[i-1].Low &&
			candles[i].Low < candles[i-2].Low &&
			candles[i].Low < candles[i+1].Low &&
			candles[i].Low < candles[i+2].Low {
			lows = append(lows, candles[i].Low)
		}
	}
	return highs, lows
}

// SupportResistance clusters swing points into support and resistance levels
// with touch counts, splitting them around the latest close. tolerance is
// the price distance within which touches cluster into one level.
func SupportResistance(candles []models.Candle, tolerance float64) (supports, resistances []models.Level) {
	if len(candles) < 20 || tolerance <= 0 {
		return nil, nil
	}

	pricePoints := make(map[float64]int)
	for i := 2; i < len(candles)-2; i++ {
		if candles[i].Low < candles[i-1].Low &&
			candles[i].Low < candles[i-2].Low &&
			candles[i].Low < candles[i+1].Low &&
			candles[i].Low < candles[i+2].Low {
			level := math.Round(candles[i].Low/tolerance) * tolerance
			pricePoints[level]++
		}
		if candles[i].High > candles[i-1].High &&
			candles[i].High > candles[i-2].High &&
			candles[i].High > candles[i+1].High &&
			candles[i].High > candles[i+2].High {
			level := math.Round(candles[i].High/tolerance) * tolerance
			pricePoints[level]++
		}
	}

	// Recent closes near a level count as additional touches.
	start := len(candles) - 10
	if start < 0 {
		start = 0
	}
	for i := start; i < len(candles); i++ {
		for price := range pricePoints {
			if math.Abs(candles[i].Close-price) < tolerance*2 {
				pricePoints[price]++
			}
		}
	}

	lastClose := candles[len(candles)-1].Close
	for price, touches := range pricePoints {
		level := models.Level{Price: price, Touches: touches}
		if price < lastClose {
			supports = append(supports, level)
		} else {
			resistances = append(resistances, level)
		}
	}

	sort.Slice(supports, func(i, j int) bool { return supports[i].Price < supports[j].Price })
	sort.Slice(resistances, func(i, j int) bool { return resistances[i].Price < resistances[j].Price })
	return supports, resistances
}

// PriceActionFlags summarizes the recent bar structure.
type PriceActionFlags struct {
	HigherHighs             bool
	HigherLows              bool
	LowerHighs              bool
	LowerLows               bool
	BreakoutAboveResistance bool
	BreakdownBelowSupport   bool
}

// PriceAction derives the structure flags from the last bars and the level
// map. A breakout requires the latest close past a level the previous close
// had not cleared.
func PriceAction(candles []models.Candle, supports, resistances []models.Level) PriceActionFlags {
	var flags PriceActionFlags
	if len(candles) < 4 {
		return flags
	}

	recent := candles[len(candles)-4:]
	flags.HigherHighs, flags.HigherLows, flags.LowerHighs, flags.LowerLows = true, true, true, true
	for i := 1; i < len(recent); i++ {
		if recent[i].High <= recent[i-1].High {
			flags.HigherHighs = false
		}
		if recent[i].Low <= recent[i-1].Low {
			flags.HigherLows = false
		}
		if recent[i].High >= recent[i-1].High {
			flags.LowerHighs = false
		}
		if recent[i].Low >= recent[i-1].Low {
			flags.LowerLows = false
		}
	}

	// A level just broken sits on the other side of the latest close, so
	// both lists are scanned for each flag.
	last := candles[len(candles)-1].Close
	prev := candles[len(candles)-2].Close
	all := append(append([]models.Level(nil), supports...), resistances...)
	for _, lv := range all {
		if last > lv.Price && prev <= lv.Price {
			flags.BreakoutAboveResistance = true
		}
		if last < lv.Price && prev >= lv.Price {
			flags.BreakdownBelowSupport = true
		}
	}
	return flags
}
