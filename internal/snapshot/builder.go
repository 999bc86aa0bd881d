package snapshot

import (
	"time"

	"github.com/schundi365/IndianTradingbot-sub006/internal/calculate"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// Periods are the indicator settings a snapshot producer uses. The risk
// engine itself never computes indicators; only brokers assembling snapshots
// from raw candles need these.
type Periods struct {
	ATR       int
	ATRAvg    int
	RSI       int
	MACDFast  int
	MACDSlow  int
	MACDSig   int
	FastMA    int
	SlowMA    int
	Tolerance float64 // level clustering distance in price units
}

// DefaultPeriods mirrors common terminal defaults.
func DefaultPeriods() Periods {
	return Periods{
		ATR:       14,
		ATRAvg:    50,
		RSI:       14,
		MACDFast:  12,
		MACDSlow:  26,
		MACDSig:   9,
		FastMA:    20,
		SlowMA:    50,
		Tolerance: 0.0002,
	}
}

// Build assembles a full MarketSnapshot from an OHLCV window.
func Build(symbol string, candles []models.Candle, p Periods, now time.Time) *models.MarketSnapshot {
	snap := &models.MarketSnapshot{
		Symbol:  symbol,
		Time:    now,
		Candles: candles,
	}
	if len(candles) == 0 {
		return snap
	}

	snap.Price = candles[len(candles)-1].Close
	snap.ATR = calculate.ATR(candles, p.ATR)
	snap.ATRAvg = calculate.ATR(candles, p.ATRAvg)
	snap.RSI = calculate.RSI(candles, p.RSI)
	snap.MACDHist = calculate.MACDHist(candles, p.MACDFast, p.MACDSlow, p.MACDSig)
	snap.FastMA = calculate.EMA(candles, p.FastMA)
	snap.SlowMA = calculate.EMA(candles, p.SlowMA)
	adx, _, _ := calculate.ADX(candles, p.ATR)
	snap.ADX = adx

	snap.SwingHighs, snap.SwingLows = calculate.SwingPoints(candles)
	snap.Supports, snap.Resistances = calculate.SupportResistance(candles, p.Tolerance)

	flags := calculate.PriceAction(candles, snap.Supports, snap.Resistances)
	snap.HigherHighs = flags.HigherHighs
	snap.HigherLows = flags.HigherLows
	snap.LowerHighs = flags.LowerHighs
	snap.LowerLows = flags.LowerLows
	snap.BreakoutAboveResistance = flags.BreakoutAboveResistance
	snap.BreakdownBelowSupport = flags.BreakdownBelowSupport

	snap.TrendConsistency = consistency(candles)
	return snap
}

// consistency is the fraction of close-to-close moves agreeing with the
// dominant direction over the last 20 bars.
func consistency(candles []models.Candle) float64 {
	if len(candles) > 21 {
		candles = candles[len(candles)-21:]
	}
	if len(candles) < 2 {
		return 0
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
