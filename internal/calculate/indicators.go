package calculate

import (
	"math"

	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// ATR returns the average true range over the given period.
func ATR(candles []models.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 0
	}

	var trueRanges []float64
	for i := 1; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highPrevClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowPrevClose := math.Abs(candles[i].Low - candles[i-1].Close)
		trueRanges = append(trueRanges, math.Max(highLow, math.Max(highPrevClose, lowPrevClose)))
	}

	periodToUse := period
	if len(trueRanges) < period {
		periodToUse = len(trueRanges)
	}

	var sum float64
	for i := len(trueRanges) - periodToUse; i < len(trueRanges); i++ {
		sum += trueRanges[i]
	}
	return sum / float64(periodToUse)
}

// EMA returns the exponential moving average of closes for the period.
func EMA(candles []models.Candle, period int) float64 {
	prices := closes(candles)
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return prices[len(prices)-1]
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
	}
	return ema
}

// RSI returns the relative strength index with Wilder smoothing.
func RSI(candles []models.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 50.0
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			avgGain = (avgGain*float64(period-1) + change) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) - change) / float64(period)
		}
	}

	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// MACDHist returns the MACD histogram (MACD line minus signal line).
func MACDHist(candles []models.Candle, fast, slow, signal int) float64 {
	if len(candles) < slow+signal {
		return 0
	}

	prices := closes(candles)
	var macdLine []float64
	for i := slow; i <= len(prices); i++ {
		window := prices[:i]
		macdLine = append(macdLine, emaFromPrices(window, fast)-emaFromPrices(window, slow))
	}
	if len(macdLine) == 0 {
		return 0
	}

	sig := emaFromPrices(macdLine, signal)
	return macdLine[len(macdLine)-1] - sig
}

// ADX returns the average directional index plus the +DI and -DI components.
func ADX(candles []models.Candle, period int) (float64, float64, float64) {
	if len(candles) < period*2 {
		return 0, 0, 0
	}

	var plusDM, minusDM, trueRange []float64
	for i := 1; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		pDM := 0.0
		if upMove > downMove && upMove > 0 {
			pDM = upMove
		}
		plusDM = append(plusDM, pDM)

		mDM := 0.0
		if downMove > upMove && downMove > 0 {
			mDM = downMove
		}
		minusDM = append(minusDM, mDM)

		tr1 := candles[i].High - candles[i].Low
		tr2 := math.Abs(candles[i].High - candles[i-1].Close)
		tr3 := math.Abs(candles[i].Low - candles[i-1].Close)
		trueRange = append(trueRange, math.Max(tr1, math.Max(tr2, tr3)))
	}

	var smoothedPlusDM, smoothedMinusDM, smoothedTR float64
	for i := 0; i < period; i++ {
		smoothedPlusDM += plusDM[i]
		smoothedMinusDM += minusDM[i]
		smoothedTR += trueRange[i]
	}
	if smoothedTR == 0 {
		return 0, 0, 0
	}

	plusDI := (smoothedPlusDM / smoothedTR) * 100
	minusDI := (smoothedMinusDM / smoothedTR) * 100
	adx := dx(plusDI, minusDI)

	for i := period; i < len(trueRange); i++ {
		smoothedPlusDM = smoothedPlusDM - smoothedPlusDM/float64(period) + plusDM[i]
		smoothedMinusDM = smoothedMinusDM - smoothedMinusDM/float64(period) + minusDM[i]
		smoothedTR = smoothedTR - smoothedTR/float64(period) + trueRange[i]
		if smoothedTR == 0 {
			continue
		}
		plusDI = (smoothedPlusDM / smoothedTR) * 100
		minusDI = (smoothedMinusDM / smoothedTR) * 100
		adx = (adx*float64(period-1) + dx(plusDI, minusDI)) / float64(period)
	}

	return adx, plusDI, minusDI
}

func dx(plusDI, minusDI float64) float64 {
	if plusDI+minusDI == 0 {
		return 0
	}
	return math.Abs(plusDI-minusDI) / (plusDI + minusDI) * 100
}

func emaFromPrices(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return prices[len(prices)-1]
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
	}
	return ema
}

func closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
