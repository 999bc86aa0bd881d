package stops

import (
	"fmt"
	"math"

	"github.com/schundi365/IndianTradingbot-sub006/config"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// reversalDetector tightens hard when the trend turns against the position:
// RSI at the opposite-side extreme, or a moving-average cross confirmed by
// the MACD histogram.
type reversalDetector struct {
	tightenATR float64
}

func (d *reversalDetector) Name() string { return "trend_reversal" }

func (d *reversalDetector) Evaluate(pos *models.Position, snap *models.MarketSnapshot, _ models.RegimeClassification) *Adjustment {
	sign := pos.Direction.Sign()

	rsiHit := rsiExtremeAgainst(snap.RSI, pos.Direction)
	macdAgainst := snap.MACDHist*sign < 0
	confirmedCross := maAgainst(snap, pos.Direction) && macdAgainst
	if !rsiHit && !confirmedCross {
		return nil
	}

	trigger := "rsi extreme"
	if confirmedCross {
		trigger = "confirmed ma cross"
	}
	return &Adjustment{
		StopLoss: snap.Price - sign*d.tightenATR*snap.ATR,
		Reason:   fmt.Sprintf("trend reversal (%s)", trigger),
		Category: CategoryReversal,
	}
}

// maCrossDetector reacts to a bare moving-average cross against the
// position, a weaker signal than a full reversal, with a moderate tighten.
type maCrossDetector struct {
	tightenATR float64
}

func (d *maCrossDetector) Name() string { return "ma_cross" }

func (d *maCrossDetector) Evaluate(pos *models.Position, snap *models.MarketSnapshot, _ models.RegimeClassification) *Adjustment {
	if !maAgainst(snap, pos.Direction) {
		return nil
	}
	sign := pos.Direction.Sign()
	return &Adjustment{
		StopLoss: snap.Price - sign*d.tightenATR*snap.ATR,
		Reason:   "ma cross against position",
		Category: CategoryMACross,
	}
}

// volRegimeDetector recomputes the stop from the entry parameters of the
// current regime when the volatility ratio has moved more than the trigger
// fraction since the last evaluation.
type volRegimeDetector struct {
	deltaTrigger float64
	slMult       func(models.Regime) float64
}

func (d *volRegimeDetector) Name() string { return "volatility_regime" }

func (d *volRegimeDetector) Evaluate(pos *models.Position, snap *models.MarketSnapshot, cls models.RegimeClassification) *Adjustment {
	if pos.LastVolRatio <= 0 {
		return nil
	}
	change := math.Abs(cls.VolatilityRatio-pos.LastVolRatio) / pos.LastVolRatio
	if change < d.deltaTrigger {
		return nil
	}
	sign := pos.Direction.Sign()
	return &Adjustment{
		StopLoss: pos.EntryPrice - sign*snap.ATR*d.slMult(cls.Regime),
		Reason: fmt.Sprintf("volatility ratio moved %.0f%% (%.2f -> %.2f)",
			change*100, pos.LastVolRatio, cls.VolatilityRatio),
		Category: CategoryVolatility,
	}
}

// swingDetector trails the latest swing low (Long) or swing high (Short)
// with a small buffer, but never loosens a previously swing-derived stop.
type swingDetector struct {
	bufferATR float64
}

func (d *swingDetector) Name() string { return "swing_structure" }

func (d *swingDetector) Evaluate(pos *models.Position, snap *models.MarketSnapshot, _ models.RegimeClassification) *Adjustment {
	sign := pos.Direction.Sign()

	var swing float64
	if pos.Direction == models.Long {
		if len(snap.SwingLows) == 0 {
			return nil
		}
		swing = snap.SwingLows[len(snap.SwingLows)-1]
	} else {
		if len(snap.SwingHighs) == 0 {
			return nil
		}
		swing = snap.SwingHighs[len(snap.SwingHighs)-1]
	}

	candidate := swing - sign*d.bufferATR*snap.ATR
	if pos.LastSwingStop != 0 {
		// Only tighter-or-equal than the prior swing-derived stop.
		if pos.Direction == models.Long && candidate < pos.LastSwingStop {
			return nil
		}
		if pos.Direction == models.Short && candidate > pos.LastSwingStop {
			return nil
		}
	}

	return &Adjustment{
		StopLoss:  candidate,
		Reason:    fmt.Sprintf("swing structure update (swing %.5f)", swing),
		Category:  CategorySwing,
		SwingStop: candidate,
	}
}

// levelBreakDetector moves the stop behind a support/resistance level that
// broke in the position's favor.
type levelBreakDetector struct {
	bufferATR float64
}

func (d *levelBreakDetector) Name() string { return "level_break" }

func (d *levelBreakDetector) Evaluate(pos *models.Position, snap *models.MarketSnapshot, _ models.RegimeClassification) *Adjustment {
	sign := pos.Direction.Sign()

	// A broken level switches sides, so search the combined level set.
	all := append(append([]models.Level(nil), snap.Supports...), snap.Resistances...)

	var level models.Level
	var ok bool
	if pos.Direction == models.Long {
		if !snap.BreakoutAboveResistance {
			return nil
		}
		// The broken resistance now sits below price.
		level, ok = models.NearestLevelBelow(all, snap.Price)
	} else {
		if !snap.BreakdownBelowSupport {
			return nil
		}
		level, ok = models.NearestLevelAbove(all, snap.Price)
	}
	if !ok {
		return nil
	}

	return &Adjustment{
		StopLoss: level.Price - sign*d.bufferATR*snap.ATR,
		Reason:   fmt.Sprintf("level %.5f broken in favor", level.Price),
		Category: CategoryLevelBreak,
	}
}

// adxDeltaDetector widens the stop as the trend strengthens and tightens it
// as the trend fades, stepping by a fixed ATR fraction per five ADX points.
type adxDeltaDetector struct {
	deltaTrigger float64
	stepATR      float64
}

func (d *adxDeltaDetector) Name() string { return "trend_strength" }

func (d *adxDeltaDetector) Evaluate(pos *models.Position, snap *models.MarketSnapshot, _ models.RegimeClassification) *Adjustment {
	if pos.LastADX <= 0 {
		return nil
	}
	delta := snap.ADX - pos.LastADX
	if math.Abs(delta) < d.deltaTrigger {
		return nil
	}

	sign := pos.Direction.Sign()
	amount := math.Abs(delta) / d.deltaTrigger * d.stepATR * snap.ATR

	var stop float64
	var verb string
	if delta > 0 {
		stop = pos.StopLoss - sign*amount
		verb = "widened"
	} else {
		stop = pos.StopLoss + sign*amount
		verb = "tightened"
	}
	return &Adjustment{
		StopLoss: stop,
		Reason:   fmt.Sprintf("adx moved %.1f, stop %s", delta, verb),
		Category: CategoryTrendStrength,
	}
}

// defaultDetectors builds the six detectors in priority order.
func defaultDetectors(cfg *config.Config, slMult func(models.Regime) float64) []Detector {
	return []Detector{
		&reversalDetector{tightenATR: cfg.SLReversalTightenATR},
		&maCrossDetector{tightenATR: cfg.SLCrossTightenATR},
		&volRegimeDetector{deltaTrigger: cfg.SLVolDeltaTrigger, slMult: slMult},
		&swingDetector{bufferATR: cfg.SLSwingBufferATR},
		&levelBreakDetector{bufferATR: cfg.SLBreakBufferATR},
		&adxDeltaDetector{deltaTrigger: cfg.SLADXDeltaTrigger, stepATR: cfg.SLADXStepATR},
	}
}
