package targets

import (
	"fmt"

	"github.com/schundi365/IndianTradingbot-sub006/config"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// Extension is a candidate take-profit move for the furthest open leg.
type Extension struct {
	TakeProfit float64
	Reason     string
}

// Detector is one independent take-profit condition. The controller hands it
// the current target of the furthest open leg; the detector proposes a new
// target or returns nil.
type Detector interface {
	Name() string
	Evaluate(pos *models.Position, snap *models.MarketSnapshot, cls models.RegimeClassification, currentTP float64) *Extension
}

// extend pushes the target further from entry by a fraction of the current
// entry-to-target distance. The formula is direction-safe: for shorts the
// distance is negative and the target moves down.
func extend(currentTP, entry, factor float64) float64 {
	return currentTP + factor*(currentTP-entry)
}

// breakoutDetector reacts to price clearing a tracked level in the trade
// direction, retargeting a fixed ATR distance beyond the broken level.
type breakoutDetector struct {
	extATR float64
}

func (d *breakoutDetector) Name() string { return "breakout" }

func (d *breakoutDetector) Evaluate(pos *models.Position, snap *models.MarketSnapshot, _ models.RegimeClassification, _ float64) *Extension {
	sign := pos.Direction.Sign()

	// A cleared level switches sides, so search the combined level set.
	all := append(append([]models.Level(nil), snap.Supports...), snap.Resistances...)

	var level models.Level
	var ok bool
	if pos.Direction == models.Long {
		if !snap.BreakoutAboveResistance {
			return nil
		}
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

	return &Extension{
		TakeProfit: level.Price + sign*d.extATR*snap.ATR,
		Reason:     fmt.Sprintf("breakout past %.5f confirmed", level.Price),
	}
}

// strongTrendDetector rides an established strong trend.
type strongTrendDetector struct {
	factor         float64
	minConsistency float64
	minADX         float64
}

func (d *strongTrendDetector) Name() string { return "strong_trend" }

func (d *strongTrendDetector) Evaluate(pos *models.Position, snap *models.MarketSnapshot, cls models.RegimeClassification, currentTP float64) *Extension {
	if cls.Regime != models.StrongTrend || cls.Consistency <= d.minConsistency || snap.ADX <= d.minADX {
		return nil
	}
	return &Extension{
		TakeProfit: extend(currentTP, pos.EntryPrice, d.factor),
		Reason: fmt.Sprintf("strong trend continuation (adx %.1f, consistency %.2f)",
			snap.ADX, cls.Consistency),
	}
}

// momentumDetector fires when the latest close-to-close move accelerates
// past the prior one in the trade direction.
type momentumDetector struct {
	factor     float64
	accelRatio float64
}

func (d *momentumDetector) Name() string { return "momentum" }

func (d *momentumDetector) Evaluate(pos *models.Position, snap *models.MarketSnapshot, _ models.RegimeClassification, currentTP float64) *Extension {
	candles := snap.Candles
	if len(candles) < 3 {
		return nil
	}
	sign := pos.Direction.Sign()
	last := candles[len(candles)-1].Close - candles[len(candles)-2].Close
	prior := candles[len(candles)-2].Close - candles[len(candles)-3].Close

	if last*sign <= 0 || prior*sign <= 0 {
		return nil
	}
	if last*sign < d.accelRatio*prior*sign {
		return nil
	}

	return &Extension{
		TakeProfit: extend(currentTP, pos.EntryPrice, d.factor),
		Reason:     fmt.Sprintf("momentum acceleration %.2fx", last/prior),
	}
}

// volExpansionDetector extends on a favorable volatility expansion: ATR up
// sharply since the last evaluation while price moves with the position.
type volExpansionDetector struct {
	factor      float64
	expandRatio float64
}

func (d *volExpansionDetector) Name() string { return "volatility_expansion" }

func (d *volExpansionDetector) Evaluate(pos *models.Position, snap *models.MarketSnapshot, _ models.RegimeClassification, currentTP float64) *Extension {
	if pos.LastATR <= 0 {
		return nil
	}
	growth := (snap.ATR - pos.LastATR) / pos.LastATR
	if growth < d.expandRatio {
		return nil
	}
	if !lastMoveFavors(snap, pos.Direction) {
		return nil
	}
	return &Extension{
		TakeProfit: extend(currentTP, pos.EntryPrice, d.factor),
		Reason:     fmt.Sprintf("favorable volatility expansion (atr +%.0f%%)", growth*100),
	}
}

// patternDetector looks for at least three consecutive higher-highs and
// higher-lows (or lower-highs and lower-lows for shorts).
type patternDetector struct {
	factor float64
	bars   int
}

func (d *patternDetector) Name() string { return "continuation_pattern" }

func (d *patternDetector) Evaluate(pos *models.Position, snap *models.MarketSnapshot, _ models.RegimeClassification, currentTP float64) *Extension {
	candles := snap.Candles
	if len(candles) < d.bars+1 {
		return nil
	}
	recent := candles[len(candles)-d.bars-1:]
	for i := 1; i < len(recent); i++ {
		if pos.Direction == models.Long {
			if recent[i].High <= recent[i-1].High || recent[i].Low <= recent[i-1].Low {
				return nil
			}
		} else {
			if recent[i].High >= recent[i-1].High || recent[i].Low >= recent[i-1].Low {
				return nil
			}
		}
	}
	return &Extension{
		TakeProfit: extend(currentTP, pos.EntryPrice, d.factor),
		Reason:     fmt.Sprintf("%d-bar continuation pattern", d.bars),
	}
}

// srClearanceDetector retargets beyond a well-tested level on the tick where
// price first clears it by the configured fraction. Levels the price passed
// on earlier bars stay silent, so an old support far behind a profitable
// position cannot claim the tick over lower-priority detectors.
type srClearanceDetector struct {
	extATR   float64
	clearPct float64
	touchMin int
}

func (d *srClearanceDetector) Name() string { return "sr_clearance" }

func (d *srClearanceDetector) Evaluate(pos *models.Position, snap *models.MarketSnapshot, _ models.RegimeClassification, _ float64) *Extension {
	sign := pos.Direction.Sign()
	candles := snap.Candles
	if len(candles) < 2 {
		return nil
	}
	prevClose := candles[len(candles)-2].Close

	var cleared *models.Level
	levels := append(append([]models.Level(nil), snap.Supports...), snap.Resistances...)
	for i, lv := range levels {
		if lv.Touches < d.touchMin {
			continue
		}
		margin := lv.Price * d.clearPct
		// Past the level by the margin now, but not yet at the prior close.
		if (snap.Price-lv.Price)*sign < margin {
			continue
		}
		if (prevClose-lv.Price)*sign >= margin {
			continue
		}
		if cleared == nil || (lv.Price-cleared.Price)*sign > 0 {
			cleared = &levels[i]
		}
	}
	if cleared == nil {
		return nil
	}

	return &Extension{
		TakeProfit: cleared.Price + sign*d.extATR*snap.ATR,
		Reason:     fmt.Sprintf("tested level %.5f cleared", cleared.Price),
	}
}

// consistencyDetector extends when trend consistency crosses above the bar
// since the last evaluation.
type consistencyDetector struct {
	factor float64
	cross  float64
}

func (d *consistencyDetector) Name() string { return "consistency" }

func (d *consistencyDetector) Evaluate(pos *models.Position, _ *models.MarketSnapshot, cls models.RegimeClassification, currentTP float64) *Extension {
	if cls.Consistency < d.cross || pos.LastConsistency >= d.cross {
		return nil
	}
	return &Extension{
		TakeProfit: extend(currentTP, pos.EntryPrice, d.factor),
		Reason: fmt.Sprintf("trend consistency improved %.2f -> %.2f",
			pos.LastConsistency, cls.Consistency),
	}
}

func lastMoveFavors(snap *models.MarketSnapshot, dir models.Direction) bool {
	candles := snap.Candles
	if len(candles) < 2 {
		return false
	}
	move := candles[len(candles)-1].Close - candles[len(candles)-2].Close
	return move*dir.Sign() > 0
}

// defaultDetectors builds the seven detectors in priority order.
func defaultDetectors(cfg *config.Config) []Detector {
	return []Detector{
		&breakoutDetector{extATR: cfg.TPBreakoutExtATR},
		&strongTrendDetector{
			factor:         cfg.TPStrongTrendFactor,
			minConsistency: cfg.TPStrongConsistency,
			minADX:         cfg.TPStrongADX,
		},
		&momentumDetector{factor: cfg.TPMomentumFactor, accelRatio: cfg.TPMomentumRatio},
		&volExpansionDetector{factor: cfg.TPVolExpFactor, expandRatio: cfg.TPVolExpandRatio},
		&patternDetector{factor: cfg.TPPatternFactor, bars: 3},
		&srClearanceDetector{
			extATR:   cfg.TPSRClearExtATR,
			clearPct: cfg.TPSRClearPct,
			touchMin: cfg.SRClampTouchMin,
		},
		&consistencyDetector{factor: cfg.TPConsistencyFactor, cross: cfg.TPConsistencyCross},
	}
}
