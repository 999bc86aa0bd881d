package plan

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/schundi365/IndianTradingbot-sub006/config"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// RegimeParams are the per-regime entry parameters: stop distance in ATR
// multiples and the take-profit ladder with capital allocation.
type RegimeParams struct {
	SLMult float64
	Ladder []models.TPLevel
}

// Planner turns a signal plus a regime classification into a RiskPlan.
type Planner struct {
	cfg    *config.Config
	params map[models.Regime]RegimeParams
}

// Request carries everything the planner needs for one signal.
type Request struct {
	Snapshot          *models.MarketSnapshot
	Classification    models.RegimeClassification
	Direction         models.Direction
	BaseConfidence    float64
	ConsecutiveLosses int
}

// New builds a planner, parsing the per-regime ladder definitions from
// configuration. Malformed ladders are a startup error.
func New(cfg *config.Config) (*Planner, error) {
	params := map[models.Regime]struct {
		mult   float64
		ladder string
	}{
		models.StrongTrend: {cfg.SLMultStrongTrend, cfg.LadderStrongTrend},
		models.WeakTrend:   {cfg.SLMultWeakTrend, cfg.LadderWeakTrend},
		models.Volatile:    {cfg.SLMultVolatile, cfg.LadderVolatile},
		models.Ranging:     {cfg.SLMultRanging, cfg.LadderRanging},
	}

	parsed := make(map[models.Regime]RegimeParams, len(params))
	for regime, p := range params {
		ladder, err := ParseLadder(p.ladder)
		if err != nil {
			return nil, fmt.Errorf("ladder for %s: %w", regime, err)
		}
		parsed[regime] = RegimeParams{SLMult: p.mult, Ladder: ladder}
	}

	return &Planner{cfg: cfg, params: parsed}, nil
}

// Params returns the entry parameters for a regime.
func (p *Planner) Params(regime models.Regime) RegimeParams {
	return p.params[regime]
}

// Plan produces the risk plan for one signal. The plan is stateless: it is
// created per signal and discarded.
func (p *Planner) Plan(req Request) models.RiskPlan {
	snap := req.Snapshot
	cls := req.Classification
	params := p.params[cls.Regime]
	sign := req.Direction.Sign()

	entry := snap.Price
	stop := entry - sign*snap.ATR*params.SLMult
	stop = p.clampStopToLevel(stop, entry, sign, snap)

	confidence, rejection := p.confidence(req)

	plan := models.RiskPlan{
		Symbol:         snap.Symbol,
		Direction:      req.Direction,
		EntryPrice:     entry,
		StopLoss:       stop,
		TPLadder:       params.Ladder,
		Confidence:     confidence,
		RiskMultiplier: p.riskMultiplier(confidence, cls.Regime, req.ConsecutiveLosses),
	}

	if confidence >= p.cfg.MinTradeConfidence {
		plan.Admitted = true
	} else {
		if rejection == "" {
			rejection = fmt.Sprintf("confidence %.2f below minimum %.2f", confidence, p.cfg.MinTradeConfidence)
		}
		plan.RejectionReason = rejection
	}

	return plan
}

// clampStopToLevel widens the stop beyond a nearby tested support (Long) or
// resistance (Short). The level-derived stop is only used when it is further
// from entry than the regime-derived one, never tighter.
func (p *Planner) clampStopToLevel(stop, entry, sign float64, snap *models.MarketSnapshot) float64 {
	var level models.Level
	var ok bool
	if sign > 0 {
		level, ok = snap.NearestSupport()
	} else {
		level, ok = snap.NearestResistance()
	}
	if !ok || level.Touches < p.cfg.SRClampTouchMin {
		return stop
	}
	if math.Abs(entry-level.Price) > p.cfg.SRClampProximity*snap.ATR {
		return stop
	}

	levelStop := level.Price - sign*p.cfg.SRClampBuffer*snap.ATR
	if sign > 0 && levelStop < stop {
		return levelStop
	}
	if sign < 0 && levelStop > stop {
		return levelStop
	}
	return stop
}

// confidence applies the additive adjustments to the base confidence and
// reports the first penalizing clause for observability.
func (p *Planner) confidence(req Request) (float64, string) {
	snap := req.Snapshot
	cls := req.Classification
	sign := req.Direction.Sign()
	conf := req.BaseConfidence
	reason := ""

	trend := trendDirection(snap)
	switch {
	case trend == 0:
		// No MA information: neither bonus nor penalty.
	case trend == sign:
		conf += p.cfg.ConfTrendAligned
	default:
		conf -= p.cfg.ConfCounterTrend
		if reason == "" {
			reason = "signal against prevailing trend"
		}
	}

	if cls.Regime == models.StrongTrend {
		conf += p.cfg.ConfStrongTrend
	}
	if cls.Regime == models.Ranging {
		conf -= p.cfg.ConfRangingPenalty
		if reason == "" {
			reason = "ranging market"
		}
	}

	if beyondBothMAs(snap, sign) {
		conf += p.cfg.ConfBeyondMAs
	}
	if priceActionAgrees(snap, req.Direction) {
		conf += p.cfg.ConfPriceAction
	}
	if nearOpposingLevel(snap, sign, p.cfg.SRClampProximity) {
		conf -= p.cfg.ConfOpposingSR
		if reason == "" {
			reason = "opposing support/resistance within reach"
		}
	}

	return clamp(conf, 0, 1), reason
}

func (p *Planner) riskMultiplier(confidence float64, regime models.Regime, losses int) float64 {
	mult := 1.0
	if confidence >= p.cfg.HighConfidenceBar && regime == models.StrongTrend {
		mult *= p.cfg.HighConfidenceBoost
	}
	if regime == models.Volatile {
		mult *= p.cfg.VolatileRiskCut
	}
	if regime == models.Ranging {
		mult *= p.cfg.RangingRiskCut
	}
	if losses >= p.cfg.LossStreakThreshold {
		mult *= p.cfg.LossStreakCut
	}
	return clamp(mult, p.cfg.MinRiskMult, p.cfg.MaxRiskMult)
}

// trendDirection is +1 when the fast MA sits above the slow MA, -1 when
// below, 0 when either is missing.
func trendDirection(snap *models.MarketSnapshot) float64 {
	if snap.FastMA == 0 || snap.SlowMA == 0 {
		return 0
	}
	switch {
	case snap.FastMA > snap.SlowMA:
		return 1
	case snap.FastMA < snap.SlowMA:
		return -1
	}
	return 0
}

func beyondBothMAs(snap *models.MarketSnapshot, sign float64) bool {
	if snap.FastMA == 0 || snap.SlowMA == 0 {
		return false
	}
	if sign > 0 {
		return snap.Price > snap.FastMA && snap.Price > snap.SlowMA
	}
	return snap.Price < snap.FastMA && snap.Price < snap.SlowMA
}

func priceActionAgrees(snap *models.MarketSnapshot, dir models.Direction) bool {
	if dir == models.Long {
		return (snap.HigherHighs && snap.HigherLows) || snap.BreakoutAboveResistance
	}
	return (snap.LowerHighs && snap.LowerLows) || snap.BreakdownBelowSupport
}

func nearOpposingLevel(snap *models.MarketSnapshot, sign float64, proximityATR float64) bool {
	if snap.ATR <= 0 {
		return false
	}
	var level models.Level
	var ok bool
	if sign > 0 {
		level, ok = snap.NearestResistance()
	} else {
		level, ok = snap.NearestSupport()
	}
	return ok && math.Abs(level.Price-snap.Price) <= proximityATR*snap.ATR
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParseLadder parses a "ratio:pct,ratio:pct,..." ladder definition. Ratios
// must be strictly increasing and the allocations must sum to 100.
func ParseLadder(s string) ([]models.TPLevel, error) {
	parts := strings.Split(s, ",")
	ladder := make([]models.TPLevel, 0, len(parts))
	sum := 0
	prev := 0.0

	for _, part := range parts {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed rung %q", part)
		}
		ratio, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("rung ratio %q: %w", fields[0], err)
		}
		pct, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("rung allocation %q: %w", fields[1], err)
		}
		if ratio <= prev {
			return nil, fmt.Errorf("ratios must be strictly increasing, got %.2f after %.2f", ratio, prev)
		}
		prev = ratio
		sum += pct
		ladder = append(ladder, models.TPLevel{Ratio: ratio, AllocationPct: pct})
	}

	if sum != 100 {
		return nil, fmt.Errorf("allocations sum to %d, want 100", sum)
	}
	return ladder, nil
}
