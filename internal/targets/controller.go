package targets

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/schundi365/IndianTradingbot-sub006/config"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// Result is a validated take-profit extension ready for the broker.
type Result struct {
	LegID      string
	TakeProfit float64
	Reason     string
	Detector   string
}

// Controller re-evaluates one position's take-profit ladder per tick. Only
// the furthest open leg is ever extended, and only while it shows profit and
// the position still has extension budget.
type Controller struct {
	cfg       *config.Config
	detectors []Detector
	logger    zerolog.Logger
}

// NewController builds the controller with the default detector chain.
func NewController(cfg *config.Config) *Controller {
	return &Controller{
		cfg:       cfg,
		detectors: defaultDetectors(cfg),
		logger:    log.With().Str("component", "tp_controller").Logger(),
	}
}

// Evaluate returns the winning, validated extension, or nil for a no-op tick.
func (c *Controller) Evaluate(pos *models.Position, snap *models.MarketSnapshot, cls models.RegimeClassification) *Result {
	if pos.TPExtensions >= c.cfg.MaxTPExtensions {
		return nil
	}
	leg, ok := pos.FurthestOpenLeg()
	if !ok {
		return nil
	}
	// The leg must currently show unrealized profit.
	if pos.UnrealizedMove(snap.Price) < 0 {
		return nil
	}

	for _, det := range c.detectors {
		ext := det.Evaluate(pos, snap, cls, leg.TakeProfit)
		if ext == nil {
			continue
		}
		res := c.validate(pos, leg, det.Name(), ext)
		if res == nil {
			c.logger.Debug().
				Str("position", pos.ID).
				Str("detector", det.Name()).
				Float64("proposed", ext.TakeProfit).
				Msg("target proposal discarded by validation")
		}
		// First firing detector wins; the rest are not consulted.
		return res
	}
	return nil
}

// validate enforces the extension rules: strictly outward, a minimum
// increment, and a cap on how far a single step may reach.
func (c *Controller) validate(pos *models.Position, leg models.Leg, name string, ext *Extension) *Result {
	sign := pos.Direction.Sign()
	newTP := ext.TakeProfit

	// Extensions only move the target further in the profit direction.
	step := (newTP - leg.TakeProfit) * sign
	if step <= 0 {
		return nil
	}

	// Anti-chatter minimum increment.
	if step < c.cfg.TPMinIncrementPct*math.Abs(leg.TakeProfit) {
		return nil
	}

	// Cap a single step at the configured fraction of the current
	// entry-to-target distance.
	maxStep := c.cfg.TPMaxStepRatio * math.Abs(leg.TakeProfit-pos.EntryPrice)
	if step > maxStep {
		newTP = leg.TakeProfit + sign*maxStep
	}

	return &Result{
		LegID:      leg.ID,
		TakeProfit: newTP,
		Reason:     ext.Reason,
		Detector:   name,
	}
}
