package stops

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/schundi365/IndianTradingbot-sub006/config"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// Result is a validated stop-loss move ready for the broker.
type Result struct {
	StopLoss  float64
	Reason    string
	Detector  string
	SwingStop float64
}

// Controller re-evaluates one position's stop-loss per tick using the six
// detectors in priority order: the first detector that proposes a move wins
// and the rest are not consulted.
type Controller struct {
	cfg       *config.Config
	detectors []Detector
	logger    zerolog.Logger
}

// NewController builds the controller with the default detector chain.
// slMult resolves the per-regime stop multiplier from the planner's table.
func NewController(cfg *config.Config, slMult func(models.Regime) float64) *Controller {
	return &Controller{
		cfg:       cfg,
		detectors: defaultDetectors(cfg, slMult),
		logger:    log.With().Str("component", "sl_controller").Logger(),
	}
}

// Evaluate returns the winning, validated stop move, or nil for a no-op tick.
func (c *Controller) Evaluate(pos *models.Position, snap *models.MarketSnapshot, cls models.RegimeClassification) *Result {
	for _, det := range c.detectors {
		adj := det.Evaluate(pos, snap, cls)
		if adj == nil {
			continue
		}
		res := c.validate(pos, snap, cls, det.Name(), adj)
		if res == nil {
			c.logger.Debug().
				Str("position", pos.ID).
				Str("detector", det.Name()).
				Float64("proposed", adj.StopLoss).
				Msg("stop proposal discarded by safety validation")
		}
		// First firing detector wins whether or not validation keeps
		// its proposal; lower-priority detectors never override it.
		return res
	}
	return nil
}

// validate applies the safety rules: risk-monotonicity, the anti-chatter
// minimum move, and the never-cross-market-price clamp.
func (c *Controller) validate(pos *models.Position, snap *models.MarketSnapshot, cls models.RegimeClassification, name string, adj *Adjustment) *Result {
	sign := pos.Direction.Sign()
	newSL := adj.StopLoss

	// The stop may only move in the risk-reducing direction, unless a
	// volatility or trend-strength trigger fires under a strong trend, in
	// which case a genuine widen is allowed.
	widening := (newSL-pos.StopLoss)*sign < 0
	if widening {
		widenOK := (adj.Category == CategoryVolatility || adj.Category == CategoryTrendStrength) &&
			cls.Regime == models.StrongTrend
		if !widenOK {
			return nil
		}
	}

	// Anti-chatter: ignore sub-threshold moves.
	if math.Abs(newSL-pos.StopLoss) < c.cfg.SLMinMoveATR*snap.ATR {
		return nil
	}

	// The stop must stay on the loss side of the market price, otherwise
	// the broker would stop the position out immediately.
	if (snap.Price-newSL)*sign <= 0 {
		newSL = snap.Price - sign*c.cfg.SLPriceBufferATR*snap.ATR
	}

	return &Result{
		StopLoss:  newSL,
		Reason:    adj.Reason,
		Detector:  name,
		SwingStop: adj.SwingStop,
	}
}
