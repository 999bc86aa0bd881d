package sizing

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/schundi365/IndianTradingbot-sub006/config"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

var (
	// ErrInsufficientMargin means not even the broker minimum lot can be
	// afforded within the margin cap.
	ErrInsufficientMargin = errors.New("insufficient margin")

	// ErrInvalidLotStep means the broker's lot constraints are malformed.
	ErrInvalidLotStep = errors.New("invalid lot constraints")
)

// LegOrder is one concrete order leg: a quantity and its take-profit price.
type LegOrder struct {
	Quantity   float64
	TakeProfit float64
}

// Sizer splits an admitted risk plan into broker-placeable legs.
type Sizer struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// New builds a sizer.
func New(cfg *config.Config) *Sizer {
	return &Sizer{
		cfg:    cfg,
		logger: log.With().Str("component", "sizer").Logger(),
	}
}

// Size computes the per-leg quantities for an admitted plan. Legs that round
// below the broker minimum are dropped without redistributing their
// allocation; the undeployed capital is logged as a warning.
func (s *Sizer) Size(plan *models.RiskPlan, account models.AccountState, lot models.LotConstraints) ([]LegOrder, error) {
	if lot.LotStep <= 0 || lot.MinLot <= 0 || lot.PipValue <= 0 || lot.ContractSize <= 0 {
		return nil, fmt.Errorf("%w: step=%v min=%v pip=%v contract=%v",
			ErrInvalidLotStep, lot.LotStep, lot.MinLot, lot.PipValue, lot.ContractSize)
	}

	slDistance := math.Abs(plan.EntryPrice - plan.StopLoss)
	if slDistance <= 0 {
		return nil, fmt.Errorf("%w: zero stop distance", ErrInvalidLotStep)
	}

	riskAmount := account.Equity * s.cfg.RiskPct / 100 * plan.RiskMultiplier
	totalQty := riskAmount / (slDistance * lot.PipValue * lot.ContractSize)

	// Cap estimated required margin at a fraction of free margin, reducing
	// the whole position proportionally when exceeded.
	if lot.MarginPerUnit > 0 {
		required := totalQty * lot.MarginPerUnit
		allowed := s.cfg.MarginUseCap * account.FreeMargin
		if required > allowed {
			if allowed <= 0 {
				return nil, fmt.Errorf("%w: no free margin", ErrInsufficientMargin)
			}
			totalQty *= allowed / required
			s.logger.Warn().
				Str("symbol", plan.Symbol).
				Float64("required_margin", required).
				Float64("allowed_margin", allowed).
				Msg("position reduced to fit margin cap")
		}
	}

	if totalQty < lot.MinLot {
		return nil, fmt.Errorf("%w: computed quantity %.4f below minimum lot %.4f",
			ErrInsufficientMargin, totalQty, lot.MinLot)
	}

	sign := plan.Direction.Sign()
	legs := make([]LegOrder, 0, len(plan.TPLadder))
	for _, rung := range plan.TPLadder {
		qty := floorToStep(totalQty*float64(rung.AllocationPct)/100, lot.LotStep)
		if qty < lot.MinLot {
			// Dropped allocation is intentionally not redistributed
			// across the surviving legs.
			s.logger.Warn().
				Str("symbol", plan.Symbol).
				Float64("ratio", rung.Ratio).
				Int("allocation_pct", rung.AllocationPct).
				Float64("rounded_qty", qty).
				Msg("leg below minimum lot, dropped")
			continue
		}
		legs = append(legs, LegOrder{
			Quantity:   qty,
			TakeProfit: plan.EntryPrice + sign*rung.Ratio*slDistance,
		})
	}

	if len(legs) == 0 {
		return nil, fmt.Errorf("%w: every leg rounds below minimum lot", ErrInsufficientMargin)
	}
	return legs, nil
}

func floorToStep(qty, step float64) float64 {
	steps := math.Floor(qty/step + 1e-9)
	return math.Round(steps*step*1e8) / 1e8
}
