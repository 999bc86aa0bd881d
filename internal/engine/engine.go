// Package engine runs the reconciliation loop: one worker per symbol, each
// re-evaluating its open positions against fresh market data on a fixed
// interval. Workers never share positions, so evaluation needs no locking
// beyond the ledger's own.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/schundi365/IndianTradingbot-sub006/config"
	"github.com/schundi365/IndianTradingbot-sub006/internal/broker"
	"github.com/schundi365/IndianTradingbot-sub006/internal/events"
	"github.com/schundi365/IndianTradingbot-sub006/internal/ledger"
	"github.com/schundi365/IndianTradingbot-sub006/internal/plan"
	"github.com/schundi365/IndianTradingbot-sub006/internal/regime"
	"github.com/schundi365/IndianTradingbot-sub006/internal/signal"
	"github.com/schundi365/IndianTradingbot-sub006/internal/sizing"
	"github.com/schundi365/IndianTradingbot-sub006/internal/stops"
	"github.com/schundi365/IndianTradingbot-sub006/internal/targets"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// Clock abstracts time so the loop can be driven manually in tests.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) (<-chan time.Time, func())
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Ticker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Engine owns the full position lifecycle: signal admission, order
// placement, per-tick stop and target management, and close detection.
type Engine struct {
	cfg        *config.Config
	broker     broker.Adapter
	classifier *regime.Classifier
	planner    *plan.Planner
	sizer      *sizing.Sizer
	ledger     *ledger.Ledger
	slCtl      *stops.Controller
	tpCtl      *targets.Controller
	sink       events.Sink
	clock      Clock
	logger     zerolog.Logger

	lossMu sync.Mutex
	losses map[string]int
}

// New wires the engine. A nil clock selects the wall clock.
func New(cfg *config.Config, adapter broker.Adapter, sink events.Sink, clock Clock) (*Engine, error) {
	planner, err := plan.New(cfg)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = realClock{}
	}
	if sink == nil {
		sink = events.NewLogSink()
	}
	return &Engine{
		cfg:        cfg,
		broker:     adapter,
		classifier: regime.New(cfg),
		planner:    planner,
		sizer:      sizing.New(cfg),
		ledger:     ledger.New(),
		slCtl:      stops.NewController(cfg, func(r models.Regime) float64 { return planner.Params(r).SLMult }),
		tpCtl:      targets.NewController(cfg),
		sink:       sink,
		clock:      clock,
		logger:     log.With().Str("component", "engine").Logger(),
	}, nil
}

// Ledger exposes the position ledger for inspection.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Run starts one worker per configured symbol plus the signal consumer and
// blocks until ctx is cancelled and all workers have drained.
func (e *Engine) Run(ctx context.Context, signals signal.Source) error {
	var wg sync.WaitGroup
	for _, symbol := range e.cfg.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			e.runWorker(ctx, symbol)
		}(symbol)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.consumeSignals(ctx, signals)
	}()

	wg.Wait()
	return ctx.Err()
}

func (e *Engine) consumeSignals(ctx context.Context, signals signal.Source) {
	if signals == nil {
		return
	}
	for {
		sig, ok, err := signals.Next(ctx)
		if err != nil || !ok {
			return
		}
		if err := e.HandleSignal(ctx, sig); err != nil {
			e.logger.Error().Err(err).Str("symbol", sig.Symbol).Msg("signal handling failed")
		}
	}
}

// HandleSignal runs the admission pipeline for one entry signal: classify,
// plan, size, place, record. Rejections are events, not errors.
func (e *Engine) HandleSignal(ctx context.Context, sig models.Signal) error {
	snap, err := e.broker.GetSnapshot(ctx, sig.Symbol, e.cfg.SnapshotLookback)
	if err != nil {
		return err
	}
	cls := e.classifier.Classify(snap)

	riskPlan := e.planner.Plan(plan.Request{
		Snapshot:          snap,
		Classification:    cls,
		Direction:         sig.Direction,
		BaseConfidence:    sig.BaseConfidence,
		ConsecutiveLosses: e.consecutiveLosses(sig.Symbol),
	})
	if !riskPlan.Admitted {
		e.emit(events.Event{
			Type:   events.PlanRejected,
			Symbol: sig.Symbol,
			Reason: riskPlan.RejectionReason,
		})
		return nil
	}

	account, err := e.broker.GetAccountState(ctx)
	if err != nil {
		return err
	}
	constraints, err := e.broker.GetLotConstraints(ctx, sig.Symbol)
	if err != nil {
		return err
	}

	legs, err := e.sizer.Size(&riskPlan, account, constraints)
	if err != nil {
		e.emit(events.Event{
			Type:   events.PlanRejected,
			Symbol: sig.Symbol,
			Reason: err.Error(),
		})
		return err
	}

	if e.cfg.DryRun {
		e.logger.Info().
			Str("symbol", sig.Symbol).
			Int("legs", len(legs)).
			Float64("stop_loss", riskPlan.StopLoss).
			Msg("dry run: skipping order placement")
		return nil
	}

	requests := make([]broker.LegRequest, len(legs))
	for i, leg := range legs {
		requests[i] = broker.LegRequest{
			Quantity:   leg.Quantity,
			StopLoss:   riskPlan.StopLoss,
			TakeProfit: leg.TakeProfit,
		}
	}
	orderIDs, err := e.broker.PlaceLegs(ctx, sig.Symbol, sig.Direction, requests)
	if err != nil {
		e.emit(events.Event{
			Type:   events.ModifyFailure,
			Symbol: sig.Symbol,
			Reason: err.Error(),
		})
		return err
	}

	pos := e.ledger.Create(&riskPlan, legs, orderIDs, e.clock.Now())
	if err := e.ledger.SetMonitoring(pos.ID); err != nil {
		return err
	}
	e.emit(events.Event{
		Type:       events.PlanAdmitted,
		Symbol:     sig.Symbol,
		PositionID: pos.ID,
		New:        riskPlan.Confidence,
	})
	return nil
}

// tickInterval is the worker cadence: the intervals are independent, so the
// loop runs at the faster of the two and gates each evaluation separately.
func (e *Engine) tickInterval() time.Duration {
	if e.cfg.TPCheckInterval < e.cfg.SLCheckInterval {
		return e.cfg.TPCheckInterval
	}
	return e.cfg.SLCheckInterval
}

func (e *Engine) runWorker(ctx context.Context, symbol string) {
	logger := e.logger.With().Str("symbol", symbol).Logger()
	ticks, stop := e.clock.Ticker(e.tickInterval())
	defer stop()

	dataFailures := 0
	start := e.clock.Now()
	lastSLCheck := start
	lastTPCheck := start

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}

		snap, err := e.broker.GetSnapshot(ctx, symbol, e.cfg.SnapshotLookback)
		if err != nil {
			if errors.Is(err, broker.ErrDataUnavailable) {
				dataFailures++
				if dataFailures == e.cfg.DegradedTickLimit {
					e.emit(events.Event{Type: events.DegradedHealth, Symbol: symbol})
				}
				logger.Warn().Int("consecutive", dataFailures).Msg("market data unavailable, skipping tick")
			} else {
				logger.Error().Err(err).Msg("snapshot failed, skipping tick")
			}
			continue
		}
		dataFailures = 0

		now := e.clock.Now()
		evalSL := now.Sub(lastSLCheck) >= e.cfg.SLCheckInterval
		if evalSL {
			lastSLCheck = now
		}
		evalTP := now.Sub(lastTPCheck) >= e.cfg.TPCheckInterval
		if evalTP {
			lastTPCheck = now
		}
		e.Tick(ctx, symbol, snap, evalSL, evalTP)
	}
}

// Tick reconciles and re-evaluates every open position for one symbol
// against one snapshot. Reconciliation runs every tick; the stop and target
// controllers run only when their interval has elapsed. Exposed so the loop
// can be driven from outside.
func (e *Engine) Tick(ctx context.Context, symbol string, snap *models.MarketSnapshot, evalSL, evalTP bool) {
	positions := e.ledger.BySymbol(symbol)
	if len(positions) == 0 {
		return
	}

	liveOrders, err := e.broker.ListOpenPositions(ctx)
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", symbol).Msg("open position listing failed, skipping tick")
		return
	}

	cls := e.classifier.Classify(snap)

	for _, pos := range positions {
		reconciled, justClosed, err := e.ledger.Reconcile(pos.ID, liveOrders, e.clock.Now())
		if err != nil {
			continue
		}
		if justClosed {
			e.recordClose(&reconciled, snap.Price)
			e.ledger.Remove(reconciled.ID)
			continue
		}
		if reconciled.State == models.PositionOpened {
			// Placement not yet acknowledged; evaluate next tick.
			continue
		}

		if evalSL {
			e.evaluateStop(ctx, &reconciled, snap, cls)
		}
		if evalTP {
			e.evaluateTarget(ctx, &reconciled, snap, cls)
		}
	}
}

func (e *Engine) evaluateStop(ctx context.Context, pos *models.Position, snap *models.MarketSnapshot, cls models.RegimeClassification) {
	res := e.slCtl.Evaluate(pos, snap, cls)
	defer func() {
		swing := 0.0
		if res != nil {
			swing = res.SwingStop
		}
		_ = e.ledger.UpdateEvalState(pos.ID, cls.VolatilityRatio, snap.ADX, cls.Consistency, snap.ATR, swing)
	}()
	if res == nil {
		return
	}

	// The stop is shared by every open leg; all broker modifies must land
	// before the ledger records the move.
	for _, leg := range pos.OpenLegs() {
		if err := e.broker.ModifyStopLoss(ctx, leg.OrderID, res.StopLoss); err != nil {
			e.emit(events.Event{
				Type:       events.ModifyFailure,
				Symbol:     pos.Symbol,
				PositionID: pos.ID,
				LegID:      leg.ID,
				Old:        pos.StopLoss,
				New:        res.StopLoss,
				Reason:     err.Error(),
			})
			return
		}
	}

	if err := e.ledger.ApplyStopLoss(pos.ID, res.StopLoss, res.Reason); err != nil {
		return
	}
	e.emit(events.Event{
		Type:       events.SLAdjusted,
		Symbol:     pos.Symbol,
		PositionID: pos.ID,
		Old:        pos.StopLoss,
		New:        res.StopLoss,
		Reason:     res.Reason,
	})
}

func (e *Engine) evaluateTarget(ctx context.Context, pos *models.Position, snap *models.MarketSnapshot, cls models.RegimeClassification) {
	res := e.tpCtl.Evaluate(pos, snap, cls)
	if res == nil {
		return
	}
	e.applyTarget(ctx, pos, res)
}

func (e *Engine) applyTarget(ctx context.Context, pos *models.Position, res *targets.Result) {
	var leg *models.Leg
	for i := range pos.Legs {
		if pos.Legs[i].ID == res.LegID {
			leg = &pos.Legs[i]
			break
		}
	}
	if leg == nil {
		e.logger.Error().
			Str("position", pos.ID).
			Str("leg", res.LegID).
			Msg("target refers to an unknown leg, dropping extension")
		return
	}

	if err := e.broker.ModifyTakeProfit(ctx, leg.OrderID, res.TakeProfit); err != nil {
		e.emit(events.Event{
			Type:       events.ModifyFailure,
			Symbol:     pos.Symbol,
			PositionID: pos.ID,
			LegID:      leg.ID,
			Old:        leg.TakeProfit,
			New:        res.TakeProfit,
			Reason:     err.Error(),
		})
		return
	}

	if err := e.ledger.ApplyTakeProfit(pos.ID, res.LegID, res.TakeProfit, res.Reason); err != nil {
		return
	}
	e.emit(events.Event{
		Type:       events.TPExtended,
		Symbol:     pos.Symbol,
		PositionID: pos.ID,
		LegID:      leg.ID,
		Old:        leg.TakeProfit,
		New:        res.TakeProfit,
		Reason:     res.Reason,
	})
}

// recordClose emits the close event and tracks the consecutive-loss streak
// used to throttle subsequent entries on the same symbol.
func (e *Engine) recordClose(pos *models.Position, price float64) {
	loss := pos.UnrealizedMove(price) < 0

	e.lossMu.Lock()
	if e.losses == nil {
		e.losses = make(map[string]int)
	}
	if loss {
		e.losses[pos.Symbol]++
	} else {
		e.losses[pos.Symbol] = 0
	}
	streak := e.losses[pos.Symbol]
	e.lossMu.Unlock()

	e.logger.Info().
		Str("symbol", pos.Symbol).
		Str("position", pos.ID).
		Bool("loss", loss).
		Int("loss_streak", streak).
		Msg("position fully closed")
	e.emit(events.Event{
		Type:       events.PositionClosed,
		Symbol:     pos.Symbol,
		PositionID: pos.ID,
		New:        price,
	})
}

func (e *Engine) consecutiveLosses(symbol string) int {
	e.lossMu.Lock()
	defer e.lossMu.Unlock()
	return e.losses[symbol]
}

func (e *Engine) emit(ev events.Event) {
	if ev.Time.IsZero() {
		ev.Time = e.clock.Now()
	}
	e.sink.Emit(ev)
}
