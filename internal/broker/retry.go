package broker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// Retrying wraps an Adapter with bounded exponential backoff on mutating
// calls and a shared rate limiter that spaces out sequential broker calls,
// which some broker connections need to stay stable.
//
// Read calls (snapshot, account, positions) are not retried: a failed
// snapshot means the tick is skipped and the next interval tries again.
type Retrying struct {
	inner    Adapter
	attempts uint64
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// NewRetrying builds the wrapper. callDelay is the minimum spacing between
// consecutive calls; attempts is the total try count for mutating calls.
func NewRetrying(inner Adapter, attempts int, callDelay time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{
		inner:    inner,
		attempts: uint64(attempts),
		limiter:  rate.NewLimiter(rate.Every(callDelay), 1),
		logger:   log.With().Str("component", "broker_retry").Str("broker", inner.Name()).Logger(),
	}
}

func (r *Retrying) Name() string { return r.inner.Name() }

func (r *Retrying) GetSnapshot(ctx context.Context, symbol string, lookback int) (*models.MarketSnapshot, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.GetSnapshot(ctx, symbol, lookback)
}

func (r *Retrying) GetAccountState(ctx context.Context) (models.AccountState, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return models.AccountState{}, err
	}
	return r.inner.GetAccountState(ctx)
}

func (r *Retrying) GetLotConstraints(ctx context.Context, symbol string) (models.LotConstraints, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return models.LotConstraints{}, err
	}
	return r.inner.GetLotConstraints(ctx, symbol)
}

func (r *Retrying) ListOpenPositions(ctx context.Context) ([]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.ListOpenPositions(ctx)
}

func (r *Retrying) PlaceLegs(ctx context.Context, symbol string, direction models.Direction, legs []LegRequest) ([]string, error) {
	var ids []string
	err := r.retry(ctx, "place_legs", func() error {
		var err error
		ids, err = r.inner.PlaceLegs(ctx, symbol, direction, legs)
		return err
	})
	return ids, err
}

func (r *Retrying) ModifyStopLoss(ctx context.Context, orderID string, newSL float64) error {
	return r.retry(ctx, "modify_stop_loss", func() error {
		return r.inner.ModifyStopLoss(ctx, orderID, newSL)
	})
}

func (r *Retrying) ModifyTakeProfit(ctx context.Context, orderID string, newTP float64) error {
	return r.retry(ctx, "modify_take_profit", func() error {
		return r.inner.ModifyTakeProfit(ctx, orderID, newTP)
	})
}

func (r *Retrying) retry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	wrapped := func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		err := fn()
		if err != nil {
			r.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("broker call failed")
		}
		return err
	}

	strategy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.attempts-1), ctx)
	return backoff.Retry(wrapped, strategy)
}
