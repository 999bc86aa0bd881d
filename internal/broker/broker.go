package broker

import (
	"context"
	"errors"

	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// Error taxonomy. Callers branch with errors.Is; none of these is fatal to a
// worker.
var (
	// ErrDataUnavailable means the snapshot fetch failed; the caller skips
	// the tick and retries on the next interval.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrOrderRejected means the broker refused an order placement.
	ErrOrderRejected = errors.New("order rejected")

	// ErrModifyFailed means a stop-loss or take-profit modification failed.
	ErrModifyFailed = errors.New("modify failed")
)

// LegRequest is one leg of a split order to place.
type LegRequest struct {
	Quantity   float64 `json:"quantity"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// Adapter is the surface the engine needs from an execution backend (MT5
// bridge, paper, ...). All calls are blocking I/O and run on the calling
// worker's goroutine.
type Adapter interface {
	Name() string
	GetSnapshot(ctx context.Context, symbol string, lookback int) (*models.MarketSnapshot, error)
	GetAccountState(ctx context.Context) (models.AccountState, error)
	GetLotConstraints(ctx context.Context, symbol string) (models.LotConstraints, error)
	PlaceLegs(ctx context.Context, symbol string, direction models.Direction, legs []LegRequest) ([]string, error)
	ModifyStopLoss(ctx context.Context, orderID string, newSL float64) error
	ModifyTakeProfit(ctx context.Context, orderID string, newTP float64) error
	ListOpenPositions(ctx context.Context) ([]string, error)
}
