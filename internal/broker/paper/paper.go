// Package paper is an in-memory execution backend used for dry runs and
// tests. Orders never touch a real terminal; stop-loss and take-profit fills
// are simulated against the latest candle.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schundi365/IndianTradingbot-sub006/internal/broker"
	"github.com/schundi365/IndianTradingbot-sub006/internal/snapshot"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

type order struct {
	id         string
	symbol     string
	direction  models.Direction
	quantity   float64
	stopLoss   float64
	takeProfit float64
	open       bool
}

// Broker simulates the adapter surface over seeded candle history.
type Broker struct {
	mu      sync.Mutex
	candles map[string][]models.Candle
	cursor  map[string]int
	orders  map[string]*order
	account models.AccountState
	lots    models.LotConstraints
	periods snapshot.Periods
}

// New builds a paper broker with the given account and lot constraints.
func New(account models.AccountState, lots models.LotConstraints) *Broker {
	return &Broker{
		candles: make(map[string][]models.Candle),
		cursor:  make(map[string]int),
		orders:  make(map[string]*order),
		account: account,
		lots:    lots,
		periods: snapshot.DefaultPeriods(),
	}
}

func (b *Broker) Name() string { return "paper" }

// SeedCandles loads the candle history a symbol will replay. The cursor
// starts at the end of the window; Advance moves it forward bar by bar.
func (b *Broker) SeedCandles(symbol string, candles []models.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.candles[symbol] = candles
	b.cursor[symbol] = len(candles)
}

// Append adds one candle and advances the replay cursor, then sweeps open
// orders for simulated stop or target fills.
func (b *Broker) Append(symbol string, candle models.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.candles[symbol] = append(b.candles[symbol], candle)
	b.cursor[symbol] = len(b.candles[symbol])
	b.sweepFills(symbol, candle)
}

func (b *Broker) sweepFills(symbol string, candle models.Candle) {
	for _, o := range b.orders {
		if !o.open || o.symbol != symbol {
			continue
		}
		if o.direction == models.Long {
			if candle.Low <= o.stopLoss || candle.High >= o.takeProfit {
				o.open = false
			}
		} else {
			if candle.High >= o.stopLoss || candle.Low <= o.takeProfit {
				o.open = false
			}
		}
	}
}

func (b *Broker) GetSnapshot(_ context.Context, symbol string, lookback int) (*models.MarketSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	all, ok := b.candles[symbol]
	if !ok || len(all) == 0 {
		return nil, fmt.Errorf("%w: no candles for %s", broker.ErrDataUnavailable, symbol)
	}
	end := b.cursor[symbol]
	start := end - lookback
	if start < 0 {
		start = 0
	}
	window := all[start:end]
	return snapshot.Build(symbol, window, b.periods, time.Now().UTC()), nil
}

func (b *Broker) GetAccountState(context.Context) (models.AccountState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account, nil
}

func (b *Broker) GetLotConstraints(_ context.Context, _ string) (models.LotConstraints, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lots, nil
}

func (b *Broker) PlaceLegs(_ context.Context, symbol string, direction models.Direction, legs []broker.LegRequest) ([]string, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("%w: no legs", broker.ErrOrderRejected)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(legs))
	for _, leg := range legs {
		if leg.Quantity <= 0 {
			return nil, fmt.Errorf("%w: non-positive quantity", broker.ErrOrderRejected)
		}
		o := &order{
			id:         uuid.NewString(),
			symbol:     symbol,
			direction:  direction,
			quantity:   leg.Quantity,
			stopLoss:   leg.StopLoss,
			takeProfit: leg.TakeProfit,
			open:       true,
		}
		b.orders[o.id] = o
		ids = append(ids, o.id)
	}
	return ids, nil
}

func (b *Broker) ModifyStopLoss(_ context.Context, orderID string, newSL float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok || !o.open {
		return fmt.Errorf("%w: unknown or closed order %s", broker.ErrModifyFailed, orderID)
	}
	o.stopLoss = newSL
	return nil
}

func (b *Broker) ModifyTakeProfit(_ context.Context, orderID string, newTP float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok || !o.open {
		return fmt.Errorf("%w: unknown or closed order %s", broker.ErrModifyFailed, orderID)
	}
	o.takeProfit = newTP
	return nil
}

func (b *Broker) ListOpenPositions(context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []string
	for id, o := range b.orders {
		if o.open {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
