package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schundi365/IndianTradingbot-sub006/internal/broker"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Broker {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second)
}

func TestGetSnapshotPassthrough(t *testing.T) {
	b := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/snapshot", r.URL.Path)
		assert.Equal(t, "XAUUSD", r.URL.Query().Get("symbol"))
		assert.Equal(t, "100", r.URL.Query().Get("lookback"))
		json.NewEncoder(w).Encode(models.MarketSnapshot{
			Symbol: "XAUUSD",
			Price:  2700,
			ATR:    10,
			ADX:    30,
		})
	})

	snap, err := b.GetSnapshot(context.Background(), "XAUUSD", 100)
	require.NoError(t, err)
	assert.Equal(t, 2700.0, snap.Price)
	assert.Equal(t, 10.0, snap.ATR)
}

func TestGetSnapshotComputesIndicatorsFromRawCandles(t *testing.T) {
	candles := make([]models.Candle, 100)
	for i := range candles {
		c := 2650 + float64(i)
		candles[i] = models.Candle{Open: c - 0.5, High: c + 1, Low: c - 1, Close: c}
	}
	b := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.MarketSnapshot{
			Symbol:  "XAUUSD",
			Candles: candles,
			Spread:  0.3,
		})
	})

	snap, err := b.GetSnapshot(context.Background(), "XAUUSD", 100)
	require.NoError(t, err)
	assert.InDelta(t, 2749.0, snap.Price, 1e-9)
	assert.Greater(t, snap.ATR, 0.0)
	assert.Equal(t, 0.3, snap.Spread)
}

func TestPlaceLegsRoundTrip(t *testing.T) {
	b := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		var payload struct {
			Symbol    string              `json:"symbol"`
			Direction models.Direction    `json:"direction"`
			Legs      []broker.LegRequest `json:"legs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "XAUUSD", payload.Symbol)
		assert.Equal(t, models.Long, payload.Direction)
		require.Len(t, payload.Legs, 2)

		json.NewEncoder(w).Encode(map[string][]string{"order_ids": {"o1", "o2"}})
	})

	ids, err := b.PlaceLegs(context.Background(), "XAUUSD", models.Long, []broker.LegRequest{
		{Quantity: 0.02, StopLoss: 2680, TakeProfit: 2730},
		{Quantity: 0.03, StopLoss: 2680, TakeProfit: 2800},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "o2"}, ids)
}

func TestPlaceLegsRejectsPartialFills(t *testing.T) {
	b := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]string{"order_ids": {"o1"}})
	})

	_, err := b.PlaceLegs(context.Background(), "XAUUSD", models.Long, []broker.LegRequest{
		{Quantity: 0.02}, {Quantity: 0.03},
	})
	assert.ErrorIs(t, err, broker.ErrOrderRejected)
}

func TestModifyAttemptsBoundedByRetryWrapper(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	// The wrapper owns the retry policy; the HTTP client underneath must
	// not add a second layer of attempts.
	b := broker.NewRetrying(New(srv.URL, time.Second), 3, 0)

	err := b.ModifyStopLoss(context.Background(), "o1", 2690)
	assert.ErrorIs(t, err, broker.ErrModifyFailed)
	assert.Equal(t, 3, attempts)
}

func TestModifyAndListEndpoints(t *testing.T) {
	var gotSL, gotTP map[string]any
	b := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/modify_sl":
			json.NewDecoder(r.Body).Decode(&gotSL)
			w.WriteHeader(http.StatusOK)
		case "/modify_tp":
			json.NewDecoder(r.Body).Decode(&gotTP)
			w.WriteHeader(http.StatusOK)
		case "/positions":
			json.NewEncoder(w).Encode(map[string][]string{"order_ids": {"o1", "o2"}})
		case "/account":
			json.NewEncoder(w).Encode(models.AccountState{Equity: 50_000, FreeMargin: 40_000})
		case "/constraints":
			json.NewEncoder(w).Encode(models.LotConstraints{MinLot: 0.01, LotStep: 0.01, PipValue: 1, ContractSize: 100})
		default:
			http.NotFound(w, r)
		}
	})

	require.NoError(t, b.ModifyStopLoss(context.Background(), "o1", 2690))
	assert.Equal(t, "o1", gotSL["order_id"])
	assert.Equal(t, 2690.0, gotSL["stop_loss"])

	require.NoError(t, b.ModifyTakeProfit(context.Background(), "o2", 2820))
	assert.Equal(t, 2820.0, gotTP["take_profit"])

	open, err := b.ListOpenPositions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "o2"}, open)

	acct, err := b.GetAccountState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50_000.0, acct.Equity)

	lots, err := b.GetLotConstraints(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, 100.0, lots.ContractSize)
}
