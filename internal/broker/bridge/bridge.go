// Package bridge talks to the terminal sidecar over HTTP. The sidecar owns
// the actual MT5/Kite session; this adapter only moves JSON.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/schundi365/IndianTradingbot-sub006/internal/broker"
	platformhttp "github.com/schundi365/IndianTradingbot-sub006/internal/platform/http"
	"github.com/schundi365/IndianTradingbot-sub006/internal/snapshot"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

// Broker is the HTTP adapter for the terminal sidecar.
type Broker struct {
	base   string
	client *platformhttp.Client
	logger zerolog.Logger
}

// New builds a bridge adapter for the given base URL. The adapter runs
// behind broker.Retrying, which owns the retry policy, so the HTTP client
// gets one attempt per call.
func New(baseURL string, timeout time.Duration) *Broker {
	return &Broker{
		base: baseURL,
		client: platformhttp.NewClient(platformhttp.ClientOptions{
			Timeout: timeout,
		}),
		logger: log.With().Str("component", "bridge_broker").Logger(),
	}
}

func (b *Broker) Name() string { return "bridge" }

func (b *Broker) GetSnapshot(ctx context.Context, symbol string, lookback int) (*models.MarketSnapshot, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("lookback", strconv.Itoa(lookback))

	var snap models.MarketSnapshot
	if err := b.getJSON(ctx, "/snapshot?"+q.Encode(), &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", broker.ErrDataUnavailable, err)
	}

	// Sidecars that only ship raw candles leave the indicator fields
	// empty; compute them locally in that case.
	if snap.ATR == 0 && len(snap.Candles) > 0 {
		built := snapshot.Build(symbol, snap.Candles, snapshot.DefaultPeriods(), time.Now().UTC())
		built.Spread = snap.Spread
		return built, nil
	}
	return &snap, nil
}

func (b *Broker) GetAccountState(ctx context.Context) (models.AccountState, error) {
	var acct models.AccountState
	if err := b.getJSON(ctx, "/account", &acct); err != nil {
		return models.AccountState{}, fmt.Errorf("%w: %v", broker.ErrDataUnavailable, err)
	}
	return acct, nil
}

func (b *Broker) GetLotConstraints(ctx context.Context, symbol string) (models.LotConstraints, error) {
	var lots models.LotConstraints
	if err := b.getJSON(ctx, "/constraints?symbol="+url.QueryEscape(symbol), &lots); err != nil {
		return models.LotConstraints{}, fmt.Errorf("%w: %v", broker.ErrDataUnavailable, err)
	}
	return lots, nil
}

func (b *Broker) PlaceLegs(ctx context.Context, symbol string, direction models.Direction, legs []broker.LegRequest) ([]string, error) {
	payload := struct {
		Symbol    string              `json:"symbol"`
		Direction models.Direction    `json:"direction"`
		Legs      []broker.LegRequest `json:"legs"`
	}{symbol, direction, legs}

	var out struct {
		OrderIDs []string `json:"order_ids"`
	}
	if err := b.postJSON(ctx, "/orders", payload, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", broker.ErrOrderRejected, err)
	}
	if len(out.OrderIDs) != len(legs) {
		return nil, fmt.Errorf("%w: placed %d of %d legs", broker.ErrOrderRejected, len(out.OrderIDs), len(legs))
	}
	return out.OrderIDs, nil
}

func (b *Broker) ModifyStopLoss(ctx context.Context, orderID string, newSL float64) error {
	payload := struct {
		OrderID  string  `json:"order_id"`
		StopLoss float64 `json:"stop_loss"`
	}{orderID, newSL}
	if err := b.postJSON(ctx, "/modify_sl", payload, nil); err != nil {
		return fmt.Errorf("%w: %v", broker.ErrModifyFailed, err)
	}
	return nil
}

func (b *Broker) ModifyTakeProfit(ctx context.Context, orderID string, newTP float64) error {
	payload := struct {
		OrderID    string  `json:"order_id"`
		TakeProfit float64 `json:"take_profit"`
	}{orderID, newTP}
	if err := b.postJSON(ctx, "/modify_tp", payload, nil); err != nil {
		return fmt.Errorf("%w: %v", broker.ErrModifyFailed, err)
	}
	return nil
}

func (b *Broker) ListOpenPositions(ctx context.Context) ([]string, error) {
	var out struct {
		OrderIDs []string `json:"order_ids"`
	}
	if err := b.getJSON(ctx, "/positions", &out); err != nil {
		return nil, fmt.Errorf("%w: %v", broker.ErrDataUnavailable, err)
	}
	return out.OrderIDs, nil
}

func (b *Broker) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return b.do(req, out)
}

func (b *Broker) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, out)
}

func (b *Broker) do(req *http.Request, out any) error {
	resp, err := b.client.DoRequest(req.Context(), req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		b.logger.Error().Err(err).Str("url", req.URL.String()).Msg("Error parsing JSON")
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return nil
}
