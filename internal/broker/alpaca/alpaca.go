// Package alpaca implements the brokerage collaborators against the
// Alpaca REST API (paper or live host per config). Crypto symbols keep
// their slash spelling on data endpoints; position lookups match
// slash-insensitively because the trading API reports "BTCUSD".
package alpaca

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"deepstock/internal/store"
	"deepstock/internal/types"
)

const (
	fastPriceTimeout = 2 * time.Second
	analysisTimeout  = 15 * time.Second
	orderTimeout     = 10 * time.Second

	barLimit = 100

	// brokerMinNotional is Alpaca's own floor for notional orders.
	brokerMinNotional = 1.0
)

type Client struct {
	trading *resty.Client
	data    *resty.Client
	mode    string
}

type Params struct {
	APIKey    string
	APISecret string
}

func New(cfg *store.Config, p Params) *Client {
	headers := map[string]string{
		"APCA-API-KEY-ID":     p.APIKey,
		"APCA-API-SECRET-KEY": p.APISecret,
		"Accept":              "application/json",
	}

	trading := resty.New().
		SetBaseURL(cfg.Alpaca.BaseURL).
		SetHeaders(headers).
		SetTimeout(orderTimeout)
	data := resty.New().
		SetBaseURL(cfg.Alpaca.DataURL).
		SetHeaders(headers).
		SetTimeout(analysisTimeout)

	return &Client{trading: trading, data: data, mode: cfg.Mode}
}

// Connect verifies credentials by fetching the account once.
func (c *Client) Connect(ctx context.Context) (string, error) {
	acct, err := c.FetchAccount(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("connected, cash $%.2f", acct.Cash), nil
}

func isCrypto(symbol string) bool {
	return strings.Contains(symbol, "/")
}

// FetchFastPrice returns the latest trade price with a short timeout.
// Unavailable data comes back as 0 with a nil error so a flaky quote
// never looks like a transport failure to the fast loop.
func (c *Client) FetchFastPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, fastPriceTimeout)
	defer cancel()

	if isCrypto(symbol) {
		var out struct {
			Trades map[string]struct {
				Price float64 `json:"p"`
			} `json:"trades"`
		}
		resp, err := c.data.R().
			SetContext(ctx).
			SetQueryParam("symbols", symbol).
			SetResult(&out).
			Get("/v1beta3/crypto/us/latest/trades")
		if err != nil {
			return 0, err
		}
		if resp.IsError() {
			return 0, fmt.Errorf("latest trades %s: http %d", symbol, resp.StatusCode())
		}
		if t, ok := out.Trades[symbol]; ok && t.Price > 0 {
			return t.Price, nil
		}
		return 0, nil
	}

	var out struct {
		Trade struct {
			Price float64 `json:"p"`
		} `json:"trade"`
	}
	resp, err := c.data.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v2/stocks/" + symbol + "/trades/latest")
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("latest trade %s: http %d", symbol, resp.StatusCode())
	}
	return out.Trade.Price, nil
}

type bar struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}

func (c *Client) fetchBars(ctx context.Context, symbol string) ([]bar, error) {
	if isCrypto(symbol) {
		var out struct {
			Bars map[string][]bar `json:"bars"`
		}
		resp, err := c.data.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbols":   symbol,
				"timeframe": "1Min",
				"limit":     strconv.Itoa(barLimit),
			}).
			SetResult(&out).
			Get("/v1beta3/crypto/us/bars")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("crypto bars %s: http %d", symbol, resp.StatusCode())
		}
		return out.Bars[symbol], nil
	}

	var out struct {
		Bars []bar `json:"bars"`
	}
	resp, err := c.data.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"timeframe": "1Min",
			"limit":     strconv.Itoa(barLimit),
		}).
		SetResult(&out).
		Get("/v2/stocks/" + symbol + "/bars")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("stock bars %s: http %d", symbol, resp.StatusCode())
	}
	return out.Bars, nil
}

// FetchAnalysis pulls recent bars and renders the indicator report the
// decision model reads. The report text is opaque to the engine.
func (c *Client) FetchAnalysis(ctx context.Context, symbol string) (float64, string, error) {
	bars, err := c.fetchBars(ctx, symbol)
	if err != nil {
		return 0, "", err
	}
	if len(bars) == 0 {
		return 0, "", fmt.Errorf("no bar data for %s", symbol)
	}
	price := bars[len(bars)-1].Close
	return price, buildReport(symbol, bars), nil
}

type positionJSON struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	UnrealizedPL  string `json:"unrealized_pl"`
}

func (c *Client) listPositions(ctx context.Context) ([]positionJSON, error) {
	var out []positionJSON
	resp, err := c.trading.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v2/positions")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("positions: http %d", resp.StatusCode())
	}
	return out, nil
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "/", "")))
}

func (c *Client) FetchPosition(ctx context.Context, symbol string) (types.PositionState, error) {
	pos := types.PositionState{Symbol: symbol}
	all, err := c.listPositions(ctx)
	if err != nil {
		return pos, err
	}
	want := normalizeSymbol(symbol)
	for _, p := range all {
		if normalizeSymbol(p.Symbol) != want {
			continue
		}
		pos.Qty = parseNum(p.Qty)
		pos.AvgCost = parseNum(p.AvgEntryPrice)
		pos.UnrealizedPL = parseNum(p.UnrealizedPL)
		return pos, nil
	}
	// No holding is a valid state, not an error.
	return pos, nil
}

func (c *Client) FetchAccount(ctx context.Context) (types.AccountState, error) {
	var out struct {
		Cash   string `json:"cash"`
		Equity string `json:"equity"`
	}
	resp, err := c.trading.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v2/account")
	if err != nil {
		return types.AccountState{}, err
	}
	if resp.IsError() {
		return types.AccountState{}, fmt.Errorf("account: http %d", resp.StatusCode())
	}
	return types.AccountState{Cash: parseNum(out.Cash), Equity: parseNum(out.Equity)}, nil
}

func (c *Client) SubmitNotionalOrder(ctx context.Context, symbol, side string, notional float64) (string, error) {
	amount := decimal.NewFromFloat(notional).Round(2)
	if amount.LessThan(decimal.NewFromFloat(brokerMinNotional)) {
		return "", fmt.Errorf("notional $%s below broker minimum", amount)
	}
	if c.mode == "DRY_RUN" {
		return fmt.Sprintf("dry-run: %s $%s %s", strings.ToLower(side), amount, symbol), nil
	}
	return c.submitOrder(ctx, map[string]any{
		"symbol":          symbol,
		"notional":        amount.String(),
		"side":            strings.ToLower(side),
		"type":            "market",
		"time_in_force":   "gtc",
		"client_order_id": uuid.NewString(),
	})
}

func (c *Client) SubmitQuantityOrder(ctx context.Context, symbol, side string, qty float64) (string, error) {
	if qty <= 0 {
		return "", fmt.Errorf("non-positive quantity %f", qty)
	}
	if c.mode == "DRY_RUN" {
		return fmt.Sprintf("dry-run: %s %.8f %s", strings.ToLower(side), qty, symbol), nil
	}
	return c.submitOrder(ctx, map[string]any{
		"symbol":          symbol,
		"qty":             strconv.FormatFloat(qty, 'f', -1, 64),
		"side":            strings.ToLower(side),
		"type":            "market",
		"time_in_force":   "gtc",
		"client_order_id": uuid.NewString(),
	})
}

// CloseFullPosition sells the broker's entire reported quantity under
// the broker's own symbol spelling, so nothing is stranded by a
// formatting mismatch.
func (c *Client) CloseFullPosition(ctx context.Context, symbol string) (string, error) {
	all, err := c.listPositions(ctx)
	if err != nil {
		return "", err
	}
	want := normalizeSymbol(symbol)
	for _, p := range all {
		if normalizeSymbol(p.Symbol) != want {
			continue
		}
		qty := parseNum(p.Qty)
		if qty <= 0 {
			break
		}
		if c.mode == "DRY_RUN" {
			return fmt.Sprintf("dry-run: close %.8f %s", qty, p.Symbol), nil
		}
		return c.submitOrder(ctx, map[string]any{
			"symbol":          p.Symbol,
			"qty":             p.Qty,
			"side":            "sell",
			"type":            "market",
			"time_in_force":   "gtc",
			"client_order_id": uuid.NewString(),
		})
	}
	return "", fmt.Errorf("no open position for %s", symbol)
}

func (c *Client) submitOrder(ctx context.Context, body map[string]any) (string, error) {
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	resp, err := c.trading.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/v2/orders")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("order rejected: http %d: %s", resp.StatusCode(), resp.String())
	}
	return fmt.Sprintf("order %s %s", out.ID, out.Status), nil
}

func parseNum(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
