package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"deepstock/internal/store"
)

func testConfig() *store.Config {
	cfg := &store.Config{}
	cfg.Mode = "DRY_RUN"
	return cfg
}

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.Alpaca.BaseURL = srv.URL
	cfg.Alpaca.DataURL = srv.URL
	return New(cfg, Params{APIKey: "key", APISecret: "secret"})
}

func TestFetchFastPriceCrypto(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta3/crypto/us/latest/trades" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbols"); got != "BTC/USD" {
			t.Errorf("symbol must keep its slash, got %q", got)
		}
		if r.Header.Get("APCA-API-KEY-ID") != "key" {
			t.Error("missing auth header")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"trades": map[string]any{"BTC/USD": map[string]any{"p": 65000.5}},
		})
	}))

	price, err := c.FetchFastPrice(context.Background(), "BTC/USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 65000.5 {
		t.Errorf("price %f", price)
	}
}

func TestFetchFastPriceUnavailable(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"trades": map[string]any{}})
	}))

	price, err := c.FetchFastPrice(context.Background(), "BTC/USD")
	if err != nil {
		t.Fatalf("empty payload is not a transport error: %v", err)
	}
	if price != 0 {
		t.Errorf("expected 0 for unavailable quote, got %f", price)
	}
}

func TestFetchPositionSlashInsensitive(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"symbol": "BTCUSD", "qty": "0.5", "avg_entry_price": "60000", "unrealized_pl": "250.75"},
		})
	}))

	pos, err := c.FetchPosition(context.Background(), "BTC/USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Qty != 0.5 || pos.AvgCost != 60000 || pos.UnrealizedPL != 250.75 {
		t.Errorf("position %+v", pos)
	}
}

func TestFetchPositionMissingIsFlat(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	}))

	pos, err := c.FetchPosition(context.Background(), "ETH/USD")
	if err != nil {
		t.Fatalf("no holding is not an error: %v", err)
	}
	if pos.Qty != 0 || pos.AvgCost != 0 {
		t.Errorf("expected flat position, got %+v", pos)
	}
}

func TestFetchAccountParsesStrings(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"cash": "1234.56", "equity": "2000"})
	}))

	acct, err := c.FetchAccount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.Cash != 1234.56 || acct.Equity != 2000 {
		t.Errorf("account %+v", acct)
	}
}

func TestSubmitNotionalOrderDryRun(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("dry-run must not reach the network")
	}))
	c.mode = "DRY_RUN"

	msg, err := c.SubmitNotionalOrder(context.Background(), "BTC/USD", "BUY", 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg, "dry-run") {
		t.Errorf("message %q", msg)
	}
}

func TestSubmitNotionalOrderLive(t *testing.T) {
	var body map[string]any
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/orders" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "abc-123", "status": "accepted"})
	}))
	c.mode = "LIVE"

	msg, err := c.SubmitNotionalOrder(context.Background(), "BTC/USD", "BUY", 200.005)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg, "abc-123") {
		t.Errorf("message %q", msg)
	}
	if body["notional"] != "200.01" {
		t.Errorf("notional must round to cents, got %v", body["notional"])
	}
	if body["side"] != "buy" || body["type"] != "market" || body["time_in_force"] != "gtc" {
		t.Errorf("order body %v", body)
	}
	if body["client_order_id"] == "" || body["client_order_id"] == nil {
		t.Error("missing client order id")
	}
}

func TestSubmitNotionalBelowBrokerMinimum(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("sub-minimum order must not be sent")
	}))
	c.mode = "LIVE"

	if _, err := c.SubmitNotionalOrder(context.Background(), "BTC/USD", "BUY", 0.5); err == nil {
		t.Fatal("expected error for sub-$1 notional")
	}
}

func TestCloseFullPositionUsesBrokerSymbol(t *testing.T) {
	var body map[string]any
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/positions":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"symbol": "BTCUSD", "qty": "0.75", "avg_entry_price": "60000", "unrealized_pl": "0"},
			})
		case "/v2/orders":
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "x", "status": "accepted"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	c.mode = "LIVE"

	if _, err := c.CloseFullPosition(context.Background(), "BTC/USD"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["symbol"] != "BTCUSD" {
		t.Errorf("must submit the broker's own spelling, got %v", body["symbol"])
	}
	if body["qty"] != "0.75" {
		t.Errorf("must close the full reported qty, got %v", body["qty"])
	}
}

func TestBuildReport(t *testing.T) {
	bars := make([]bar, 40)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := range bars {
		p := 100 + float64(i)
		bars[i] = bar{Time: base.Add(time.Duration(i) * time.Minute), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 10}
	}

	report := buildReport("BTC/USD", bars)
	for _, want := range []string{
		"*** MARKET DATA ***",
		"Current Price: 139.00",
		"Trend (vs SMA20): BULLISH",
		"RSI(14): 100.00",
		"*** RECENT 15 MIN PRICE ACTION",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
	if got := strings.Count(report, "\n10:"); got > recentBars {
		t.Errorf("table should be bounded to %d rows", recentBars)
	}
}
