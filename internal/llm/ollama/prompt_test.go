package ollama

import (
	"strings"
	"testing"
	"time"

	"deepstock/internal/types"
)

func TestBuildPromptFirstRun(t *testing.T) {
	pc := types.PromptContext{
		Symbol:  "BTC/USD",
		Price:   65000,
		Report:  "*** MARKET DATA ***\nTrend: BULLISH\n",
		Account: types.AccountState{Cash: 1000, Equity: 1500},
	}
	p := BuildPrompt(pc, time.Now())

	for _, want := range []string{
		"[Market] BTC/USD | Price: $65000.00",
		"*** MARKET DATA ***",
		"[Account] Cash: $1000.00 | Equity: $1500.00",
		"[Position] NO POSITION",
		"[LAST ACTION] None (First run).",
		`MUST INCLUDE "amount_pct"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptHoldingAndMemory(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)
	pc := types.PromptContext{
		Symbol: "ETH/USD",
		Price:  3300,
		Position: types.PositionState{
			Symbol: "ETH/USD", Qty: 2, AvgCost: 3000,
		},
		Memory: &types.DecisionMemory{
			Action: types.ActionBuy,
			Price:  3000,
			Reason: "breakout entry",
			Time:   now.Add(-3 * time.Minute),
		},
	}
	p := BuildPrompt(pc, now)

	if !strings.Contains(p, "HOLDING 2.0000 units. Avg Cost: $3000.00. PnL: 10.00%") {
		t.Errorf("position block wrong:\n%s", p)
	}
	if !strings.Contains(p, "[LAST ACTION] 3m ago, you did: BUY at $3000.00") {
		t.Errorf("memory block wrong:\n%s", p)
	}
	if !strings.Contains(p, `"breakout entry"`) {
		t.Error("memory reason missing")
	}
}

func TestHumanAgo(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m"},
		{2 * time.Hour, "2.0h"},
		{-5 * time.Second, "0s"},
	}
	for _, tc := range cases {
		if got := humanAgo(tc.d); got != tc.want {
			t.Errorf("humanAgo(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
