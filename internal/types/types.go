package types

import "time"

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// SizeMode says how Decision.Size is denominated.
type SizeMode string

const (
	SizePercent SizeMode = "PCT" // percent of base order (BUY) or of position (SELL)
	SizeUSD     SizeMode = "USD" // absolute dollar amount
)

// Decision is the structured form extracted from raw model output.
// Action is always one of BUY/SELL/HOLD and Size is never negative;
// the interpreter guarantees both for arbitrary input.
type Decision struct {
	Action    string   `json:"action"`
	Size      float64  `json:"size"`
	SizeMode  SizeMode `json:"size_mode"`
	Reason    string   `json:"reason"`
	Rationale string   `json:"rationale,omitempty"`
}

type AccountState struct {
	Cash   float64 `json:"cash"`
	Equity float64 `json:"equity"`
}

// PositionState is the broker's view of a holding. AvgCost is
// meaningless when Qty is zero and is reported as 0.
type PositionState struct {
	Symbol       string  `json:"symbol"`
	Qty          float64 `json:"qty"`
	AvgCost      float64 `json:"avg_cost"`
	UnrealizedPL float64 `json:"unrealized_pl"`
}

// OrderIntent is the translator's output. Exactly one of Notional and
// Qty is set on a non-suppressed intent; FullClose orders carry the
// whole position quantity so the broker leaves no residual.
type OrderIntent struct {
	Symbol         string  `json:"symbol"`
	Side           string  `json:"side"`
	Notional       float64 `json:"notional,omitempty"`
	Qty            float64 `json:"qty,omitempty"`
	FullClose      bool    `json:"full_close,omitempty"`
	Suppressed     bool    `json:"suppressed"`
	SuppressReason string  `json:"suppress_reason,omitempty"`
}

// TradeRecord is one executed trade. The symbol is the key of the
// ledger map, so it is not repeated per record.
type TradeRecord struct {
	Time   time.Time `json:"time"`
	Action string    `json:"action"`
	Price  float64   `json:"price"`
}

// DecisionMemory is the previous cycle's outcome for a symbol, fed
// back into the next prompt. Overwritten each cycle, never merged.
type DecisionMemory struct {
	Action string    `json:"action"`
	Price  float64   `json:"price"`
	Reason string    `json:"reason"`
	Time   time.Time `json:"time"`
}

// Status is the per-symbol decision lifecycle state.
type Status string

const (
	StatusIdle            Status = "IDLE"
	StatusAnalyzing       Status = "ANALYZING"
	StatusDecided         Status = "DECIDED"
	StatusExecuting       Status = "EXECUTING"
	StatusSettled         Status = "SETTLED"
	StatusExecutionFailed Status = "EXECUTION_FAILED"
)

// SymbolSnapshot is a consistent read of one cache entry.
type SymbolSnapshot struct {
	Symbol       string          `json:"symbol"`
	Price        float64         `json:"price"`
	Qty          float64         `json:"qty"`
	AvgCost      float64         `json:"avg_cost"`
	UnrealizedPL float64         `json:"unrealized_pl"`
	Status       Status          `json:"status"`
	Memory       *DecisionMemory `json:"memory,omitempty"`
}

// PromptContext carries everything the decision model is shown for one
// symbol. The report text is opaque here; the broker assembles it.
type PromptContext struct {
	Symbol   string
	Price    float64
	Report   string
	Position PositionState
	Account  AccountState
	Memory   *DecisionMemory
}
