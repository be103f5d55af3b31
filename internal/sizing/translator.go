// Package sizing turns a Decision plus account and position state into
// a concrete, constraint-respecting OrderIntent. Translation is pure:
// submission and ledger updates belong to the caller.
package sizing

import (
	"github.com/shopspring/decimal"

	"deepstock/internal/types"
)

const (
	ReasonHold       = "hold"
	ReasonNoPosition = "no position"
	ReasonCooldown   = "cooldown active"
	ReasonBelowFloor = "below minimum notional"
	ReasonZeroSize   = "zero size"
	ReasonNoPrice    = "price unavailable"

	// fullCloseThreshold treats near-total SELL percentages as a
	// close-all so rounding never strands dust.
	fullCloseThreshold = 99
)

// Input carries the per-cycle context the translator needs beyond the
// decision itself.
type Input struct {
	Account     types.AccountState
	Position    types.PositionState
	Price       float64
	BaseOrder   float64 // 100% BUY size in dollars
	MinNotional float64 // floor under which orders are suppressed
	InCooldown  bool    // recent executed BUY vetoes a SELL
}

// Translate maps a decision onto an order intent. Identical inputs
// always yield identical intents.
func Translate(d types.Decision, in Input) types.OrderIntent {
	symbol := in.Position.Symbol
	switch d.Action {
	case types.ActionBuy:
		return translateBuy(symbol, d, in)
	case types.ActionSell:
		return translateSell(symbol, d, in)
	default:
		return suppressed(symbol, d.Action, ReasonHold)
	}
}

func translateBuy(symbol string, d types.Decision, in Input) types.OrderIntent {
	var target decimal.Decimal
	if d.SizeMode == types.SizeUSD {
		target = decimal.NewFromFloat(d.Size)
	} else {
		target = decimal.NewFromFloat(in.BaseOrder).
			Mul(decimal.NewFromFloat(d.Size)).
			Div(decimal.NewFromInt(100))
	}

	cash := decimal.NewFromFloat(in.Account.Cash)
	if target.GreaterThan(cash) {
		target = cash
	}
	if target.IsNegative() {
		target = decimal.Zero
	}
	target = target.Round(2)

	if target.LessThan(decimal.NewFromFloat(in.MinNotional)) {
		return suppressed(symbol, types.ActionBuy, ReasonBelowFloor)
	}

	notional, _ := target.Float64()
	return types.OrderIntent{
		Symbol:   symbol,
		Side:     types.ActionBuy,
		Notional: notional,
	}
}

func translateSell(symbol string, d types.Decision, in Input) types.OrderIntent {
	if in.Position.Qty <= 0 {
		return suppressed(symbol, types.ActionSell, ReasonNoPosition)
	}
	if in.InCooldown {
		return suppressed(symbol, types.ActionSell, ReasonCooldown)
	}
	if d.Size <= 0 {
		return suppressed(symbol, types.ActionSell, ReasonZeroSize)
	}

	held := decimal.NewFromFloat(in.Position.Qty)

	if d.SizeMode == types.SizeUSD {
		if in.Price <= 0 {
			return suppressed(symbol, types.ActionSell, ReasonNoPrice)
		}
		qty := decimal.NewFromFloat(d.Size).Div(decimal.NewFromFloat(in.Price))
		if qty.GreaterThanOrEqual(held) {
			return fullClose(symbol, in.Position.Qty)
		}
		return sellQty(symbol, qty, in)
	}

	if d.Size >= fullCloseThreshold {
		return fullClose(symbol, in.Position.Qty)
	}
	qty := held.Mul(decimal.NewFromFloat(d.Size)).Div(decimal.NewFromInt(100))
	return sellQty(symbol, qty, in)
}

func sellQty(symbol string, qty decimal.Decimal, in Input) types.OrderIntent {
	notional := qty.Mul(decimal.NewFromFloat(in.Price))
	if notional.LessThan(decimal.NewFromFloat(in.MinNotional)) {
		return suppressed(symbol, types.ActionSell, ReasonBelowFloor)
	}
	q, _ := qty.Float64()
	return types.OrderIntent{
		Symbol: symbol,
		Side:   types.ActionSell,
		Qty:    q,
	}
}

func fullClose(symbol string, held float64) types.OrderIntent {
	// Close-all goes out by quantity, never notional, so the broker
	// leaves zero residual.
	return types.OrderIntent{
		Symbol:    symbol,
		Side:      types.ActionSell,
		Qty:       held,
		FullClose: true,
	}
}

func suppressed(symbol, side, reason string) types.OrderIntent {
	if side != types.ActionBuy && side != types.ActionSell {
		side = types.ActionHold
	}
	return types.OrderIntent{
		Symbol:         symbol,
		Side:           side,
		Suppressed:     true,
		SuppressReason: reason,
	}
}
