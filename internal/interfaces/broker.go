package interfaces

import (
	"context"

	"deepstock/internal/types"
)

// Broker is the brokerage surface the session depends on. Every call
// is network-bound; message return values are human-readable and go
// straight to the log.
type Broker interface {
	// FetchFastPrice returns the latest trade price, or 0 when the
	// quote is unavailable. Short timeout, best effort.
	FetchFastPrice(ctx context.Context, symbol string) (float64, error)

	// FetchAnalysis returns the current price plus the market report
	// text fed to the decision model.
	FetchAnalysis(ctx context.Context, symbol string) (price float64, report string, err error)

	FetchPosition(ctx context.Context, symbol string) (types.PositionState, error)
	FetchAccount(ctx context.Context) (types.AccountState, error)

	SubmitNotionalOrder(ctx context.Context, symbol, side string, notional float64) (msg string, err error)
	SubmitQuantityOrder(ctx context.Context, symbol, side string, qty float64) (msg string, err error)
	CloseFullPosition(ctx context.Context, symbol string) (msg string, err error)
}
