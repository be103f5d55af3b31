package noop

import (
	"context"

	"deepstock/internal/logger"
	"deepstock/internal/types"
)

// Decider is the fallback when no decision model is configured. It
// answers with a well-formed HOLD payload so the rest of the pipeline
// runs unchanged.
type Decider struct{}

func NewDecider() *Decider {
	return &Decider{}
}

func (d *Decider) Decide(ctx context.Context, pc types.PromptContext) (string, error) {
	logger.Debug(ctx, "Noop decider called - always returns HOLD", "symbol", pc.Symbol)
	return `{"action": "HOLD", "amount_pct": 0, "reason": "no model configured"}`, nil
}
