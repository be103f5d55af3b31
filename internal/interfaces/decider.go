package interfaces

import (
	"context"

	"deepstock/internal/types"
)

// Decider asks the decision model for a recommendation and returns the
// raw response text. Interpretation of that text is the caller's job;
// a Decider only fails on transport problems.
type Decider interface {
	Decide(ctx context.Context, pc types.PromptContext) (string, error)
}
