package ai

import (
	"context"
	"encoding/json"
)

// Explainer turns a stored analysis into a short plain-language summary.
type Explainer interface {
	Explain(ctx context.Context, taskName string, params, result json.RawMessage) (string, error)
}
