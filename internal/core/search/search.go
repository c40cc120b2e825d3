// Package search retrieves web results for a query and normalizes the
// provider's response into a flat result list.
package search

import (
	"context"
	"encoding/json"
)

// DefaultLimit caps how many results are requested per search.
const DefaultLimit = 3

// Searcher performs a web search. apiKeyOverride, when non-empty, replaces
// the configured credential for this call only.
type Searcher interface {
	Search(ctx context.Context, query, apiKeyOverride string) ([]json.RawMessage, error)
}
