package search

import (
	"encoding/json"
	"fmt"
)

// resultFields are probed in order; the first one holding an array wins.
var resultFields = []string{"data", "web", "results"}

// Normalize flattens a search provider response into its result array.
//
// Providers disagree on the envelope: results may live under "data", "web",
// or "results". A field that exists but is not an array does not stop the
// probe. When no field holds an array the response is treated as empty
// rather than malformed.
func Normalize(respBody []byte) ([]json.RawMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	for _, field := range resultFields {
		raw, ok := envelope[field]
		if !ok {
			continue
		}
		var results []json.RawMessage
		if err := json.Unmarshal(raw, &results); err != nil || results == nil {
			continue
		}
		return results, nil
	}

	return []json.RawMessage{}, nil
}
