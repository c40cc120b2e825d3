package output

import "encoding/json"

// JSONFormatter renders results as JSON. Source entries pass through
// verbatim as received from the search provider.
type JSONFormatter struct {
	Indent bool
}

// FormatAnswer renders an answer result as JSON.
func (f *JSONFormatter) FormatAnswer(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}
	if result.Sources == nil {
		result.Sources = []json.RawMessage{}
	}

	if f.Indent {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
