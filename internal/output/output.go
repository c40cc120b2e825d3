// Package output renders grounded answers and their sources for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Result is a completed grounded answer ready for rendering.
type Result struct {
	Query   string            `json:"query"`
	Sources []json.RawMessage `json:"sources"`
	Answer  string            `json:"answer"`
}

// Formatter renders an answer result.
type Formatter interface {
	FormatAnswer(result *Result) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// sourceSummary is the best-effort view of a raw search result used for
// human-readable rendering. Raw results stay verbatim in JSON output.
type sourceSummary struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func summarizeSource(raw json.RawMessage) sourceSummary {
	var summary sourceSummary
	_ = json.Unmarshal(raw, &summary)
	if summary.Title == "" && summary.URL == "" {
		preview := string(raw)
		if len(preview) > 60 {
			preview = preview[:60] + "..."
		}
		summary.Title = preview
	}
	return summary
}
