package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders results as Markdown.
type MarkdownFormatter struct{}

// FormatAnswer renders an answer result as Markdown.
func (f *MarkdownFormatter) FormatAnswer(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n\n", result.Query)

	if strings.TrimSpace(result.Answer) != "" {
		b.WriteString(result.Answer)
		b.WriteString("\n")
	}

	if len(result.Sources) > 0 {
		b.WriteString("\n### Sources\n\n")
		for _, raw := range result.Sources {
			summary := summarizeSource(raw)
			switch {
			case summary.Title != "" && summary.URL != "":
				fmt.Fprintf(&b, "- [%s](%s)\n", summary.Title, summary.URL)
			case summary.URL != "":
				fmt.Fprintf(&b, "- %s\n", summary.URL)
			default:
				fmt.Fprintf(&b, "- %s\n", summary.Title)
			}
		}
	}

	return b.String(), nil
}
