package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders the sources as an ASCII table with the answer below.
type TableFormatter struct{}

// FormatAnswer renders an answer result as a table.
func (f *TableFormatter) FormatAnswer(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}

	var b strings.Builder

	if len(result.Sources) > 0 {
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"#", "Title", "URL"})

		for i, raw := range result.Sources {
			summary := summarizeSource(raw)
			t.AppendRow(table.Row{i + 1, summary.Title, summary.URL})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d sources", len(result.Sources)), ""})

		b.WriteString(t.Render())
		b.WriteString("\n\n")
	}

	if strings.TrimSpace(result.Answer) != "" {
		b.WriteString(result.Answer)
		b.WriteString("\n")
	}

	return b.String(), nil
}
