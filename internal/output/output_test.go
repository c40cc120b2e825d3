package output

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	return &Result{
		Query: "capital of France",
		Sources: []json.RawMessage{
			json.RawMessage(`{"title": "Paris - Wikipedia", "url": "https://en.wikipedia.org/wiki/Paris"}`),
			json.RawMessage(`{"url": "https://example.com/france"}`),
		},
		Answer: "The capital of France is Paris.",
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		value   string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"markdown", FormatMarkdown, false},
		{"xml", "", true},
	}

	for _, tc := range cases {
		got, err := ParseFormat(tc.value)
		if tc.wantErr {
			assert.Error(t, err, "value %q", tc.value)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestTableFormatter(t *testing.T) {
	rendered, err := (&TableFormatter{}).FormatAnswer(sampleResult())
	require.NoError(t, err)

	assert.Contains(t, rendered, "Paris - Wikipedia")
	assert.Contains(t, rendered, "https://en.wikipedia.org/wiki/Paris")
	// Footers render uppercased with the default style.
	assert.Contains(t, rendered, "2 SOURCES")
	assert.Contains(t, rendered, "The capital of France is Paris.")
}

func TestTableFormatterNoSources(t *testing.T) {
	rendered, err := (&TableFormatter{}).FormatAnswer(&Result{
		Query:  "q",
		Answer: "no sources were found",
	})
	require.NoError(t, err)
	assert.Equal(t, "no sources were found\n", rendered)
}

func TestJSONFormatterPassesSourcesVerbatim(t *testing.T) {
	rendered, err := (&JSONFormatter{Indent: false}).FormatAnswer(sampleResult())
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	assert.Equal(t, "capital of France", decoded.Query)
	require.Len(t, decoded.Sources, 2)
	assert.JSONEq(t,
		`{"title": "Paris - Wikipedia", "url": "https://en.wikipedia.org/wiki/Paris"}`,
		string(decoded.Sources[0]))
}

func TestMarkdownFormatter(t *testing.T) {
	rendered, err := (&MarkdownFormatter{}).FormatAnswer(sampleResult())
	require.NoError(t, err)

	assert.Contains(t, rendered, "## capital of France")
	assert.Contains(t, rendered, "- [Paris - Wikipedia](https://en.wikipedia.org/wiki/Paris)")
	assert.Contains(t, rendered, "- https://example.com/france")
	assert.Contains(t, rendered, "### Sources")
}

func TestSummarizeSourceFallsBackToPreview(t *testing.T) {
	summary := summarizeSource(json.RawMessage(`{"snippet": "no title or url here"}`))
	assert.NotEmpty(t, summary.Title)
	assert.Empty(t, summary.URL)
}
