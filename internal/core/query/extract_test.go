package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func payloadFromJSON(t *testing.T, raw string) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestExtractQueryField(t *testing.T) {
	got, err := Extract(payloadFromJSON(t, `{"query": "capital of France"}`))
	require.NoError(t, err)
	require.Equal(t, "capital of France", got)
}

func TestExtractTextField(t *testing.T) {
	got, err := Extract(payloadFromJSON(t, `{"text": "  capital of France  "}`))
	require.NoError(t, err)
	require.Equal(t, "capital of France", got)
}

func TestExtractQueryTakesPriorityOverText(t *testing.T) {
	got, err := Extract(payloadFromJSON(t, `{"query": "from query", "text": "from text"}`))
	require.NoError(t, err)
	require.Equal(t, "from query", got)
}

func TestExtractSkipsNonStringQuery(t *testing.T) {
	got, err := Extract(payloadFromJSON(t, `{"query": 42, "text": "fallback"}`))
	require.NoError(t, err)
	require.Equal(t, "fallback", got)
}

func TestExtractSkipsEmptyQuery(t *testing.T) {
	got, err := Extract(payloadFromJSON(t, `{"query": "   ", "text": "fallback"}`))
	require.NoError(t, err)
	require.Equal(t, "fallback", got)
}

func TestExtractLastUserMessage(t *testing.T) {
	raw := `{"messages": [
		{"role": "user", "content": "first question"},
		{"role": "assistant", "content": "an answer"},
		{"role": "user", "content": "second question"},
		{"role": "assistant", "content": "another answer"}
	]}`
	got, err := Extract(payloadFromJSON(t, raw))
	require.NoError(t, err)
	require.Equal(t, "second question", got)
}

func TestExtractFallsBackToLastMessage(t *testing.T) {
	raw := `{"messages": [
		{"role": "system", "content": "be nice"},
		{"role": "assistant", "content": "closing remark"}
	]}`
	got, err := Extract(payloadFromJSON(t, raw))
	require.NoError(t, err)
	require.Equal(t, "closing remark", got)
}

func TestExtractMessagePartsJoined(t *testing.T) {
	raw := `{"messages": [
		{"role": "user", "parts": [
			{"type": "text", "text": "line one"},
			{"type": "image", "url": "https://example.com/x.png"},
			{"type": "text", "text": "line two"}
		]}
	]}`
	got, err := Extract(payloadFromJSON(t, raw))
	require.NoError(t, err)
	require.Equal(t, "line one\nline two", got)
}

func TestExtractPrefersContentStringOverParts(t *testing.T) {
	raw := `{"messages": [
		{"role": "user", "content": "from content", "parts": [{"type": "text", "text": "from parts"}]}
	]}`
	got, err := Extract(payloadFromJSON(t, raw))
	require.NoError(t, err)
	require.Equal(t, "from content", got)
}

func TestExtractNoQuery(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty object", `{}`},
		{"empty messages", `{"messages": []}`},
		{"non-string fields", `{"query": 1, "text": true}`},
		{"message without text", `{"messages": [{"role": "user"}]}`},
		{"non-text parts only", `{"messages": [{"role": "user", "parts": [{"type": "image"}]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract(payloadFromJSON(t, tc.raw))
			require.ErrorIs(t, err, ErrNoQuery)
		})
	}

	t.Run("nil payload", func(t *testing.T) {
		_, err := Extract(nil)
		require.ErrorIs(t, err, ErrNoQuery)
	})
}
