// Package query extracts a user query from loosely structured request
// payloads. Clients send several shapes: a bare {"query": ...}, a {"text": ...}
// field, or a chat-style {"messages": [...]} transcript.
package query

import (
	"errors"
	"strings"
)

// ErrNoQuery is returned when no usable query can be extracted. The message
// doubles as the client-facing error body, so it stays capitalized.
var ErrNoQuery = errors.New("No query found in request")

// extractor attempts to pull a query from a payload. Extractors run in
// declaration order; the first hit wins.
type extractor struct {
	name string
	fn   func(payload map[string]any) (string, bool)
}

var extractors = []extractor{
	{name: "query", fn: stringField("query")},
	{name: "text", fn: stringField("text")},
	{name: "messages", fn: fromMessages},
}

// Extract returns the first usable query found in the payload, trimmed.
// Non-string values for candidate fields are skipped rather than rejected.
func Extract(payload map[string]any) (string, error) {
	if payload == nil {
		return "", ErrNoQuery
	}

	for _, ex := range extractors {
		if value, ok := ex.fn(payload); ok {
			return value, nil
		}
	}

	return "", ErrNoQuery
}

func stringField(key string) func(map[string]any) (string, bool) {
	return func(payload map[string]any) (string, bool) {
		value, ok := payload[key].(string)
		if !ok {
			return "", false
		}
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return "", false
		}
		return trimmed, true
	}
}

// fromMessages picks the last message with role "user", falling back to the
// final message of the transcript, and extracts its text content.
func fromMessages(payload map[string]any) (string, bool) {
	raw, ok := payload["messages"].([]any)
	if !ok || len(raw) == 0 {
		return "", false
	}

	var candidate map[string]any
	for i := len(raw) - 1; i >= 0; i-- {
		msg, ok := raw[i].(map[string]any)
		if !ok {
			continue
		}
		if role, _ := msg["role"].(string); role == "user" {
			candidate = msg
			break
		}
	}
	if candidate == nil {
		candidate, ok = raw[len(raw)-1].(map[string]any)
		if !ok {
			return "", false
		}
	}

	return messageText(candidate)
}

// messageText reads a message's text: a string content field when present,
// otherwise the concatenation of its text-typed parts.
func messageText(msg map[string]any) (string, bool) {
	if text, ok := msg["content"].(string); ok {
		trimmed := strings.TrimSpace(text)
		if trimmed != "" {
			return trimmed, true
		}
	}

	parts, ok := msg["parts"].([]any)
	if !ok {
		return "", false
	}

	var collected []string
	for _, raw := range parts {
		part, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if partType, _ := part["type"].(string); partType != "text" {
			continue
		}
		if text, ok := part["text"].(string); ok && text != "" {
			collected = append(collected, text)
		}
	}

	joined := strings.TrimSpace(strings.Join(collected, "\n"))
	if joined == "" {
		return "", false
	}
	return joined, true
}
