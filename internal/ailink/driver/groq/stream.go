package groq

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// sseStream decodes a text/event-stream chat completion response into text
// chunks. Each SSE data line carries a JSON chunk whose choices[0].delta.content
// holds the next token; the stream terminates with a `[DONE]` sentinel.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

type streamChunk struct {
	Choices []streamChoice `json:"choices"`
}

type streamChoice struct {
	Delta        streamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type streamDelta struct {
	Content string `json:"content"`
}

func newSSEStream(body io.ReadCloser) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseStream{body: body, scanner: scanner}
}

// Recv returns the next non-empty text chunk. It returns io.EOF once the
// provider signals completion.
func (s *sseStream) Recv() (string, error) {
	if s == nil || s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			s.done = true
			return "", io.EOF
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed keep-alive frames rather than aborting mid-stream.
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			return text, nil
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", err
	}

	s.done = true
	return "", io.EOF
}

// Close releases the underlying response body.
func (s *sseStream) Close() error {
	if s == nil || s.body == nil {
		return nil
	}
	return s.body.Close()
}
