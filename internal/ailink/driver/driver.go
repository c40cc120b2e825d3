package driver

import (
	"context"

	"github.com/asklens/asklens/internal/ailink/content"
)

// Driver defines the interface for AI completion providers.
type Driver interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "groq").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// StreamingDriver is implemented by drivers that can relay completions
// incrementally as the provider produces them.
type StreamingDriver interface {
	Driver
	// CompleteStream sends a completion request and returns a token stream.
	// The caller must Close the stream.
	CompleteStream(ctx context.Context, req *Request) (Stream, error)
}

// Stream yields completion text chunks as the provider emits them.
// Recv returns io.EOF when the stream is exhausted.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsStreaming bool
	SupportedModels   []string
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	Messages    []content.Message
	Temperature *float64
	MaxTokens   *int
	PromptSlug  string
	Metadata    map[string]string
}

// Response is a provider-agnostic completion response.
type Response struct {
	Content      []content.ContentBlock
	FinishReason string
	Usage        *Usage
}
