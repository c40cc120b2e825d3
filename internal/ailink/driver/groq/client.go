package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asklens/asklens/internal/ailink/driver"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Client implements the Groq driver via direct HTTP.
//
// Groq exposes an OpenAI-compatible chat completions API, including SSE
// streaming, at api.groq.com/openai/v1.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}

	return &Client{
		BaseURL: url,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "groq"
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsStreaming: true,
	}
}

// Complete sends a chat completion request and waits for the full response.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	start := time.Now()

	resp, respBody, err := c.post(ctx, req, false)
	if err != nil {
		traceRequest(req, resp, respBody, err, start)
		return nil, err
	}
	traceRequest(req, resp, respBody, nil, start)

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return toDriverResponse(&parsed)
}

// CompleteStream sends a chat completion request with streaming enabled and
// returns a token stream. The caller must Close the stream.
func (c *Client) CompleteStream(ctx context.Context, req *driver.Request) (driver.Stream, error) {
	if c == nil {
		return nil, fmt.Errorf("groq client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, err := buildChatRequest(req, true)
	if err != nil {
		return nil, err
	}

	httpReq, err := c.buildHTTPRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, &driver.ProviderError{Provider: "groq", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody)), RawResponse: respBody}
	}

	return newSSEStream(resp.Body), nil
}

func (c *Client) post(ctx context.Context, req *driver.Request, stream bool) (*http.Response, []byte, error) {
	if c == nil {
		return nil, nil, fmt.Errorf("groq client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, nil, fmt.Errorf("api key is required")
	}

	payload, err := buildChatRequest(req, stream)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	httpReq, err := c.buildHTTPRequest(ctx, payload)
	if err != nil {
		return nil, nil, err
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp, respBody, &driver.ProviderError{Provider: "groq", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody)), RawResponse: respBody}
	}

	return resp, respBody, nil
}

func (c *Client) buildHTTPRequest(ctx context.Context, payload *chatCompletionRequest) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

func traceRequest(req *driver.Request, resp *http.Response, respBody []byte, err error, start time.Time) {
	if !driver.IsTracingEnabled() {
		return
	}

	entry := driver.TraceEntry{
		Driver:     "groq",
		Endpoint:   "/chat/completions",
		Method:     http.MethodPost,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if req != nil {
		entry.Model = req.Model
	}
	if resp != nil {
		entry.StatusCode = resp.StatusCode
	}
	if len(respBody) > 0 && json.Valid(respBody) {
		entry.Response = respBody
	}
	if err != nil {
		entry.Error = err.Error()
	}
	driver.Trace(entry)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
