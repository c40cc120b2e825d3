package search

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

const defaultFirecrawlBaseURL = "https://api.firecrawl.dev/v1"

// Client performs web searches against a Firecrawl-compatible search API.
//
// The client does not pre-validate its credential: a missing or bad key is
// the provider's call to make and surfaces as a ProviderError.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	Limit      int
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultFirecrawlBaseURL
	}

	return &Client{
		BaseURL: url,
		APIKey:  strings.TrimSpace(apiKey),
		Limit:   DefaultLimit,
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Search runs a web search and returns normalized results. Results pass
// through verbatim as raw JSON; no fields are interpreted or reshaped.
func (c *Client) Search(ctx context.Context, query, apiKeyOverride string) ([]json.RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("search client not configured")
	}

	limit := c.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	body, err := json.Marshal(searchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/search"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	apiKey := strings.TrimSpace(apiKeyOverride)
	if apiKey == "" {
		apiKey = c.APIKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		traceSearch(nil, nil, err, start)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		traceSearch(resp, nil, err, start)
		return nil, fmt.Errorf("read response: %w", err)
	}
	traceSearch(resp, respBody, nil, start)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &driver.ProviderError{Provider: "firecrawl", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody)), RawResponse: respBody}
	}

	return Normalize(respBody)
}

func traceSearch(resp *http.Response, respBody []byte, err error, start time.Time) {
	if !driver.IsTracingEnabled() {
		return
	}

	entry := driver.TraceEntry{
		Driver:     "firecrawl",
		Endpoint:   "/search",
		Method:     http.MethodPost,
		DurationMs: time.Since(start).Milliseconds(),
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
