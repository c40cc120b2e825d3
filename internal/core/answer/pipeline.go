// Package answer runs the grounded-answer pipeline: extract a query from
// the request payload, search the web for it, then stream a completion
// grounded in the serialized results.
package answer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/asklens/asklens/internal/ailink"
	"github.com/asklens/asklens/internal/ailink/driver"
	"github.com/asklens/asklens/internal/core/query"
	"github.com/asklens/asklens/internal/core/search"
	"github.com/asklens/asklens/internal/metrics"
)

// AnswerService dispatches rendered answer prompts to a provider.
// *ailink.Service satisfies it.
type AnswerService interface {
	StreamAnswer(ctx context.Context, req ailink.AnswerRequest) (driver.Stream, error)
	CompleteAnswer(ctx context.Context, req ailink.AnswerRequest) (string, error)
}

// Options carries per-request overrides.
type Options struct {
	// SearchKey replaces the configured search credential for this request.
	SearchKey string
	// Model overrides the routed completion model.
	Model string
}

// Answer is the result of a pipeline run. For streamed runs the caller owns
// Stream and must Close it; for completed runs Text holds the full answer.
type Answer struct {
	Query   string
	Sources []json.RawMessage
	Stream  driver.Stream
	Text    string
}

// Pipeline wires the three stages together.
type Pipeline struct {
	searcher search.Searcher
	answers  AnswerService
	role     string
	prompt   string

	// Model is the default completion model; per-request Options.Model wins.
	Model string
}

// NewPipeline builds a pipeline. Empty role and promptSlug fall back to the
// answer service defaults.
func NewPipeline(searcher search.Searcher, answers AnswerService, role, promptSlug string) *Pipeline {
	return &Pipeline{
		searcher: searcher,
		answers:  answers,
		role:     role,
		prompt:   promptSlug,
	}
}

func (p *Pipeline) model(opts Options) string {
	if opts.Model != "" {
		return opts.Model
	}
	return p.Model
}

// Run executes extract, search, and stream in order. Any stage failure
// aborts the run; later stages never see a failed stage's output.
func (p *Pipeline) Run(ctx context.Context, payload map[string]any, opts Options) (*Answer, error) {
	q, sources, contextJSON, err := p.ground(ctx, payload, opts)
	if err != nil {
		return nil, err
	}

	stream, err := p.answers.StreamAnswer(ctx, ailink.AnswerRequest{
		Role:       p.role,
		PromptSlug: p.prompt,
		Model:      p.model(opts),
		Query:      q,
		Context:    contextJSON,
	})
	if err != nil {
		metrics.RecordOperation("completion", false)
		metrics.RecordOperationError("completion", ailink.ErrorCode(err))
		return nil, err
	}
	metrics.RecordOperation("completion", true)

	return &Answer{Query: q, Sources: sources, Stream: stream}, nil
}

// RunComplete executes the same pipeline but waits for the full answer text
// instead of opening a stream.
func (p *Pipeline) RunComplete(ctx context.Context, payload map[string]any, opts Options) (*Answer, error) {
	q, sources, contextJSON, err := p.ground(ctx, payload, opts)
	if err != nil {
		return nil, err
	}

	text, err := p.answers.CompleteAnswer(ctx, ailink.AnswerRequest{
		Role:       p.role,
		PromptSlug: p.prompt,
		Model:      p.model(opts),
		Query:      q,
		Context:    contextJSON,
	})
	if err != nil {
		metrics.RecordOperation("completion", false)
		metrics.RecordOperationError("completion", ailink.ErrorCode(err))
		return nil, err
	}
	metrics.RecordOperation("completion", true)

	return &Answer{Query: q, Sources: sources, Text: text}, nil
}

// ground runs the extract and search stages and serializes the results.
func (p *Pipeline) ground(ctx context.Context, payload map[string]any, opts Options) (string, []json.RawMessage, string, error) {
	if p == nil || p.searcher == nil || p.answers == nil {
		return "", nil, "", errors.New("answer pipeline not configured")
	}

	q, err := query.Extract(payload)
	if err != nil {
		metrics.RecordOperation("query_extract", false)
		return "", nil, "", err
	}
	metrics.RecordOperation("query_extract", true)

	sources, err := p.searcher.Search(ctx, q, opts.SearchKey)
	if err != nil {
		metrics.RecordOperation("search", false)
		metrics.RecordOperationError("search", ailink.ErrorCode(err))
		return "", nil, "", err
	}
	metrics.RecordOperation("search", true)
	metrics.RecordSearchResults(len(sources))

	if sources == nil {
		sources = []json.RawMessage{}
	}
	contextJSON, err := json.Marshal(sources)
	if err != nil {
		return "", nil, "", fmt.Errorf("serialize search results: %w", err)
	}

	return q, sources, string(contextJSON), nil
}
