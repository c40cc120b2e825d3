package answer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asklens/asklens/internal/ailink"
	"github.com/asklens/asklens/internal/ailink/driver"
	"github.com/asklens/asklens/internal/core/query"
)

type fakeSearcher struct {
	results []json.RawMessage
	err     error

	gotQuery string
	gotKey   string
	calls    int
}

func (f *fakeSearcher) Search(_ context.Context, q, apiKeyOverride string) ([]json.RawMessage, error) {
	f.calls++
	f.gotQuery = q
	f.gotKey = apiKeyOverride
	return f.results, f.err
}

type fakeAnswerService struct {
	streamErr error
	text      string
	chunks    []string

	gotReq ailink.AnswerRequest
	calls  int
}

func (f *fakeAnswerService) StreamAnswer(_ context.Context, req ailink.AnswerRequest) (driver.Stream, error) {
	f.calls++
	f.gotReq = req
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return &sliceStream{chunks: f.chunks}, nil
}

func (f *fakeAnswerService) CompleteAnswer(_ context.Context, req ailink.AnswerRequest) (string, error) {
	f.calls++
	f.gotReq = req
	if f.streamErr != nil {
		return "", f.streamErr
	}
	return f.text, nil
}

type sliceStream struct {
	chunks []string
	pos    int
}

func (s *sliceStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *sliceStream) Close() error { return nil }

func payload(t *testing.T, raw string) map[string]any {
	t.Helper()
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	return decoded
}

func TestRunStreamsGroundedAnswer(t *testing.T) {
	searcher := &fakeSearcher{results: []json.RawMessage{
		json.RawMessage(`{"url":"https://a"}`),
		json.RawMessage(`{"url":"https://b"}`),
	}}
	answers := &fakeAnswerService{chunks: []string{"The ", "answer"}}
	p := NewPipeline(searcher, answers, "", "")

	got, err := p.Run(context.Background(), payload(t, `{"query": "capital of France"}`), Options{})
	require.NoError(t, err)
	defer got.Stream.Close() // nolint:errcheck // test cleanup

	require.Equal(t, "capital of France", got.Query)
	require.Len(t, got.Sources, 2)
	require.Equal(t, "capital of France", searcher.gotQuery)
	require.Equal(t, "capital of France", answers.gotReq.Query)
	require.JSONEq(t, `[{"url":"https://a"},{"url":"https://b"}]`, answers.gotReq.Context)

	first, err := got.Stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "The ", first)
}

func TestRunPassesSearchKeyOverride(t *testing.T) {
	searcher := &fakeSearcher{results: []json.RawMessage{}}
	answers := &fakeAnswerService{}
	p := NewPipeline(searcher, answers, "", "")

	_, err := p.Run(context.Background(), payload(t, `{"query": "q"}`), Options{SearchKey: "per-request"})
	require.NoError(t, err)
	require.Equal(t, "per-request", searcher.gotKey)
}

func TestRunNoQuery(t *testing.T) {
	searcher := &fakeSearcher{}
	answers := &fakeAnswerService{}
	p := NewPipeline(searcher, answers, "", "")

	_, err := p.Run(context.Background(), payload(t, `{}`), Options{})
	require.ErrorIs(t, err, query.ErrNoQuery)
	require.Zero(t, searcher.calls)
	require.Zero(t, answers.calls)
}

func TestRunSearchFailureShortCircuits(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("search exploded")}
	answers := &fakeAnswerService{}
	p := NewPipeline(searcher, answers, "", "")

	_, err := p.Run(context.Background(), payload(t, `{"query": "q"}`), Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "search exploded")
	require.Zero(t, answers.calls)
}

func TestRunEmptyResultsStillAnswer(t *testing.T) {
	searcher := &fakeSearcher{results: []json.RawMessage{}}
	answers := &fakeAnswerService{chunks: []string{"no sources"}}
	p := NewPipeline(searcher, answers, "", "")

	got, err := p.Run(context.Background(), payload(t, `{"query": "q"}`), Options{})
	require.NoError(t, err)
	defer got.Stream.Close() // nolint:errcheck // test cleanup

	require.Empty(t, got.Sources)
	require.Equal(t, "[]", answers.gotReq.Context)
}

func TestRunCompleteReturnsText(t *testing.T) {
	searcher := &fakeSearcher{results: []json.RawMessage{json.RawMessage(`{"url":"https://a"}`)}}
	answers := &fakeAnswerService{text: "Paris"}
	p := NewPipeline(searcher, answers, "answer", "web-answer")

	got, err := p.RunComplete(context.Background(), payload(t, `{"query": "capital of France"}`), Options{})
	require.NoError(t, err)
	require.Equal(t, "Paris", got.Text)
	require.Nil(t, got.Stream)
	require.Equal(t, "web-answer", answers.gotReq.PromptSlug)
}
