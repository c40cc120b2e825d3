package ailink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asklens/asklens/internal/ailink/content"
	"github.com/asklens/asklens/internal/ailink/driver"
	"github.com/asklens/asklens/internal/ailink/prompt"
)

const (
	// DefaultAnswerRole routes answer requests through provider routing config.
	DefaultAnswerRole = "answer"

	// DefaultAnswerPrompt is the built-in prompt slug for grounded answers.
	DefaultAnswerPrompt = "web-answer"
)

// AnswerRequest is the high-level request for a grounded answer completion.
type AnswerRequest struct {
	Role       string
	PromptSlug string
	Model      string

	// Query is the extracted user query.
	Query string
	// Context is the serialized search result set the answer is grounded in.
	Context string

	TimeoutSec int
}

// Service renders answer prompts and dispatches them to the configured
// provider. It owns the prompt registry and the provider registry.
type Service struct {
	registry *Registry
	prompts  prompt.Registry
}

// NewService builds a Service from config. Prompts from cfg.PromptsDir
// override embedded defaults by slug.
func NewService(cfg Config) (*Service, error) {
	defs, err := prompt.LoadDefaults()
	if err != nil {
		return nil, fmt.Errorf("load default prompts: %w", err)
	}

	if dir := strings.TrimSpace(cfg.PromptsDir); dir != "" {
		overrides, err := prompt.LoadFromDir(dir)
		if err != nil {
			return nil, fmt.Errorf("load prompts from %s: %w", dir, err)
		}
		defs = mergePrompts(defs, overrides)
	}

	prompts, err := prompt.NewRegistry(defs)
	if err != nil {
		return nil, err
	}

	return &Service{
		registry: NewRegistry(cfg),
		prompts:  prompts,
	}, nil
}

// Prompts exposes the prompt registry.
func (s *Service) Prompts() prompt.Registry {
	if s == nil {
		return nil
	}
	return s.prompts
}

// StreamAnswer renders the answer prompt and opens a completion stream.
// The caller must Close the returned stream. Stream lifetime is governed by
// ctx, so TimeoutSec is ignored here; cancel ctx to abort a stream.
func (s *Service) StreamAnswer(ctx context.Context, req AnswerRequest) (driver.Stream, error) {
	resolved, driverReq, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	streamer, ok := resolved.Driver.(driver.StreamingDriver)
	if !ok {
		return nil, fmt.Errorf("provider %q does not support streaming", resolved.ProviderID)
	}

	return streamer.CompleteStream(ctx, driverReq)
}

// CompleteAnswer renders the answer prompt and waits for the full completion text.
func (s *Service) CompleteAnswer(ctx context.Context, req AnswerRequest) (string, error) {
	resolved, driverReq, err := s.prepare(req)
	if err != nil {
		return "", err
	}

	if req.TimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutSec)*time.Second)
		defer cancel()
	}

	resp, err := resolved.Driver.Complete(ctx, driverReq)
	if err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", errors.New("empty completion response")
	}
	return resp.Content[0].Text, nil
}

func (s *Service) prepare(req AnswerRequest) (*ResolvedProvider, *driver.Request, error) {
	if s == nil {
		return nil, nil, errors.New("ailink service not configured")
	}

	slug := strings.TrimSpace(req.PromptSlug)
	if slug == "" {
		slug = DefaultAnswerPrompt
	}
	def, err := s.prompts.Get(slug)
	if err != nil {
		return nil, nil, err
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = DefaultAnswerRole
	}
	resolved, err := s.registry.Resolve(role, def, req.Model)
	if err != nil {
		return nil, nil, err
	}

	system, user, err := prompt.Render(def, map[string]string{
		"query":   req.Query,
		"context": req.Context,
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]content.Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, content.Message{
			Role:    "system",
			Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: system}},
		})
	}
	messages = append(messages, content.Message{
		Role:    "user",
		Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: user}},
	})

	return resolved, &driver.Request{
		Model:      resolved.Model,
		Messages:   messages,
		PromptSlug: slug,
	}, nil
}

func mergePrompts(base, overrides []*prompt.Prompt) []*prompt.Prompt {
	bySlug := make(map[string]int, len(base))
	for i, def := range base {
		if def != nil {
			bySlug[def.Config.Slug] = i
		}
	}
	for _, def := range overrides {
		if def == nil {
			continue
		}
		if i, ok := bySlug[def.Config.Slug]; ok {
			base[i] = def
			continue
		}
		base = append(base, def)
	}
	return base
}
