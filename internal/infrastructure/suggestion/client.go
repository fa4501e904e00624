// Package suggestion is the client for the remote writing-analysis service:
// it builds mode-specific prompts, sends them through the resilience executor
// and parses the provider's text into suggestions.
package suggestion

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/llm"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/resilience"
)

const defaultTemperature = 0.3

type Options struct {
	MaxTokens int
	// Temperature defaults to 0.3 when nil.
	Temperature *float64
	// NewID overrides suggestion id generation, mainly for tests.
	NewID func() string
}

type Client struct {
	completer ports.TextCompleter
	executor  *resilience.Executor
	opts      Options
}

func New(completer ports.TextCompleter, executor *resilience.Executor, opts Options) *Client {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2000
	}
	if opts.Temperature == nil {
		temperature := defaultTemperature
		opts.Temperature = &temperature
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		completer: completer,
		executor:  executor,
		opts:      opts,
	}
}

func (c *Client) FetchSuggestions(
	ctx context.Context,
	text string,
	mode domain.WritingMode,
	opts ports.RequestOptions,
) ([]domain.Suggestion, error) {
	if strings.TrimSpace(text) == "" {
		return []domain.Suggestion{}, nil
	}

	raw, err := c.complete(ctx, "suggestions.fetch", c.request(buildSuggestionsPrompt(text), mode, opts), opts)
	if err != nil {
		return nil, err
	}
	return groundSuggestions(text, ParseSuggestions(raw, c.opts.NewID)), nil
}

func (c *Client) Analyze(
	ctx context.Context,
	text string,
	mode domain.WritingMode,
	opts ports.RequestOptions,
) (*domain.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze text", errors.New("text is empty"))
	}

	raw, err := c.complete(ctx, "suggestions.analyze", c.request(buildAnalysisPrompt(text), mode, opts), opts)
	if err != nil {
		return nil, err
	}
	result := ParseAnalysis(raw, c.opts.NewID)
	result.Suggestions = groundSuggestions(text, result.Suggestions)
	return &result, nil
}

func (c *Client) complete(ctx context.Context, operation string, req domain.CompletionRequest, opts ports.RequestOptions) (string, error) {
	var execOpts []resilience.ExecuteOption
	if opts.OnRetry != nil {
		execOpts = append(execOpts, resilience.OnRetry(func(ev resilience.RetryEvent) {
			opts.OnRetry(ev.Attempt, ev.Delay, ev.Err)
		}))
	}

	return resilience.Do(ctx, c.executor, operation, func(ctx context.Context) (string, error) {
		return c.completer.Complete(ctx, req)
	}, llm.ClassifyError, execOpts...)
}

func (c *Client) request(prompt string, mode domain.WritingMode, opts ports.RequestOptions) domain.CompletionRequest {
	req := domain.CompletionRequest{
		System:      systemPrompt(mode),
		Prompt:      prompt,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
		JSON:        true,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature != nil {
		req.Temperature = opts.Temperature
	}
	return req
}

// groundSuggestions drops suggestions quoting text that is not in the document.
func groundSuggestions(text string, suggestions []domain.Suggestion) []domain.Suggestion {
	out := suggestions[:0]
	for _, s := range suggestions {
		if s.OriginalText != "" && !strings.Contains(text, s.OriginalText) {
			continue
		}
		out = append(out, s)
	}
	return out
}

var _ ports.SuggestionService = (*Client)(nil)

