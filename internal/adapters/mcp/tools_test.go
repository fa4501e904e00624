package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
)

type suggestionServiceFake struct {
	suggestions []domain.Suggestion
	err         error
	modes       []domain.WritingMode
}

func (f *suggestionServiceFake) FetchSuggestions(_ context.Context, _ string, mode domain.WritingMode, _ ports.RequestOptions) ([]domain.Suggestion, error) {
	f.modes = append(f.modes, mode)
	return f.suggestions, f.err
}

func (f *suggestionServiceFake) Analyze(context.Context, string, domain.WritingMode, ports.RequestOptions) (*domain.AnalysisResult, error) {
	return nil, errors.New("not used")
}

func newTestServer(t *testing.T, service *suggestionServiceFake) *Server {
	t.Helper()
	s, err := NewServer(service, domain.ModeTechnical, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.server.GetTool(name)
	if tool == nil {
		t.Fatalf("tool %s is not registered", name)
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := tool.Handler(context.Background(), req)
	if err != nil {
		t.Fatalf("%s handler error = %v", name, err)
	}
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestNewServerRequiresService(t *testing.T) {
	if _, err := NewServer(nil, domain.ModeBusiness, nil); !errors.Is(err, ErrMissingSuggestionService) {
		t.Fatalf("expected ErrMissingSuggestionService, got %v", err)
	}
}

func TestRegistersAllTools(t *testing.T) {
	s := newTestServer(t, &suggestionServiceFake{})
	for _, name := range []string{"text_statistics", "readability_score", "classify_tone", "suggest_edits"} {
		if s.server.GetTool(name) == nil {
			t.Fatalf("tool %s is missing", name)
		}
	}
}

func TestTextStatisticsTool(t *testing.T) {
	s := newTestServer(t, &suggestionServiceFake{})
	result := callTool(t, s, "text_statistics", map[string]any{"text": "Hello there. General Kenobi!"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var stats domain.TextStatistics
	if err := json.Unmarshal([]byte(resultText(t, result)), &stats); err != nil {
		t.Fatalf("decode statistics: %v", err)
	}
	if stats.WordCount != 4 || stats.SentenceCount != 2 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
}

func TestLocalToolsRequireText(t *testing.T) {
	s := newTestServer(t, &suggestionServiceFake{})
	for _, name := range []string{"text_statistics", "readability_score", "classify_tone", "suggest_edits"} {
		result := callTool(t, s, name, map[string]any{})
		if !result.IsError {
			t.Fatalf("%s: expected a tool error without text", name)
		}
	}
}

func TestReadabilityAndToneTools(t *testing.T) {
	s := newTestServer(t, &suggestionServiceFake{})

	var readability domain.ReadabilityResult
	result := callTool(t, s, "readability_score", map[string]any{"text": "The cat sat on the mat."})
	if err := json.Unmarshal([]byte(resultText(t, result)), &readability); err != nil {
		t.Fatalf("decode readability: %v", err)
	}
	if readability.Score < 80 || readability.Grade == "" {
		t.Fatalf("expected an easy score, got %+v", readability)
	}

	var tone ToneOutput
	result = callTool(t, s, "classify_tone", map[string]any{"text": "Therefore, we must consider the consequences."})
	if err := json.Unmarshal([]byte(resultText(t, result)), &tone); err != nil {
		t.Fatalf("decode tone: %v", err)
	}
	if tone.Tone != domain.ToneFormal {
		t.Fatalf("expected formal tone, got %q", tone.Tone)
	}
}

func TestSuggestEditsTool(t *testing.T) {
	service := &suggestionServiceFake{suggestions: []domain.Suggestion{
		{ID: "a", Severity: domain.SeverityInfo},
		{ID: "b", Severity: domain.SeverityError},
	}}
	s := newTestServer(t, service)

	result := callTool(t, s, "suggest_edits", map[string]any{"text": "some draft"})
	var out SuggestEditsOutput
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("decode suggestions: %v", err)
	}
	if out.Count != 2 || out.Suggestions[0].ID != "b" {
		t.Fatalf("expected severity order, got %+v", out)
	}
	if out.Mode != domain.ModeTechnical || service.modes[0] != domain.ModeTechnical {
		t.Fatalf("expected the default mode, got %s", out.Mode)
	}

	callTool(t, s, "suggest_edits", map[string]any{"text": "some draft", "mode": "casual"})
	if service.modes[1] != domain.ModeCasual {
		t.Fatalf("expected casual mode, got %s", service.modes[1])
	}

	result = callTool(t, s, "suggest_edits", map[string]any{"text": "some draft", "mode": "poetry"})
	if !result.IsError {
		t.Fatalf("expected a tool error for an unknown mode")
	}
}

func TestSuggestEditsReportsProviderErrors(t *testing.T) {
	service := &suggestionServiceFake{err: &domain.APIError{
		Code:      domain.CodeRateLimited,
		Message:   "Too many requests. Please wait a moment.",
		Retryable: true,
	}}
	s := newTestServer(t, service)

	result := callTool(t, s, "suggest_edits", map[string]any{"text": "some draft"})
	if !result.IsError {
		t.Fatalf("expected a tool error")
	}
	if text := resultText(t, result); !strings.Contains(text, "rate_limited") {
		t.Fatalf("expected the error code in %q", text)
	}
}
