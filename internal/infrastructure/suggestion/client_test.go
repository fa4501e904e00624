package suggestion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/llm"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/resilience"
)

type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	requests  []domain.CompletionRequest
}

func (c *scriptedCompleter) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := len(c.requests)
	c.requests = append(c.requests, req)
	if idx < len(c.errs) && c.errs[idx] != nil {
		return "", c.errs[idx]
	}
	if idx < len(c.responses) {
		return c.responses[idx], nil
	}
	return "[]", nil
}

func (c *scriptedCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

type noSleep struct {
	delays []time.Duration
}

func (s *noSleep) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestClient(completer ports.TextCompleter, sleeper *noSleep) *Client {
	exec := resilience.NewExecutor(resilience.Config{
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
		BreakerEnabled: false,
	}, resilience.WithSleeper(sleeper.sleep))

	n := 0
	return New(completer, exec, Options{NewID: func() string {
		n++
		return "s" + string(rune('0'+n))
	}})
}

func TestFetchSuggestionsSkipsBlankText(t *testing.T) {
	completer := &scriptedCompleter{}
	client := newTestClient(completer, &noSleep{})

	got, err := client.FetchSuggestions(context.Background(), "   \n\t", domain.ModeBusiness, ports.RequestOptions{})
	if err != nil {
		t.Fatalf("FetchSuggestions() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no suggestions, got %d", len(got))
	}
	if completer.calls() != 0 {
		t.Fatalf("expected no provider call, got %d", completer.calls())
	}
}

func TestFetchSuggestionsParsesFencedPayload(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"```json\n" + `[
		{"category":"grammar","severity":"error","message":"Subject-verb agreement","originalText":"they was","suggestedText":"they were","position":{"start":4,"end":12}},
		{"category":"mystery","severity":"loud","message":"Consider rewording","originalText":"very unique"}
	]` + "\n```"}}
	client := newTestClient(completer, &noSleep{})

	got, err := client.FetchSuggestions(context.Background(), "And they was very unique.", domain.ModeTechnical, ports.RequestOptions{})
	if err != nil {
		t.Fatalf("FetchSuggestions() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].ID != "s1" || got[1].ID != "s2" {
		t.Fatalf("unexpected ids: %q %q", got[0].ID, got[1].ID)
	}
	if got[0].Category != domain.CategoryGrammar || got[0].Severity != domain.SeverityError {
		t.Fatalf("unexpected first suggestion: %+v", got[0])
	}
	if got[0].SuggestedText == nil || *got[0].SuggestedText != "they were" {
		t.Fatalf("unexpected suggested text: %v", got[0].SuggestedText)
	}
	if got[0].Position != (domain.TextRange{Start: 4, End: 12}) {
		t.Fatalf("unexpected position: %+v", got[0].Position)
	}
	if got[1].Category != domain.CategoryStyle || got[1].Severity != domain.SeveritySuggestion {
		t.Fatalf("expected defaults for unknown category and severity, got %+v", got[1])
	}
	if got[1].Position != (domain.TextRange{}) {
		t.Fatalf("expected zero position, got %+v", got[1].Position)
	}

	req := completer.requests[0]
	if !req.JSON {
		t.Fatalf("expected JSON response format")
	}
	if req.System != modeInstructions[domain.ModeTechnical] {
		t.Fatalf("expected technical system prompt, got %q", req.System)
	}
	if !strings.Contains(req.Prompt, "And they was very unique.") {
		t.Fatalf("prompt does not contain the text")
	}
}

func TestFetchSuggestionsDropsTextNotInDocument(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`[
		{"message":"invented","originalText":"absent phrase","suggestedText":"x"},
		{"message":"animal","originalText":"cat","suggestedText":"dog"},
		{"message":"general advice"}
	]`}}
	client := newTestClient(completer, &noSleep{})

	got, err := client.FetchSuggestions(context.Background(), "The cat sat on the mat.", domain.ModeCasual, ports.RequestOptions{})
	if err != nil {
		t.Fatalf("FetchSuggestions() error = %v", err)
	}
	if len(got) != 2 || got[0].Message != "animal" || got[1].Message != "general advice" {
		t.Fatalf("unexpected suggestions: %+v", got)
	}
}

func TestAnalyzeDropsTextNotInDocument(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`{"tone":"neutral","suggestions":[
		{"message":"invented","originalText":"absent phrase"},
		{"message":"kept","originalText":"mat"}
	]}`}}
	client := newTestClient(completer, &noSleep{})

	got, err := client.Analyze(context.Background(), "The cat sat on the mat.", domain.ModeCasual, ports.RequestOptions{})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0].Message != "kept" {
		t.Fatalf("unexpected suggestions: %+v", got.Suggestions)
	}
}

func TestFetchSuggestionsTemperature(t *testing.T) {
	completer := &scriptedCompleter{}
	client := newTestClient(completer, &noSleep{})
	ctx := context.Background()

	if _, err := client.FetchSuggestions(ctx, "Some text here.", domain.ModeBusiness, ports.RequestOptions{}); err != nil {
		t.Fatalf("FetchSuggestions() error = %v", err)
	}
	zero := 0.0
	if _, err := client.FetchSuggestions(ctx, "Some text here.", domain.ModeBusiness, ports.RequestOptions{Temperature: &zero}); err != nil {
		t.Fatalf("FetchSuggestions() error = %v", err)
	}

	if got := completer.requests[0].Temperature; got == nil || *got != 0.3 {
		t.Fatalf("expected default temperature 0.3, got %v", got)
	}
	if got := completer.requests[1].Temperature; got == nil || *got != 0 {
		t.Fatalf("expected explicit zero temperature, got %v", got)
	}
}

func TestFetchSuggestionsMalformedPayloadIsEmpty(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"I could not find anything [ broken"}}
	client := newTestClient(completer, &noSleep{})

	got, err := client.FetchSuggestions(context.Background(), "Some text here.", domain.ModeCasual, ports.RequestOptions{})
	if err != nil {
		t.Fatalf("FetchSuggestions() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestFetchSuggestionsRetriesRateLimit(t *testing.T) {
	rateLimited := &llm.HTTPStatusError{Provider: "test", Operation: "complete", StatusCode: 429, Status: "429 Too Many Requests"}
	completer := &scriptedCompleter{
		errs:      []error{rateLimited, rateLimited, nil},
		responses: []string{"", "", `[{"message":"ok","originalText":"x"}]`},
	}
	sleeper := &noSleep{}
	client := newTestClient(completer, sleeper)

	var attempts []int
	got, err := client.FetchSuggestions(context.Background(), "Some text here.", domain.ModeBusiness, ports.RequestOptions{
		OnRetry: func(attempt int, _ time.Duration, apiErr *domain.APIError) {
			if apiErr.Code != domain.CodeRateLimited {
				t.Errorf("unexpected retry code %s", apiErr.Code)
			}
			attempts = append(attempts, attempt)
		},
	})
	if err != nil {
		t.Fatalf("FetchSuggestions() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	if completer.calls() != 3 {
		t.Fatalf("expected 3 calls, got %d", completer.calls())
	}
	if len(sleeper.delays) != 2 || sleeper.delays[0] != time.Second || sleeper.delays[1] != 2*time.Second {
		t.Fatalf("unexpected backoff delays: %v", sleeper.delays)
	}
	if len(attempts) != 2 || attempts[0] != 0 || attempts[1] != 1 {
		t.Fatalf("unexpected retry attempts: %v", attempts)
	}
}

func TestFetchSuggestionsUnauthorizedIsTerminal(t *testing.T) {
	completer := &scriptedCompleter{errs: []error{
		&llm.HTTPStatusError{Provider: "test", Operation: "complete", StatusCode: 401, Status: "401 Unauthorized"},
	}}
	client := newTestClient(completer, &noSleep{})

	_, err := client.FetchSuggestions(context.Background(), "Some text here.", domain.ModeBusiness, ports.RequestOptions{})
	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != domain.CodeUnauthorized || apiErr.Retryable {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized kind")
	}
	if completer.calls() != 1 {
		t.Fatalf("expected a single call, got %d", completer.calls())
	}
}

func TestAnalyzeRejectsBlankText(t *testing.T) {
	completer := &scriptedCompleter{}
	client := newTestClient(completer, &noSleep{})

	_, err := client.Analyze(context.Background(), " ", domain.ModeBusiness, ports.RequestOptions{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if completer.calls() != 0 {
		t.Fatalf("expected no provider call")
	}
}

func TestAnalyzeParsesResult(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`Here you go:
{"tone":"Professional","readabilityScore":62.5,"gradeLevel":9,"sentiment":"positive",
 "themes":["growth"],"strengths":["clear"],"suggestions":[{"category":"clarity","severity":"info","message":"Split sentence","originalText":"and then"}]}`}}
	client := newTestClient(completer, &noSleep{})

	got, err := client.Analyze(context.Background(), "We grew and then we grew more.", domain.ModeBusiness, ports.RequestOptions{MaxTokens: 900})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got.Tone != domain.RemoteToneProfessional {
		t.Fatalf("unexpected tone %q", got.Tone)
	}
	if got.ReadabilityScore != 62.5 || got.GradeLevel != 9 {
		t.Fatalf("unexpected scores: %+v", got)
	}
	if len(got.Improvements) != 0 || got.Improvements == nil {
		t.Fatalf("expected empty improvements, got %#v", got.Improvements)
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0].Category != domain.CategoryClarity {
		t.Fatalf("unexpected suggestions: %+v", got.Suggestions)
	}
	if completer.requests[0].MaxTokens != 900 {
		t.Fatalf("expected max tokens override, got %d", completer.requests[0].MaxTokens)
	}
}

func TestParseSuggestionsAcceptsWrappedObject(t *testing.T) {
	got := ParseSuggestions(`{"suggestions":[null,{"message":"a"},"bad",{"message":"b"}]}`, func() string { return "id" })
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].Message != "a" || got[1].Message != "b" {
		t.Fatalf("unexpected messages: %+v", got)
	}
}

func TestParseSuggestionsToleratesMalformedOptionalFields(t *testing.T) {
	got := ParseSuggestions(`[
		{"message":"bad position","position":{"start":"3"},"alternatives":["a","b"]},
		{"message":"bad alternatives","alternatives":"one","position":{"start":1,"end":4}}
	]`, func() string { return "id" })
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].Position != (domain.TextRange{}) || len(got[0].Alternatives) != 2 {
		t.Fatalf("unexpected first suggestion: %+v", got[0])
	}
	if got[1].Alternatives != nil || got[1].Position != (domain.TextRange{Start: 1, End: 4}) {
		t.Fatalf("unexpected second suggestion: %+v", got[1])
	}
}

func TestParseAnalysisMalformedIsNeutral(t *testing.T) {
	got := ParseAnalysis("not json", func() string { return "id" })
	if got.Tone != domain.RemoteToneNeutral {
		t.Fatalf("expected neutral tone, got %q", got.Tone)
	}
	if got.Suggestions == nil || len(got.Suggestions) != 0 {
		t.Fatalf("expected empty suggestions")
	}
}

func TestSnippetTruncatesLongText(t *testing.T) {
	long := strings.Repeat("é", maxSnippetRunes+10)
	if got := []rune(snippet(long)); len(got) != maxSnippetRunes {
		t.Fatalf("expected %d runes, got %d", maxSnippetRunes, len(got))
	}
}
