package suggestion

import (
	"encoding/json"
	"strings"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

type rawPosition struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// rawSuggestion keeps the optional structured fields raw so a malformed one
// falls back to its default instead of dropping the entry.
type rawSuggestion struct {
	Category      string          `json:"category"`
	Severity      string          `json:"severity"`
	Message       string          `json:"message"`
	OriginalText  string          `json:"originalText"`
	SuggestedText *string         `json:"suggestedText"`
	Alternatives  json.RawMessage `json:"alternatives"`
	Position      json.RawMessage `json:"position"`
	Explanation   string          `json:"explanation"`
}

type rawAnalysis struct {
	Tone             string            `json:"tone"`
	ReadabilityScore float64           `json:"readabilityScore"`
	GradeLevel       float64           `json:"gradeLevel"`
	Sentiment        string            `json:"sentiment"`
	Themes           []string          `json:"themes"`
	Strengths        []string          `json:"strengths"`
	Improvements     []string          `json:"improvements"`
	Suggestions      []json.RawMessage `json:"suggestions"`
}

// ParseSuggestions reads a suggestions array, or an object carrying one under
// "suggestions". Anything unreadable yields an empty list; entries that fail
// to decode are skipped. Every suggestion gets a fresh id from newID.
func ParseSuggestions(raw string, newID func() string) []domain.Suggestion {
	payload := stripCodeFence(raw)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(extractJSON(payload, '[', ']')), &items); err != nil {
		var wrapper struct {
			Suggestions []json.RawMessage `json:"suggestions"`
		}
		if err := json.Unmarshal([]byte(extractJSON(payload, '{', '}')), &wrapper); err != nil {
			return []domain.Suggestion{}
		}
		items = wrapper.Suggestions
	}
	return decodeSuggestions(items, newID)
}

// ParseAnalysis reads the analysis object. Unreadable payloads yield a neutral,
// empty result rather than an error.
func ParseAnalysis(raw string, newID func() string) domain.AnalysisResult {
	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(extractJSON(stripCodeFence(raw), '{', '}')), &parsed); err != nil {
		return emptyAnalysis()
	}

	result := domain.AnalysisResult{
		Tone:             domain.ParseRemoteTone(strings.ToLower(strings.TrimSpace(parsed.Tone))),
		ReadabilityScore: parsed.ReadabilityScore,
		GradeLevel:       parsed.GradeLevel,
		Sentiment:        parsed.Sentiment,
		Themes:           nonNil(parsed.Themes),
		Strengths:        nonNil(parsed.Strengths),
		Improvements:     nonNil(parsed.Improvements),
		Suggestions:      decodeSuggestions(parsed.Suggestions, newID),
	}
	return result
}

func emptyAnalysis() domain.AnalysisResult {
	return domain.AnalysisResult{
		Tone:         domain.RemoteToneNeutral,
		Themes:       []string{},
		Strengths:    []string{},
		Improvements: []string{},
		Suggestions:  []domain.Suggestion{},
	}
}

func decodeSuggestions(items []json.RawMessage, newID func() string) []domain.Suggestion {
	out := make([]domain.Suggestion, 0, len(items))
	for _, item := range items {
		if string(item) == "null" {
			continue
		}
		var rs rawSuggestion
		if err := json.Unmarshal(item, &rs); err != nil {
			continue
		}

		s := domain.Suggestion{
			ID:            newID(),
			Category:      domain.ParseCategory(strings.ToLower(strings.TrimSpace(rs.Category))),
			Severity:      domain.ParseSeverity(strings.ToLower(strings.TrimSpace(rs.Severity))),
			Message:       rs.Message,
			OriginalText:  rs.OriginalText,
			SuggestedText: rs.SuggestedText,
			Alternatives:  decodeAlternatives(rs.Alternatives),
			Position:      decodePosition(rs.Position),
			Explanation:   rs.Explanation,
		}
		out = append(out, s)
	}
	return out
}

func decodeAlternatives(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var alternatives []string
	if err := json.Unmarshal(raw, &alternatives); err != nil {
		return nil
	}
	return alternatives
}

func decodePosition(raw json.RawMessage) domain.TextRange {
	if len(raw) == 0 {
		return domain.TextRange{}
	}
	var pos rawPosition
	if err := json.Unmarshal(raw, &pos); err != nil {
		return domain.TextRange{}
	}
	return domain.TextRange{Start: pos.Start, End: pos.End}
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		trimmed = trimmed[newline+1:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "json")
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

func extractJSON(raw string, open, close byte) string {
	start := strings.IndexByte(raw, open)
	end := strings.LastIndexByte(raw, close)
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
