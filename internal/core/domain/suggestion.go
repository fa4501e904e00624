package domain

import "time"

type Category string

const (
	CategoryGrammar     Category = "grammar"
	CategorySpelling    Category = "spelling"
	CategoryStyle       Category = "style"
	CategoryClarity     Category = "clarity"
	CategoryConciseness Category = "conciseness"
	CategoryTone        Category = "tone"
	CategoryStructure   Category = "structure"
)

func ParseCategory(raw string) Category {
	switch c := Category(raw); c {
	case CategoryGrammar, CategorySpelling, CategoryStyle, CategoryClarity,
		CategoryConciseness, CategoryTone, CategoryStructure:
		return c
	default:
		return CategoryStyle
	}
}

type Severity string

const (
	SeverityError      Severity = "error"
	SeverityWarning    Severity = "warning"
	SeverityInfo       Severity = "info"
	SeveritySuggestion Severity = "suggestion"
)

func ParseSeverity(raw string) Severity {
	switch s := Severity(raw); s {
	case SeverityError, SeverityWarning, SeverityInfo, SeveritySuggestion:
		return s
	default:
		return SeveritySuggestion
	}
}

// Rank orders severities for display: lower ranks are shown first.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

type TextRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Suggestion struct {
	ID            string    `json:"id"`
	Category      Category  `json:"category"`
	Severity      Severity  `json:"severity"`
	Message       string    `json:"message"`
	OriginalText  string    `json:"original_text"`
	SuggestedText *string   `json:"suggested_text,omitempty"`
	Alternatives  []string  `json:"alternatives,omitempty"`
	Position      TextRange `json:"position"`
	Explanation   string    `json:"explanation,omitempty"`
	Dismissed     bool      `json:"dismissed"`
	Applied       bool      `json:"applied"`
}

type AnalysisResult struct {
	Tone             RemoteTone   `json:"tone"`
	ReadabilityScore float64      `json:"readability_score"`
	GradeLevel       float64      `json:"grade_level"`
	Sentiment        string       `json:"sentiment,omitempty"`
	Themes           []string     `json:"themes"`
	Strengths        []string     `json:"strengths"`
	Improvements     []string     `json:"improvements"`
	Suggestions      []Suggestion `json:"suggestions"`
}

type StoredAnalysis struct {
	SessionID string         `json:"session_id"`
	Revision  uint64         `json:"revision"`
	Result    AnalysisResult `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}
