package httpadapter

import (
	"net/http"
	"strings"

	"github.com/kirillkom/writing-assistant/internal/core/analysis"
	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
	"github.com/kirillkom/writing-assistant/internal/core/usecase"
)

type textRequest struct {
	Text        string   `json:"text"`
	Mode        string   `json:"mode"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
}

type textMetricsResponse struct {
	Statistics  domain.TextStatistics    `json:"statistics"`
	Readability domain.ReadabilityResult `json:"readability"`
	Tone        domain.ToneLabel         `json:"tone"`
}

type suggestionsResponse struct {
	Mode        domain.WritingMode  `json:"mode"`
	Suggestions []domain.Suggestion `json:"suggestions"`
}

func (rt *Router) textMetrics(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, textMetricsResponse{
		Statistics:  analysis.ComputeStatistics(req.Text),
		Readability: analysis.Readability(req.Text),
		Tone:        analysis.ClassifyTone(req.Text),
	})
}

func (rt *Router) textSuggestions(w http.ResponseWriter, r *http.Request) {
	req, mode, ok := rt.decodeTextRequest(w, r)
	if !ok {
		return
	}

	suggestions, err := rt.suggestions.FetchSuggestions(r.Context(), req.Text, mode, ports.RequestOptions{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}
	usecase.SortBySeverity(suggestions)
	writeJSON(w, http.StatusOK, suggestionsResponse{Mode: mode, Suggestions: suggestions})
}

func (rt *Router) textAnalysis(w http.ResponseWriter, r *http.Request) {
	req, mode, ok := rt.decodeTextRequest(w, r)
	if !ok {
		return
	}

	result, err := rt.suggestions.Analyze(r.Context(), req.Text, mode, ports.RequestOptions{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) decodeTextRequest(w http.ResponseWriter, r *http.Request) (textRequest, domain.WritingMode, bool) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return req, "", false
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return req, "", false
	}
	mode, ok := parseMode(req.Mode, domain.WritingMode(rt.cfg.WritingMode))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown writing mode")
		return req, "", false
	}
	return req, mode, true
}
