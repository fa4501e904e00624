package mcpadapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/writing-assistant/internal/core/analysis"
	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
	"github.com/kirillkom/writing-assistant/internal/core/usecase"
)

var modeNames = []string{
	string(domain.ModeTechnical),
	string(domain.ModeCreative),
	string(domain.ModeBusiness),
	string(domain.ModeCasual),
}

type ToneOutput struct {
	Tone domain.ToneLabel `json:"tone"`
}

type SuggestEditsOutput struct {
	Mode        domain.WritingMode  `json:"mode"`
	Suggestions []domain.Suggestion `json:"suggestions"`
	Count       int                 `json:"count"`
}

func (s *Server) registerTools() {
	textArg := mcp.WithString("text", mcp.Required(), mcp.Description("the text to inspect"))

	s.server.AddTool(mcp.NewTool("text_statistics",
		mcp.WithDescription("Count words, characters, sentences and paragraphs and estimate reading time"),
		mcp.WithReadOnlyHintAnnotation(true),
		textArg,
	), s.handleTextStatistics)

	s.server.AddTool(mcp.NewTool("readability_score",
		mcp.WithDescription("Flesch reading ease score (0-100) with a grade label"),
		mcp.WithReadOnlyHintAnnotation(true),
		textArg,
	), s.handleReadability)

	s.server.AddTool(mcp.NewTool("classify_tone",
		mcp.WithDescription("Keyword based tone: formal, casual, technical, creative or neutral"),
		mcp.WithReadOnlyHintAnnotation(true),
		textArg,
	), s.handleClassifyTone)

	s.server.AddTool(mcp.NewTool("suggest_edits",
		mcp.WithDescription("Ask the writing model for grammar, style and clarity suggestions"),
		textArg,
		mcp.WithString("mode", mcp.Enum(modeNames...), mcp.Description("writing mode, defaults to the server mode")),
	), s.handleSuggestEdits)
}

func (s *Server) handleTextStatistics(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultJSON(analysis.ComputeStatistics(text))
}

func (s *Server) handleReadability(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultJSON(analysis.Readability(text))
}

func (s *Server) handleClassifyTone(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultJSON(ToneOutput{Tone: analysis.ClassifyTone(text)})
}

// handleSuggestEdits reports provider failures as tool errors carrying the
// user-safe message.
func (s *Server) handleSuggestEdits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text is blank"), nil
	}

	mode := s.defaultMode
	if raw := req.GetString("mode", ""); raw != "" {
		parsed, ok := domain.ParseWritingMode(raw)
		if !ok {
			return mcp.NewToolResultErrorf("unknown writing mode %q", raw), nil
		}
		mode = parsed
	}

	suggestions, err := s.suggestions.FetchSuggestions(ctx, text, mode, ports.RequestOptions{})
	if err != nil {
		s.logger.Warn("mcp_suggest_edits_failed", "mode", string(mode), "error", err)
		if apiErr, ok := domain.AsAPIError(err); ok {
			return mcp.NewToolResultError(fmt.Sprintf("%s (%s)", apiErr.Message, apiErr.Code)), nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return mcp.NewToolResultErrorFromErr("suggestion request failed", err), nil
	}

	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}
	usecase.SortBySeverity(suggestions)
	return mcp.NewToolResultJSON(SuggestEditsOutput{
		Mode:        mode,
		Suggestions: suggestions,
		Count:       len(suggestions),
	})
}
