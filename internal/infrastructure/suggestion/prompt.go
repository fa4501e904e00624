package suggestion

import (
	"fmt"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

const maxSnippetRunes = 12000

var modeInstructions = map[domain.WritingMode]string{
	domain.ModeTechnical: "You review technical writing: documentation, specifications and engineering notes. " +
		"Prefer precise terminology, consistent naming, unambiguous steps and short sentences.",
	domain.ModeCreative: "You review creative writing: fiction, essays and personal stories. " +
		"Protect the author's voice; focus on imagery, rhythm, pacing and vivid word choice.",
	domain.ModeBusiness: "You review business writing: emails, proposals and reports. " +
		"Favour a professional tone, clear calls to action, and concise, confident phrasing.",
	domain.ModeCasual: "You review casual writing: messages, posts and informal notes. " +
		"Keep it friendly and natural; only flag errors and confusing phrasing.",
}

func systemPrompt(mode domain.WritingMode) string {
	instruction, ok := modeInstructions[mode]
	if !ok {
		instruction = modeInstructions[domain.ModeBusiness]
	}
	return instruction
}

const suggestionShape = `Each suggestion is an object with keys:
category (grammar|spelling|style|clarity|conciseness|tone|structure),
severity (error|warning|info|suggestion), message (string),
originalText (exact substring of the text), suggestedText (string, optional),
alternatives (array of strings, optional), position ({start,end} character offsets, optional),
explanation (string, optional).`

func buildSuggestionsPrompt(text string) string {
	return fmt.Sprintf(`Find concrete improvements for the text below.
Return a strict JSON array of suggestions and nothing else.
%s

Text:
%s`, suggestionShape, snippet(text))
}

func buildAnalysisPrompt(text string) string {
	return fmt.Sprintf(`Analyse the text below.
Return a strict JSON object with keys:
tone (formal|informal|professional|conversational|academic|persuasive|neutral),
readabilityScore (number 0-100), gradeLevel (number), sentiment (string),
themes (array of strings), strengths (array of strings), improvements (array of strings),
suggestions (array of suggestions).
%s
No markdown, no extra keys.

Text:
%s`, suggestionShape, snippet(text))
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= maxSnippetRunes {
		return text
	}
	return string(runes[:maxSnippetRunes])
}
