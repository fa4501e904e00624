// Package analysis holds the local, synchronous text heuristics: counts,
// Flesch readability and keyword tone detection. Every function is pure and
// cheap enough to run on each keystroke.
package analysis

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

const wordsPerMinute = 200

var (
	sentenceSeparator  = regexp.MustCompile(`[.!?]+`)
	paragraphSeparator = regexp.MustCompile(`\n\s*\n`)
)

// ComputeStatistics derives counts from text. Abbreviations such as "Dr." end
// a sentence; this matches the counting used by the readability score.
func ComputeStatistics(text string) domain.TextStatistics {
	if strings.TrimSpace(text) == "" {
		return domain.TextStatistics{}
	}

	words := len(strings.Fields(text))
	characters := utf8.RuneCountInString(text)
	sentences := countSentences(text)

	avg := 0.0
	if sentences > 0 {
		avg = math.Round(float64(words)/float64(sentences)*10) / 10
	}

	return domain.TextStatistics{
		WordCount:              words,
		CharacterCount:         characters,
		CharacterCountNoSpaces: characters - countWhitespace(text),
		SentenceCount:          sentences,
		ParagraphCount:         countParagraphs(text),
		AvgWordsPerSentence:    avg,
		ReadingTimeMinutes:     int(math.Ceil(float64(words) / wordsPerMinute)),
	}
}

func countSentences(text string) int {
	return countNonBlank(sentenceSeparator.Split(text, -1))
}

func countParagraphs(text string) int {
	return countNonBlank(paragraphSeparator.Split(text, -1))
}

func countNonBlank(fragments []string) int {
	n := 0
	for _, fragment := range fragments {
		if strings.TrimSpace(fragment) != "" {
			n++
		}
	}
	return n
}

func countWhitespace(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
