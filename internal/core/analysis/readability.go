package analysis

import (
	"math"
	"strings"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

// Score returns the Flesch Reading Ease of text, rounded and clamped to
// [0, 100]. Blank text scores 0.
func Score(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	words := strings.Fields(text)
	wordCount := max(len(words), 1)
	sentenceCount := max(countSentences(text), 1)

	syllables := 0
	for _, word := range words {
		syllables += CountSyllables(word)
	}

	score := 206.835 -
		1.015*(float64(wordCount)/float64(sentenceCount)) -
		84.6*(float64(syllables)/float64(wordCount))

	return int(math.Round(math.Max(0, math.Min(100, score))))
}

func Readability(text string) domain.ReadabilityResult {
	score := Score(text)
	return domain.ReadabilityResult{
		Score: score,
		Grade: GradeLabel(score),
	}
}

func GradeLabel(score int) string {
	switch {
	case score >= 90:
		return "very easy"
	case score >= 80:
		return "easy"
	case score >= 70:
		return "fairly easy"
	case score >= 60:
		return "standard"
	case score >= 50:
		return "fairly difficult"
	case score >= 30:
		return "difficult"
	default:
		return "very difficult"
	}
}

// CountSyllables estimates syllables by counting vowel groups. Words of three
// letters or fewer count as one; the result is never below one.
func CountSyllables(word string) int {
	letters := make([]byte, 0, len(word))
	for _, r := range strings.ToLower(word) {
		if r >= 'a' && r <= 'z' {
			letters = append(letters, byte(r))
		}
	}
	if len(letters) <= 3 {
		return 1
	}

	count := 0
	inGroup := false
	for _, c := range letters {
		if isVowel(c) {
			if !inGroup {
				count++
			}
			inGroup = true
			continue
		}
		inGroup = false
	}

	n := len(letters)
	if letters[n-1] == 'e' {
		count--
		if letters[n-2] == 'l' && !isVowel(letters[n-3]) {
			count++
		}
	}

	return max(count, 1)
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	default:
		return false
	}
}
