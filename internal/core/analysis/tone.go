package analysis

import (
	"regexp"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

type toneFamily struct {
	label    domain.ToneLabel
	patterns []*regexp.Regexp
}

// TonePrecedence breaks ties between equal non-zero family scores; earlier
// entries win.
var TonePrecedence = []domain.ToneLabel{
	domain.ToneFormal,
	domain.ToneCasual,
	domain.ToneTechnical,
	domain.ToneCreative,
}

var toneFamilies = []toneFamily{
	{
		label: domain.ToneFormal,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(therefore|thus|hence|consequently)\b`),
			regexp.MustCompile(`(?i)\b(furthermore|moreover|additionally|nevertheless|nonetheless)\b`),
			regexp.MustCompile(`(?i)\b(shall|must|ought to)\b`),
			regexp.MustCompile(`(?i)\b(regarding|pursuant|herein|whereas|accordingly)\b`),
		},
	},
	{
		label: domain.ToneCasual,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b[a-z]+n['’]t\b|\b(i['’]m|you['’]re|we['’]re|they['’]re|it['’]s|that['’]s|i['’]ve|i['’]ll)\b`),
			regexp.MustCompile(`(?i)\b(gonna|wanna|gotta|yeah|yep|nope|cool|awesome|hey|lol|btw|omg|kinda|sorta)\b`),
			regexp.MustCompile(`!{2,}`),
		},
	},
	{
		label: domain.ToneTechnical,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(algorithm|function|database|server|api|implementation|configuration|protocol)s?\b`),
			regexp.MustCompile(`(?i)\b(deploy|compil|debug|optimi[sz]|refactor|integrat)\w*\b`),
			regexp.MustCompile(`(?i)\b(latency|throughput|bandwidth|cache|thread|memory|cpu)\b`),
		},
	},
	{
		label: domain.ToneCreative,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(imagin|dream|whisper|shimmer|glow|danc|soar)\w*\b`),
			regexp.MustCompile(`(?i)\b(heart|soul|moon|stars?|ocean|shadows?|twilight)\b`),
			regexp.MustCompile(`(?i)\b(like a|as if|as though)\b`),
			regexp.MustCompile(`\.\.\.|…`),
		},
	},
}

// ClassifyTone scores each family by how many of its patterns match at least
// once and returns the best family, or neutral when nothing matches.
func ClassifyTone(text string) domain.ToneLabel {
	scores := make(map[domain.ToneLabel]int, len(toneFamilies))
	for _, family := range toneFamilies {
		for _, pattern := range family.patterns {
			if pattern.MatchString(text) {
				scores[family.label]++
			}
		}
	}

	best := domain.ToneNeutral
	bestScore := 0
	for _, label := range TonePrecedence {
		if scores[label] > bestScore {
			best = label
			bestScore = scores[label]
		}
	}
	return best
}

// Insight bundles the debounced local heuristics for one document revision.
func Insight(text string, revision uint64) domain.LocalInsight {
	return domain.LocalInsight{
		Readability: Readability(text),
		Tone:        ClassifyTone(text),
		Revision:    revision,
	}
}
