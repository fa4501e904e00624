package domain

type TextStatistics struct {
	WordCount              int     `json:"word_count"`
	CharacterCount         int     `json:"character_count"`
	CharacterCountNoSpaces int     `json:"character_count_no_spaces"`
	SentenceCount          int     `json:"sentence_count"`
	ParagraphCount         int     `json:"paragraph_count"`
	AvgWordsPerSentence    float64 `json:"avg_words_per_sentence"`
	ReadingTimeMinutes     int     `json:"reading_time_minutes"`
}

type ReadabilityResult struct {
	Score int    `json:"score"`
	Grade string `json:"grade"`
}

// ToneLabel is produced by the local keyword heuristic only.
type ToneLabel string

const (
	ToneFormal    ToneLabel = "formal"
	ToneCasual    ToneLabel = "casual"
	ToneTechnical ToneLabel = "technical"
	ToneCreative  ToneLabel = "creative"
	ToneNeutral   ToneLabel = "neutral"
)

// RemoteTone is the richer label set returned by the remote analysis provider.
type RemoteTone string

const (
	RemoteToneFormal         RemoteTone = "formal"
	RemoteToneInformal       RemoteTone = "informal"
	RemoteToneProfessional   RemoteTone = "professional"
	RemoteToneConversational RemoteTone = "conversational"
	RemoteToneAcademic       RemoteTone = "academic"
	RemoteTonePersuasive     RemoteTone = "persuasive"
	RemoteToneNeutral        RemoteTone = "neutral"
)

func ParseRemoteTone(raw string) RemoteTone {
	switch tone := RemoteTone(raw); tone {
	case RemoteToneFormal, RemoteToneInformal, RemoteToneProfessional, RemoteToneConversational,
		RemoteToneAcademic, RemoteTonePersuasive, RemoteToneNeutral:
		return tone
	case "casual":
		return RemoteToneInformal
	default:
		return RemoteToneNeutral
	}
}

// LocalInsight holds the debounced local heuristics and the document revision
// they were computed from.
type LocalInsight struct {
	Readability ReadabilityResult `json:"readability"`
	Tone        ToneLabel         `json:"tone"`
	Revision    uint64            `json:"revision"`
}
