package domain

import "time"

type WritingMode string

const (
	ModeTechnical WritingMode = "technical"
	ModeCreative  WritingMode = "creative"
	ModeBusiness  WritingMode = "business"
	ModeCasual    WritingMode = "casual"
)

func ParseWritingMode(raw string) (WritingMode, bool) {
	switch WritingMode(raw) {
	case ModeTechnical, ModeCreative, ModeBusiness, ModeCasual:
		return WritingMode(raw), true
	default:
		return "", false
	}
}

// Document is the text owned by one editing session. Revision increases on
// every edit and tags asynchronous results with the text they were computed from.
type Document struct {
	Text     string `json:"text"`
	Revision uint64 `json:"revision"`
}

type DocumentSnapshot struct {
	SessionID string      `json:"session_id"`
	Mode      WritingMode `json:"mode"`
	Text      string      `json:"text"`
	Revision  uint64      `json:"revision"`
	SavedAt   time.Time   `json:"saved_at"`
}

type SnapshotSavedEvent struct {
	SessionID string      `json:"session_id"`
	Mode      WritingMode `json:"mode"`
	Text      string      `json:"text"`
	Revision  uint64      `json:"revision"`
	SavedAt   time.Time   `json:"saved_at"`
}

func (s DocumentSnapshot) Event() SnapshotSavedEvent {
	return SnapshotSavedEvent(s)
}
