package domain

type PipelineStatus string

const (
	StatusIdle       PipelineStatus = "idle"
	StatusDebouncing PipelineStatus = "debouncing"
	StatusInFlight   PipelineStatus = "in_flight"
	StatusRetrying   PipelineStatus = "retrying"
	StatusSucceeded  PipelineStatus = "succeeded"
	StatusFailed     PipelineStatus = "failed"
)

// Resting reports whether no fetch is pending or running. Succeeded and
// Failed behave like Idle for the next transition.
func (s PipelineStatus) Resting() bool {
	switch s {
	case StatusIdle, StatusSucceeded, StatusFailed:
		return true
	default:
		return false
	}
}

// PipelineState is an immutable snapshot of a suggestion pipeline.
type PipelineState struct {
	Status            PipelineStatus `json:"status"`
	Attempt           int            `json:"attempt,omitempty"`
	Suggestions       []Suggestion   `json:"suggestions"`
	Loading           bool           `json:"loading"`
	Error             *APIError      `json:"error,omitempty"`
	LastAttemptedText string         `json:"last_attempted_text,omitempty"`
	Generation        uint64         `json:"generation"`
	Version           uint64         `json:"version"`
}
