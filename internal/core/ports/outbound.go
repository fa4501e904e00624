package ports

import (
	"context"
	"time"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

// TextCompleter sends one completion request to an LLM provider and returns
// the raw text of its answer.
type TextCompleter interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// RequestOptions tune one suggestion-service call.
type RequestOptions struct {
	MaxTokens int
	// Temperature overrides the client default when set.
	Temperature *float64
	// OnRetry is called before each backoff wait with the zero-indexed attempt
	// that failed.
	OnRetry func(attempt int, delay time.Duration, err *domain.APIError)
}

// SuggestionService produces remote suggestions and analysis for a text.
type SuggestionService interface {
	FetchSuggestions(ctx context.Context, text string, mode domain.WritingMode, opts RequestOptions) ([]domain.Suggestion, error)
	Analyze(ctx context.Context, text string, mode domain.WritingMode, opts RequestOptions) (*domain.AnalysisResult, error)
}

// SnapshotStore persists the latest text of a session, replacing any prior value.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot domain.DocumentSnapshot) error
	Load(ctx context.Context, sessionID string) (*domain.DocumentSnapshot, error)
}

// AnalysisRepository keeps deep analysis results per session.
type AnalysisRepository interface {
	SaveAnalysis(ctx context.Context, analysis domain.StoredAnalysis) error
	LatestAnalysis(ctx context.Context, sessionID string) (*domain.StoredAnalysis, error)
}

// MessageQueue publishes/consumes snapshot events.
type MessageQueue interface {
	PublishSnapshotSaved(ctx context.Context, event domain.SnapshotSavedEvent) error
	SubscribeSnapshotSaved(ctx context.Context, handler func(context.Context, domain.SnapshotSavedEvent) error) error
}

// PipelineObserver receives suggestion pipeline telemetry.
type PipelineObserver interface {
	FetchStarted(mode domain.WritingMode)
	FetchFinished(mode domain.WritingMode, outcome string, duration time.Duration)
	FetchRetried(code domain.APIErrorCode)
	StaleResultDiscarded()
}
