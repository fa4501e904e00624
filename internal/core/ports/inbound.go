package ports

import (
	"context"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

// SnapshotAnalyzer is the inbound contract for background deep analysis.
type SnapshotAnalyzer interface {
	AnalyzeSnapshot(ctx context.Context, event domain.SnapshotSavedEvent) error
}

// AnalysisReader is the read model for stored deep analysis.
type AnalysisReader interface {
	LatestAnalysis(ctx context.Context, sessionID string) (*domain.StoredAnalysis, error)
}
