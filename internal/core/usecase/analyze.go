package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
)

// SnapshotAnalysisUseCase runs the remote analysis for saved snapshots and
// keeps the latest result per session.
type SnapshotAnalysisUseCase struct {
	service       ports.SuggestionService
	repo          ports.AnalysisRepository
	minTextLength int
	now           func() time.Time
	logger        *slog.Logger
}

func NewSnapshotAnalysisUseCase(
	service ports.SuggestionService,
	repo ports.AnalysisRepository,
	minTextLength int,
	logger *slog.Logger,
) *SnapshotAnalysisUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotAnalysisUseCase{
		service:       service,
		repo:          repo,
		minTextLength: minTextLength,
		now:           time.Now,
		logger:        logger,
	}
}

// AnalyzeSnapshot skips short texts and revisions that are not newer than the
// stored analysis.
func (uc *SnapshotAnalysisUseCase) AnalyzeSnapshot(ctx context.Context, event domain.SnapshotSavedEvent) error {
	if strings.TrimSpace(event.SessionID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "analyze snapshot", errors.New("session id is empty"))
	}
	if utf8.RuneCountInString(strings.TrimSpace(event.Text)) < uc.minTextLength {
		uc.logger.Info("snapshot_analysis_skipped", "session_id", event.SessionID, "reason", "too_short")
		return nil
	}

	latest, err := uc.repo.LatestAnalysis(ctx, event.SessionID)
	switch {
	case err == nil && latest.Revision >= event.Revision:
		uc.logger.Info("snapshot_analysis_skipped", "session_id", event.SessionID, "reason", "not_newer")
		return nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("load latest analysis: %w", err)
	}

	mode := event.Mode
	if _, ok := domain.ParseWritingMode(string(mode)); !ok {
		mode = domain.ModeBusiness
	}
	result, err := uc.service.Analyze(ctx, event.Text, mode, ports.RequestOptions{})
	if err != nil {
		return fmt.Errorf("analyze snapshot: %w", err)
	}

	stored := domain.StoredAnalysis{
		SessionID: event.SessionID,
		Revision:  event.Revision,
		Result:    *result,
		CreatedAt: uc.now().UTC(),
	}
	if err := uc.repo.SaveAnalysis(ctx, stored); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

func (uc *SnapshotAnalysisUseCase) LatestAnalysis(ctx context.Context, sessionID string) (*domain.StoredAnalysis, error) {
	return uc.repo.LatestAnalysis(ctx, sessionID)
}

var (
	_ ports.SnapshotAnalyzer = (*SnapshotAnalysisUseCase)(nil)
	_ ports.AnalysisReader   = (*SnapshotAnalysisUseCase)(nil)
)
