package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
)

type analysisRepoFake struct {
	latest  *domain.StoredAnalysis
	loadErr error
	saved   []domain.StoredAnalysis
}

func (r *analysisRepoFake) SaveAnalysis(_ context.Context, analysis domain.StoredAnalysis) error {
	r.saved = append(r.saved, analysis)
	return nil
}

func (r *analysisRepoFake) LatestAnalysis(context.Context, string) (*domain.StoredAnalysis, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	if r.latest == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "latest analysis", errors.New("none"))
	}
	return r.latest, nil
}

type analyzeServiceFake struct {
	scriptedService
	result *domain.AnalysisResult
	err    error
	texts  []string
	modes  []domain.WritingMode
}

func (s *analyzeServiceFake) Analyze(_ context.Context, text string, mode domain.WritingMode, _ ports.RequestOptions) (*domain.AnalysisResult, error) {
	s.texts = append(s.texts, text)
	s.modes = append(s.modes, mode)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func snapshotEvent(revision uint64, text string) domain.SnapshotSavedEvent {
	return domain.SnapshotSavedEvent{
		SessionID: "session-1",
		Mode:      domain.ModeCreative,
		Text:      text,
		Revision:  revision,
		SavedAt:   time.Unix(100, 0),
	}
}

func TestAnalyzeSnapshotStoresResult(t *testing.T) {
	repo := &analysisRepoFake{}
	service := &analyzeServiceFake{result: &domain.AnalysisResult{Tone: domain.RemoteTonePersuasive, ReadabilityScore: 55}}
	uc := NewSnapshotAnalysisUseCase(service, repo, 20, nil)
	uc.now = func() time.Time { return time.Unix(200, 0) }

	if err := uc.AnalyzeSnapshot(context.Background(), snapshotEvent(3, strings.Repeat("long text ", 5))); err != nil {
		t.Fatalf("AnalyzeSnapshot() error = %v", err)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected one stored analysis, got %d", len(repo.saved))
	}
	stored := repo.saved[0]
	if stored.SessionID != "session-1" || stored.Revision != 3 || stored.Result.Tone != domain.RemoteTonePersuasive {
		t.Fatalf("unexpected stored analysis: %+v", stored)
	}
	if !stored.CreatedAt.Equal(time.Unix(200, 0)) {
		t.Fatalf("unexpected created at %v", stored.CreatedAt)
	}
	if service.modes[0] != domain.ModeCreative {
		t.Fatalf("expected the snapshot mode, got %s", service.modes[0])
	}
}

func TestAnalyzeSnapshotSkipsShortText(t *testing.T) {
	repo := &analysisRepoFake{}
	service := &analyzeServiceFake{}
	uc := NewSnapshotAnalysisUseCase(service, repo, 100, nil)

	if err := uc.AnalyzeSnapshot(context.Background(), snapshotEvent(1, "too short")); err != nil {
		t.Fatalf("AnalyzeSnapshot() error = %v", err)
	}
	if len(service.texts) != 0 || len(repo.saved) != 0 {
		t.Fatalf("expected no analysis for short text")
	}
}

func TestAnalyzeSnapshotSkipsOlderRevision(t *testing.T) {
	repo := &analysisRepoFake{latest: &domain.StoredAnalysis{SessionID: "session-1", Revision: 5}}
	service := &analyzeServiceFake{result: &domain.AnalysisResult{}}
	uc := NewSnapshotAnalysisUseCase(service, repo, 1, nil)

	if err := uc.AnalyzeSnapshot(context.Background(), snapshotEvent(5, "same revision")); err != nil {
		t.Fatalf("AnalyzeSnapshot() error = %v", err)
	}
	if len(service.texts) != 0 {
		t.Fatalf("expected duplicate revision to be skipped")
	}
}

func TestAnalyzeSnapshotPropagatesFailures(t *testing.T) {
	service := &analyzeServiceFake{err: &domain.APIError{Code: domain.CodeServerError, Retryable: true}}
	uc := NewSnapshotAnalysisUseCase(service, &analysisRepoFake{}, 1, nil)

	err := uc.AnalyzeSnapshot(context.Background(), snapshotEvent(1, "some text"))
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}

	repoErr := errors.New("db down")
	uc = NewSnapshotAnalysisUseCase(&analyzeServiceFake{}, &analysisRepoFake{loadErr: repoErr}, 1, nil)
	if err := uc.AnalyzeSnapshot(context.Background(), snapshotEvent(1, "some text")); !errors.Is(err, repoErr) {
		t.Fatalf("expected repository error, got %v", err)
	}

	if err := uc.AnalyzeSnapshot(context.Background(), domain.SnapshotSavedEvent{Text: "x"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing session id, got %v", err)
	}
}
