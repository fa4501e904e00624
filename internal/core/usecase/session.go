package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/writing-assistant/internal/core/analysis"
	"github.com/kirillkom/writing-assistant/internal/core/debounce"
	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
)

const snapshotSaveTimeout = 5 * time.Second

type SessionConfig struct {
	Pipeline      PipelineConfig
	AnalysisDelay time.Duration
	SaveDelay     time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Pipeline:      DefaultPipelineConfig(),
		AnalysisDelay: 500 * time.Millisecond,
		SaveDelay:     1000 * time.Millisecond,
	}
}

// SessionDeps are the collaborators shared by every session. Store and Queue
// may be nil.
type SessionDeps struct {
	Service  ports.SuggestionService
	Store    ports.SnapshotStore
	Queue    ports.MessageQueue
	Observer ports.PipelineObserver
	Clock    debounce.Clock
	Logger   *slog.Logger
}

// SessionView is a consistent read of everything a session exposes.
type SessionView struct {
	ID          string                `json:"id"`
	Mode        domain.WritingMode    `json:"mode"`
	Text        string                `json:"text"`
	Revision    uint64                `json:"revision"`
	Statistics  domain.TextStatistics `json:"statistics"`
	Insight     domain.LocalInsight   `json:"insight"`
	Suggestions domain.PipelineState  `json:"suggestions"`
	LastSavedAt *time.Time            `json:"last_saved_at,omitempty"`
}

// EditingSession owns one document and everything derived from it.
//
// Statistics follow every edit synchronously. Readability and local tone are
// recomputed after AnalysisDelay and never replaced by an older revision.
// Snapshots are saved after SaveDelay on their own debounce; a failed save is
// logged and only leaves LastSavedAt where it was.
type EditingSession struct {
	id       string
	mode     domain.WritingMode
	deps     SessionDeps
	cfg      SessionConfig
	pipeline *SuggestionPipeline
	insights *debounce.Debouncer[domain.Document]
	saves    *debounce.Debouncer[domain.Document]

	// editMu orders mutations: debounces are scheduled in revision order.
	editMu sync.Mutex

	mu          sync.RWMutex
	doc         domain.Document
	stats       domain.TextStatistics
	insight     domain.LocalInsight
	lastSavedAt time.Time
}

func newEditingSession(id string, mode domain.WritingMode, doc domain.Document, deps SessionDeps, cfg SessionConfig) *EditingSession {
	cfg.Pipeline.Mode = mode
	s := &EditingSession{
		id:       id,
		mode:     mode,
		deps:     deps,
		cfg:      cfg,
		pipeline: NewSuggestionPipeline(deps.Service, deps.Clock, deps.Observer, deps.Logger.With("session_id", id), cfg.Pipeline),
		doc:      doc,
		stats:    analysis.ComputeStatistics(doc.Text),
		insight:  analysis.Insight(doc.Text, doc.Revision),
	}
	s.insights = debounce.New(deps.Clock, s.refreshInsight)
	s.saves = debounce.New(deps.Clock, s.saveSnapshot)
	return s
}

func (s *EditingSession) ID() string {
	return s.id
}

func (s *EditingSession) Mode() domain.WritingMode {
	return s.mode
}

func (s *EditingSession) Pipeline() *SuggestionPipeline {
	return s.pipeline
}

// Edit replaces the document text and returns the fresh statistics.
func (s *EditingSession) Edit(text string) domain.TextStatistics {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	return s.editLocked(text)
}

func (s *EditingSession) editLocked(text string) domain.TextStatistics {
	s.mu.Lock()
	s.doc = domain.Document{Text: text, Revision: s.doc.Revision + 1}
	s.stats = analysis.ComputeStatistics(text)
	doc := s.doc
	stats := s.stats
	s.mu.Unlock()

	s.insights.Schedule(doc, s.cfg.AnalysisDelay)
	s.saves.Schedule(doc, s.cfg.SaveDelay)
	s.pipeline.OnEdit(text)
	return stats
}

func (s *EditingSession) Document() domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

func (s *EditingSession) Statistics() domain.TextStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *EditingSession) Insight() domain.LocalInsight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.insight
}

// LastSavedAt is zero until a snapshot has been saved.
func (s *EditingSession) LastSavedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSavedAt
}

func (s *EditingSession) View() SessionView {
	s.mu.RLock()
	view := SessionView{
		ID:         s.id,
		Mode:       s.mode,
		Text:       s.doc.Text,
		Revision:   s.doc.Revision,
		Statistics: s.stats,
		Insight:    s.insight,
	}
	if !s.lastSavedAt.IsZero() {
		saved := s.lastSavedAt
		view.LastSavedAt = &saved
	}
	s.mu.RUnlock()

	view.Suggestions = s.pipeline.State()
	return view
}

// FetchSuggestions fetches suggestions for the current text right away.
func (s *EditingSession) FetchSuggestions(ctx context.Context) error {
	return s.pipeline.FetchSuggestions(ctx, s.Document().Text)
}

// ApplySuggestion applies an active suggestion to the document. A changed
// text goes through Edit like any other edit.
func (s *EditingSession) ApplySuggestion(suggestionID string) (domain.Document, error) {
	suggestion, ok := s.pipeline.Suggestion(suggestionID)
	if !ok {
		return domain.Document{}, domain.WrapError(domain.ErrNotFound, "apply suggestion", fmt.Errorf("suggestion %s", suggestionID))
	}

	s.editMu.Lock()
	defer s.editMu.Unlock()

	current := s.Document().Text
	updated := s.pipeline.ApplySuggestion(suggestion, current)
	if updated != current {
		s.editLocked(updated)
	}
	return s.Document(), nil
}

func (s *EditingSession) DismissSuggestion(suggestionID string) error {
	if !s.pipeline.DismissSuggestion(suggestionID) {
		return domain.WrapError(domain.ErrNotFound, "dismiss suggestion", fmt.Errorf("suggestion %s", suggestionID))
	}
	return nil
}

// Close cancels both debounces and the pipeline. Pending saves are dropped.
func (s *EditingSession) Close() {
	s.insights.Stop()
	s.saves.Stop()
	s.pipeline.Close()
}

func (s *EditingSession) refreshInsight(doc domain.Document) {
	insight := analysis.Insight(doc.Text, doc.Revision)

	s.mu.Lock()
	defer s.mu.Unlock()
	if insight.Revision < s.insight.Revision {
		return
	}
	s.insight = insight
}

func (s *EditingSession) saveSnapshot(doc domain.Document) {
	if s.deps.Store == nil {
		return
	}

	snapshot := domain.DocumentSnapshot{
		SessionID: s.id,
		Mode:      s.mode,
		Text:      doc.Text,
		Revision:  doc.Revision,
		SavedAt:   s.deps.Clock.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), snapshotSaveTimeout)
	defer cancel()

	if err := s.deps.Store.Save(ctx, snapshot); err != nil {
		s.deps.Logger.Warn("snapshot_save_failed",
			"session_id", s.id,
			"revision", doc.Revision,
			"error", err,
		)
		return
	}

	s.mu.Lock()
	if snapshot.SavedAt.After(s.lastSavedAt) {
		s.lastSavedAt = snapshot.SavedAt
	}
	s.mu.Unlock()

	if s.deps.Queue == nil {
		return
	}
	if err := s.deps.Queue.PublishSnapshotSaved(ctx, snapshot.Event()); err != nil {
		s.deps.Logger.Warn("snapshot_event_publish_failed",
			"session_id", s.id,
			"revision", doc.Revision,
			"error", err,
		)
	}
}
