package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/writing-assistant/internal/core/debounce"
	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

type memoryStore struct {
	mu        sync.Mutex
	snapshots map[string]domain.DocumentSnapshot
	saveErr   error
	saves     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snapshots: make(map[string]domain.DocumentSnapshot)}
}

func (s *memoryStore) Save(_ context.Context, snapshot domain.DocumentSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snapshots[snapshot.SessionID] = snapshot
	return nil
}

func (s *memoryStore) Load(_ context.Context, sessionID string) (*domain.DocumentSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.snapshots[sessionID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "load snapshot", errors.New(sessionID))
	}
	return &snapshot, nil
}

type queueFake struct {
	mu     sync.Mutex
	events []domain.SnapshotSavedEvent
}

func (q *queueFake) PublishSnapshotSaved(_ context.Context, event domain.SnapshotSavedEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
	return nil
}

func (q *queueFake) SubscribeSnapshotSaved(context.Context, func(context.Context, domain.SnapshotSavedEvent) error) error {
	return nil
}

func newTestManager(store *memoryStore, queue *queueFake, service *scriptedService, clock *debounce.ManualClock) *SessionManager {
	deps := SessionDeps{
		Service: service,
		Clock:   clock,
	}
	if store != nil {
		deps.Store = store
	}
	if queue != nil {
		deps.Queue = queue
	}
	cfg := DefaultSessionConfig()
	cfg.Pipeline = testPipelineConfig()
	return NewSessionManager(deps, cfg)
}

func TestSessionEditUpdatesStatisticsSynchronously(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	manager := newTestManager(nil, nil, &scriptedService{}, clock)
	defer manager.CloseAll()

	session, err := manager.Create(domain.ModeCasual)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stats := session.Edit("Hello there. General Kenobi!")
	if stats.WordCount != 4 || stats.SentenceCount != 2 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
	if session.Statistics() != stats {
		t.Fatalf("expected stored statistics to match")
	}
	if got := session.Insight().Revision; got != 0 {
		t.Fatalf("expected insight to wait for the settle delay, got revision %d", got)
	}

	clock.Advance(500 * time.Millisecond)
	insight := session.Insight()
	if insight.Revision != 1 {
		t.Fatalf("expected insight for revision 1, got %d", insight.Revision)
	}
	if insight.Readability.Score <= 0 {
		t.Fatalf("expected a readability score, got %+v", insight.Readability)
	}
}

func TestSessionInsightFollowsLatestRevision(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	manager := newTestManager(nil, nil, &scriptedService{}, clock)
	defer manager.CloseAll()

	session, _ := manager.Create(domain.ModeBusiness)
	session.Edit("Therefore, we must consider the consequences.")
	clock.Advance(200 * time.Millisecond)
	session.Edit("Therefore, we must consider the consequences. Furthermore, this shall be addressed.")
	clock.Advance(500 * time.Millisecond)

	insight := session.Insight()
	if insight.Revision != 2 {
		t.Fatalf("expected revision 2, got %d", insight.Revision)
	}
	if insight.Tone != domain.ToneFormal {
		t.Fatalf("expected formal tone, got %q", insight.Tone)
	}
}

func TestSessionSavesSnapshotAndPublishesEvent(t *testing.T) {
	clock := debounce.NewManualClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	store := newMemoryStore()
	queue := &queueFake{}
	manager := newTestManager(store, queue, &scriptedService{}, clock)
	defer manager.CloseAll()

	session, _ := manager.Create(domain.ModeTechnical)
	session.Edit("draft one")
	clock.Advance(400 * time.Millisecond)
	session.Edit("draft two")
	clock.Advance(999 * time.Millisecond)
	if store.saves != 0 {
		t.Fatalf("expected no save before the save delay, got %d", store.saves)
	}

	clock.Advance(1 * time.Millisecond)
	if store.saves != 1 {
		t.Fatalf("expected one save, got %d", store.saves)
	}
	saved := store.snapshots[session.ID()]
	if saved.Text != "draft two" || saved.Revision != 2 || saved.Mode != domain.ModeTechnical {
		t.Fatalf("unexpected snapshot: %+v", saved)
	}
	if !session.LastSavedAt().Equal(saved.SavedAt) {
		t.Fatalf("expected last saved at %v, got %v", saved.SavedAt, session.LastSavedAt())
	}
	if len(queue.events) != 1 || queue.events[0].Revision != 2 {
		t.Fatalf("unexpected events: %+v", queue.events)
	}
}

func TestSessionSaveFailureIsNonFatal(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	store := newMemoryStore()
	store.saveErr = errors.New("quota exceeded")
	queue := &queueFake{}
	manager := newTestManager(store, queue, &scriptedService{}, clock)
	defer manager.CloseAll()

	session, _ := manager.Create(domain.ModeBusiness)
	session.Edit("some text")
	clock.Advance(time.Second)

	if store.saves != 1 {
		t.Fatalf("expected a save attempt, got %d", store.saves)
	}
	if !session.LastSavedAt().IsZero() {
		t.Fatalf("expected last saved at to stay zero")
	}
	if len(queue.events) != 0 {
		t.Fatalf("expected no event for a failed save")
	}
	if session.Document().Text != "some text" {
		t.Fatalf("expected the edit to survive a failed save")
	}
}

func TestSessionApplySuggestionEditsDocument(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	service := &scriptedService{results: [][]domain.Suggestion{{
		suggestionFixture("fix", domain.SeverityError, "recieve", strPtr("receive")),
	}}}
	manager := newTestManager(nil, nil, service, clock)
	defer manager.CloseAll()

	session, _ := manager.Create(domain.ModeBusiness)
	session.Edit("We recieve mail daily.")
	if err := session.FetchSuggestions(context.Background()); err != nil {
		t.Fatalf("FetchSuggestions() error = %v", err)
	}

	doc, err := session.ApplySuggestion("fix")
	if err != nil {
		t.Fatalf("ApplySuggestion() error = %v", err)
	}
	if doc.Text != "We receive mail daily." || doc.Revision != 2 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if _, err := session.ApplySuggestion("fix"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for an applied suggestion, got %v", err)
	}
	if err := session.DismissSuggestion("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on dismiss, got %v", err)
	}
}

func TestSessionConcurrentEditsSaveLatestRevision(t *testing.T) {
	for round := 0; round < 50; round++ {
		clock := debounce.NewManualClock(time.Unix(0, 0))
		store := newMemoryStore()
		manager := newTestManager(store, nil, &scriptedService{}, clock)

		session, _ := manager.Create(domain.ModeBusiness)
		var wg sync.WaitGroup
		for i := 1; i <= 8; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				session.Edit(strings.Repeat("x", n))
			}(i)
		}
		wg.Wait()

		clock.Advance(time.Second)
		doc := session.Document()
		saved, err := store.Load(context.Background(), session.ID())
		if err != nil {
			t.Fatalf("round %d: Load() error = %v", round, err)
		}
		if saved.Revision != doc.Revision || saved.Text != doc.Text {
			t.Fatalf("round %d: saved revision %d %q, document revision %d %q",
				round, saved.Revision, saved.Text, doc.Revision, doc.Text)
		}
		if got := session.Insight().Revision; got != doc.Revision {
			t.Fatalf("round %d: insight revision %d, document revision %d", round, got, doc.Revision)
		}
		manager.CloseAll()
	}
}

func TestSessionApplySuggestionKeepsConcurrentEdit(t *testing.T) {
	for round := 0; round < 50; round++ {
		clock := debounce.NewManualClock(time.Unix(0, 0))
		service := &scriptedService{results: [][]domain.Suggestion{{
			suggestionFixture("fix", domain.SeverityError, "recieve", strPtr("receive")),
		}}}
		manager := newTestManager(nil, nil, service, clock)

		session, _ := manager.Create(domain.ModeBusiness)
		session.Edit("We recieve mail daily.")
		if err := session.FetchSuggestions(context.Background()); err != nil {
			t.Fatalf("FetchSuggestions() error = %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = session.ApplySuggestion("fix")
		}()
		go func() {
			defer wg.Done()
			session.Edit("We recieve mail daily. Appended.")
		}()
		wg.Wait()

		doc := session.Document()
		if !strings.HasSuffix(doc.Text, "Appended.") || doc.Revision != 3 {
			t.Fatalf("round %d: edit lost, document %+v", round, doc)
		}
		manager.CloseAll()
	}
}

func TestSessionEditTriggersDebouncedFetch(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	service := &scriptedService{}
	manager := newTestManager(nil, nil, service, clock)
	defer manager.CloseAll()

	session, _ := manager.Create(domain.ModeBusiness)
	text := strings.Repeat("word ", 30)
	session.Edit(text)

	clock.Advance(3 * time.Second)
	session.Pipeline().Wait()
	if calls := service.calls(); len(calls) != 1 || calls[0] != text {
		t.Fatalf("unexpected fetches: %v", calls)
	}
}

func TestSessionManagerRestoresFromStore(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	store := newMemoryStore()
	savedAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.snapshots["restored"] = domain.DocumentSnapshot{
		SessionID: "restored",
		Mode:      domain.ModeCreative,
		Text:      "Once upon a time.",
		Revision:  7,
		SavedAt:   savedAt,
	}
	manager := newTestManager(store, nil, &scriptedService{}, clock)
	defer manager.CloseAll()

	session, err := manager.Get(context.Background(), "restored")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.Mode() != domain.ModeCreative || session.Document().Revision != 7 {
		t.Fatalf("unexpected restored session: mode=%s doc=%+v", session.Mode(), session.Document())
	}
	if session.Statistics().WordCount != 4 {
		t.Fatalf("expected statistics for restored text, got %+v", session.Statistics())
	}
	if !session.LastSavedAt().Equal(savedAt) {
		t.Fatalf("unexpected last saved at %v", session.LastSavedAt())
	}

	again, _ := manager.Get(context.Background(), "restored")
	if again != session {
		t.Fatalf("expected the live session to be reused")
	}

	if _, err := manager.Get(context.Background(), "unknown"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestSessionManagerCreateAndClose(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	manager := newTestManager(nil, nil, &scriptedService{}, clock)

	if _, err := manager.Create("poetry"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown mode, got %v", err)
	}

	session, err := manager.Create("")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if session.Mode() != domain.ModeBusiness {
		t.Fatalf("expected default mode, got %s", session.Mode())
	}

	session.Edit(strings.Repeat("x", 150))
	if err := manager.Close(session.ID()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if clock.Pending() != 0 {
		t.Fatalf("expected closing to cancel timers, %d pending", clock.Pending())
	}
	if err := manager.Close(session.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	if _, err := manager.Get(context.Background(), session.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected closed session to be gone, got %v", err)
	}
}
