package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kirillkom/writing-assistant/internal/core/debounce"
	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

// SessionManager creates, restores and tears down editing sessions.
type SessionManager struct {
	deps  SessionDeps
	cfg   SessionConfig
	newID func() string

	mu       sync.RWMutex
	sessions map[string]*EditingSession
}

func NewSessionManager(deps SessionDeps, cfg SessionConfig) *SessionManager {
	if deps.Clock == nil {
		deps.Clock = debounce.RealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &SessionManager{
		deps:     deps,
		cfg:      cfg,
		newID:    uuid.NewString,
		sessions: make(map[string]*EditingSession),
	}
}

// Create starts an empty session. An empty mode selects the configured default.
func (m *SessionManager) Create(mode domain.WritingMode) (*EditingSession, error) {
	if mode == "" {
		mode = m.cfg.Pipeline.Mode
	}
	if _, ok := domain.ParseWritingMode(string(mode)); !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create session", fmt.Errorf("unknown writing mode %q", mode))
	}

	session := newEditingSession(m.newID(), mode, domain.Document{}, m.deps, m.cfg)

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	m.deps.Logger.Info("session_created", "session_id", session.ID(), "mode", string(mode))
	return session, nil
}

// Get returns a live session, restoring it from the snapshot store when it is
// not in memory.
func (m *SessionManager) Get(ctx context.Context, id string) (*EditingSession, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return session, nil
	}

	if m.deps.Store == nil {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("session %s", id))
	}
	snapshot, err := m.deps.Store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", err)
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	mode := snapshot.Mode
	if _, ok := domain.ParseWritingMode(string(mode)); !ok {
		mode = m.cfg.Pipeline.Mode
	}
	restored := newEditingSession(id, mode, domain.Document{Text: snapshot.Text, Revision: snapshot.Revision}, m.deps, m.cfg)
	restored.lastSavedAt = snapshot.SavedAt

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		restored.Close()
		return existing, nil
	}
	m.sessions[id] = restored

	m.deps.Logger.Info("session_restored", "session_id", id, "revision", snapshot.Revision)
	return restored, nil
}

// Close tears down a live session. Its saved snapshot is kept.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return domain.WrapError(domain.ErrSessionNotFound, "close session", fmt.Errorf("session %s", id))
	}
	session.Close()
	m.deps.Logger.Info("session_closed", "session_id", id)
	return nil
}

func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*EditingSession)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
