package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
)

// SnapshotStore keeps one JSON file per session. Saving replaces the previous
// file atomically unless the stored revision is newer.
type SnapshotStore struct {
	basePath string

	mu sync.Mutex
}

func New(basePath string) (*SnapshotStore, error) {
	if basePath == "" {
		basePath = "./data/snapshots"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &SnapshotStore{basePath: basePath}, nil
}

func (s *SnapshotStore) Save(_ context.Context, snapshot domain.DocumentSnapshot) error {
	path, err := s.path(snapshot.SessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, err := readSnapshot(path); err == nil && stored.Revision > snapshot.Revision {
		return nil
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.basePath, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(_ context.Context, sessionID string) (*domain.DocumentSnapshot, error) {
	path, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}
	return readSnapshot(path)
}

func readSnapshot(path string) (*domain.DocumentSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrNotFound, "load snapshot", err)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}

	var snapshot domain.DocumentSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *SnapshotStore) path(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", domain.WrapError(domain.ErrInvalidInput, "snapshot path", fmt.Errorf("invalid session id %q", sessionID))
	}
	return filepath.Join(s.basePath, id+".json"), nil
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)
