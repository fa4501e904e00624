package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
)

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save replaces the stored snapshot unless the stored one has a newer revision.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot domain.DocumentSnapshot) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO document_snapshots (session_id, mode, text, revision, saved_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (session_id) DO UPDATE
SET mode = EXCLUDED.mode,
	text = EXCLUDED.text,
	revision = EXCLUDED.revision,
	saved_at = EXCLUDED.saved_at
WHERE document_snapshots.revision <= EXCLUDED.revision
`,
		snapshot.SessionID, string(snapshot.Mode), snapshot.Text, int64(snapshot.Revision), snapshot.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Load(ctx context.Context, sessionID string) (*domain.DocumentSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT session_id, mode, text, revision, saved_at
FROM document_snapshots
WHERE session_id = $1
`, sessionID)

	var snapshot domain.DocumentSnapshot
	var mode string
	var revision int64

	err := row.Scan(&snapshot.SessionID, &mode, &snapshot.Text, &revision, &snapshot.SavedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "load snapshot", fmt.Errorf("session %s", sessionID))
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	snapshot.Mode = domain.WritingMode(mode)
	snapshot.Revision = uint64(revision)
	return &snapshot, nil
}

var _ ports.SnapshotStore = (*SnapshotRepository)(nil)
