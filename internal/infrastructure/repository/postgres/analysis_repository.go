package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) SaveAnalysis(ctx context.Context, analysis domain.StoredAnalysis) error {
	resultJSON, err := json.Marshal(analysis.Result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO snapshot_analyses (session_id, revision, result, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (session_id, revision) DO UPDATE
SET result = EXCLUDED.result,
	created_at = EXCLUDED.created_at
`,
		analysis.SessionID, int64(analysis.Revision), resultJSON, analysis.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) LatestAnalysis(ctx context.Context, sessionID string) (*domain.StoredAnalysis, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT session_id, revision, result, created_at
FROM snapshot_analyses
WHERE session_id = $1
ORDER BY revision DESC
LIMIT 1
`, sessionID)

	var analysis domain.StoredAnalysis
	var revision int64
	var resultRaw []byte

	err := row.Scan(&analysis.SessionID, &revision, &resultRaw, &analysis.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "latest analysis", fmt.Errorf("session %s", sessionID))
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}
	if err := json.Unmarshal(resultRaw, &analysis.Result); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	analysis.Revision = uint64(revision)
	return &analysis, nil
}

var _ ports.AnalysisRepository = (*AnalysisRepository)(nil)
