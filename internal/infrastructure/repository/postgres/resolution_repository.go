package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
)

// ResolutionRepository is the journal of resolved requests.
type ResolutionRepository struct {
	db *sql.DB
}

func NewResolutionRepository(db *sql.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, domain.WrapError(domain.ErrResourceUnavailable, "db ping", err)
	}
	return db, nil
}

func (r *ResolutionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker and cli startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS resolution_events (
	id TEXT PRIMARY KEY,
	request_id TEXT,
	question TEXT,
	language TEXT NOT NULL,
	stage TEXT NOT NULL,
	source TEXT NOT NULL,
	origin TEXT NOT NULL,
	degraded BOOLEAN NOT NULL DEFAULT FALSE,
	quality_reason TEXT,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_resolution_events_created_at ON resolution_events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_resolution_events_stage ON resolution_events(stage);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Save is idempotent on the event id so redelivered messages are ignored.
func (r *ResolutionRepository) Save(ctx context.Context, event domain.ResolutionEvent) error {
	if event.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save resolution event", errors.New("event id is empty"))
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO resolution_events (
	id, request_id, question, language, stage, source, origin, degraded, quality_reason, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO NOTHING
`,
		event.ID, nullString(event.RequestID), nullString(event.Question), string(event.Language), string(event.Stage),
		event.Source, string(event.Origin), event.Degraded, nullString(event.QualityReason),
		event.Duration.Milliseconds(), createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert resolution event: %w", err)
	}
	return nil
}

// SourceCounts aggregates answered requests per stage and source label since
// the given instant, busiest first.
func (r *ResolutionRepository) SourceCounts(ctx context.Context, since time.Time) ([]domain.SourceCount, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT stage, source, COUNT(*)
FROM resolution_events
WHERE created_at >= $1
GROUP BY stage, source
ORDER BY COUNT(*) DESC, stage, source
`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query source counts: %w", err)
	}
	defer rows.Close()

	counts := make([]domain.SourceCount, 0)
	for rows.Next() {
		var (
			stage string
			count domain.SourceCount
		)
		if err := rows.Scan(&stage, &count.Source, &count.Count); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		count.Stage = domain.Stage(stage)
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source counts: %w", err)
	}
	return counts, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
