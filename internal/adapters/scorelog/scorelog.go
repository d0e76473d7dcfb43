// Package scorelog persists raw score submissions durably. The rank indexes
// are a rebuildable cache over this log: a full scan reconstructs every index
// from scratch if the index store is lost.
package scorelog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/playdeck/liverank/internal/domain/model"
	"github.com/playdeck/liverank/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS score (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    game_id TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    score REAL NOT NULL,
    submitted_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_game_subject ON score(game_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_score_submitted_at ON score(submitted_at);
`

// Log is the durable append-only score row store.
type Log struct {
	db *sql.DB
}

// Open opens (and if needed creates) the score log at path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open score log: %w", err)
	}
	// Serialize writers; sqlite allows a single writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create score log schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Append durably persists one raw submission and returns its row id.
func (l *Log) Append(ctx context.Context, sub model.ScoreSubmission) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO score (game_id, subject_id, score, submitted_at) VALUES (?, ?, ?, ?)`,
		sub.GameID, sub.SubjectID, sub.Score, sub.SubmittedAt.UTC().UnixMilli(),
	)
	if err != nil {
		metrics.RecordScorelogError()
		return 0, fmt.Errorf("append score row: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		metrics.RecordScorelogError()
		return 0, fmt.Errorf("append score row: %w", err)
	}
	metrics.RecordScorelogAppend()
	return id, nil
}

// Scan streams every stored submission to fn in insertion order. A non-nil
// error from fn aborts the scan.
func (l *Log) Scan(ctx context.Context, fn func(model.ScoreSubmission) error) error {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, game_id, subject_id, score, submitted_at FROM score ORDER BY id`,
	)
	if err != nil {
		return fmt.Errorf("scan score log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sub model.ScoreSubmission
		var submittedAt int64
		if err := rows.Scan(&sub.ID, &sub.GameID, &sub.SubjectID, &sub.Score, &submittedAt); err != nil {
			return fmt.Errorf("scan score row: %w", err)
		}
		sub.SubmittedAt = time.UnixMilli(submittedAt).UTC()
		if err := fn(sub); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan score log: %w", err)
	}
	return nil
}

// Count returns the number of stored score rows.
func (l *Log) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM score`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count score rows: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}
