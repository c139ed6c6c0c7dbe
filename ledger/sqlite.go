package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteLedger is the default local Ledger backend: one file, no server,
// suitable for a single `preduce` invocation.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (creating if necessary) a SQLite-backed ledger at
// path.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway

	l := &SQLiteLedger{db: db}
	if err := l.createTable(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLedger) createTable(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS judged_candidates (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			reducer_id  TEXT NOT NULL,
			provenance  TEXT NOT NULL,
			interesting INTEGER NOT NULL,
			size        INTEGER NOT NULL,
			commit_id   TEXT NOT NULL,
			ts          TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ledger: create table: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_judged_candidates_run_id
		ON judged_candidates(run_id, ts)
	`)
	if err != nil {
		return fmt.Errorf("ledger: create index: %w", err)
	}
	return nil
}

// RecordJudged implements Ledger.
func (l *SQLiteLedger) RecordJudged(ctx context.Context, rec Record) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO judged_candidates (run_id, reducer_id, provenance, interesting, size, commit_id, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.ReducerID, rec.Provenance, rec.Interesting, rec.Size, rec.CommitID, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("ledger: insert: %w", err)
	}
	return nil
}

// History implements Ledger.
func (l *SQLiteLedger) History(ctx context.Context, runID string) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, reducer_id, provenance, interesting, size, commit_id, ts
		FROM judged_candidates
		WHERE run_id = ?
		ORDER BY ts ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: query: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.RunID, &rec.ReducerID, &rec.Provenance, &rec.Interesting, &rec.Size, &rec.CommitID, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: rows: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// Close implements Ledger.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
