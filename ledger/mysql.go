package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLLedger is an optional shared Ledger backend: a CI fleet reducing
// many test cases can point every run at one database and aggregate the
// resulting history on a single dashboard.
type MySQLLedger struct {
	db *sql.DB
}

// NewMySQLLedger opens a MySQL-backed ledger using dsn (the
// go-sql-driver/mysql DSN format, e.g. "user:pass@tcp(host:3306)/dbname").
func NewMySQLLedger(dsn string) (*MySQLLedger, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open mysql: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: ping mysql: %w", err)
	}

	l := &MySQLLedger{db: db}
	if err := l.createTable(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *MySQLLedger) createTable(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS judged_candidates (
			id          BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id      VARCHAR(255) NOT NULL,
			reducer_id  VARCHAR(255) NOT NULL,
			provenance  TEXT NOT NULL,
			interesting BOOLEAN NOT NULL,
			size        BIGINT NOT NULL,
			commit_id   VARCHAR(64) NOT NULL,
			ts          DATETIME NOT NULL,
			INDEX idx_run_id (run_id, ts)
		)
	`)
	if err != nil {
		return fmt.Errorf("ledger: create table: %w", err)
	}
	return nil
}

// RecordJudged implements Ledger.
func (l *MySQLLedger) RecordJudged(ctx context.Context, rec Record) error {
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
func (l *MySQLLedger) History(ctx context.Context, runID string) ([]Record, error) {
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
func (l *MySQLLedger) Close() error {
	return l.db.Close()
}
