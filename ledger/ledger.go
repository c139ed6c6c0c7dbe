// Package ledger persists the judged-candidate history of a reduction
// run: every candidate a worker tested, its verdict, size, and commit,
// for the histograms report and for comparing reducers across
// runs.
package ledger

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run has no recorded history.
var ErrNotFound = errors.New("ledger: run not found")

// Record is one judged candidate.
type Record struct {
	RunID       string
	ReducerID   string
	Provenance  string
	Interesting bool
	Size        int64
	CommitID    string
	Timestamp   time.Time
}

// Ledger persists judged candidates for later reporting.
type Ledger interface {
	// RecordJudged appends one judged candidate to the ledger.
	RecordJudged(ctx context.Context, rec Record) error

	// History returns every record for runID, oldest first.
	History(ctx context.Context, runID string) ([]Record, error)

	// Close releases the underlying connection.
	Close() error
}
