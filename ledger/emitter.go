package ledger

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fitzgen/preduce/emit"
)

// Emitter adapts a Ledger to emit.Emitter, so the supervisor's normal
// event stream is enough to persist judged-candidate history without
// any reduction-search code depending on ledger directly.
type Emitter struct {
	ledger Ledger
	runID  string
}

// NewEmitter returns an Emitter recording every judged candidate of runID
// into ledger.
func NewEmitter(ledger Ledger, runID string) *Emitter {
	return &Emitter{ledger: ledger, runID: runID}
}

func (e *Emitter) Emit(event emit.Event) {
	rec, ok := e.recordFor(event)
	if !ok {
		return
	}
	// Best-effort: a ledger write failure must not stall the reduction
	// search, so it's reported on stderr rather than propagated.
	if err := e.ledger.RecordJudged(context.Background(), rec); err != nil {
		fmt.Fprintf(os.Stderr, "ledger: record judged candidate: %v\n", err)
	}
}

func (e *Emitter) recordFor(event emit.Event) (Record, bool) {
	switch event.Msg {
	case "new_smallest", "interesting_not_smallest":
		return Record{
			RunID:       e.runID,
			ReducerID:   stringField(event.Fields, "reducer_id"),
			Provenance:  stringField(event.Fields, "provenance"),
			Interesting: true,
			Size:        int64Field(event.Fields, "size"),
			CommitID:    stringField(event.Fields, "commit_id"),
			Timestamp:   time.Now(),
		}, true
	case "worker_not_interesting":
		return Record{
			RunID:       e.runID,
			ReducerID:   stringField(event.Fields, "reducer_id"),
			Provenance:  stringField(event.Fields, "provenance"),
			Interesting: false,
			Size:        int64Field(event.Fields, "size"),
			Timestamp:   time.Now(),
		}, true
	default:
		return Record{}, false
	}
}

func stringField(fields map[string]interface{}, key string) string {
	s, _ := fields[key].(string)
	return s
}

func int64Field(fields map[string]interface{}, key string) int64 {
	switch v := fields[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// Flush is a no-op: RecordJudged writes synchronously.
func (e *Emitter) Flush(context.Context) error { return nil }
