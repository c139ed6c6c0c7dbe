package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitzgen/preduce/emit"
)

// fakeLedger is an in-memory Ledger used only to assert what Emitter
// writes, without depending on a real SQL backend.
type fakeLedger struct {
	records []Record
}

func (f *fakeLedger) RecordJudged(_ context.Context, rec Record) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeLedger) History(_ context.Context, runID string) ([]Record, error) {
	var out []Record
	for _, r := range f.records {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedger) Close() error { return nil }

func TestEmitterRecordsNewSmallestAsInteresting(t *testing.T) {
	fake := &fakeLedger{}
	e := NewEmitter(fake, "run-1")

	e.Emit(emit.Event{
		Actor: emit.ActorSupervisor,
		Msg:   "new_smallest",
		Fields: map[string]interface{}{
			"reducer_id": "chunks",
			"provenance": "chunks: remove [4..9)",
			"size":       int64(42),
			"commit_id":  "abc123",
		},
	})

	require.Len(t, fake.records, 1)
	rec := fake.records[0]
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "chunks", rec.ReducerID)
	assert.True(t, rec.Interesting)
	assert.EqualValues(t, 42, rec.Size)
	assert.Equal(t, "abc123", rec.CommitID)
}

func TestEmitterRecordsWorkerNotInterestingAsNotInteresting(t *testing.T) {
	fake := &fakeLedger{}
	e := NewEmitter(fake, "run-1")

	e.Emit(emit.Event{
		Actor: emit.ActorSupervisor,
		Msg:   "worker_not_interesting",
		Fields: map[string]interface{}{
			"reducer_id": "balanced",
			"provenance": "balanced: remove [0..3)",
			"size":       int64(100),
		},
	})

	require.Len(t, fake.records, 1)
	assert.False(t, fake.records[0].Interesting)
	assert.Equal(t, "balanced", fake.records[0].ReducerID)
}

func TestEmitterIgnoresUnrelatedEvents(t *testing.T) {
	fake := &fakeLedger{}
	e := NewEmitter(fake, "run-1")

	e.Emit(emit.Event{Actor: emit.ActorReducer, Msg: "spawned"})
	e.Emit(emit.Event{Actor: emit.ActorSupervisor, Msg: "reducer_exhausted"})

	assert.Empty(t, fake.records)
}

func TestEmitterInterestingNotSmallestIsAlsoInteresting(t *testing.T) {
	fake := &fakeLedger{}
	e := NewEmitter(fake, "run-1")

	e.Emit(emit.Event{
		Actor:  emit.ActorSupervisor,
		Msg:    "interesting_not_smallest",
		Fields: map[string]interface{}{"reducer_id": "chunks", "size": int64(7)},
	})

	require.Len(t, fake.records, 1)
	assert.True(t, fake.records[0].Interesting)
}

func TestEmitterFlushIsANoOp(t *testing.T) {
	e := NewEmitter(&fakeLedger{}, "run-1")
	assert.NoError(t, e.Flush(context.Background()))
}
