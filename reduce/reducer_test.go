package reduce

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitzgen/preduce/emit"
	"github.com/fitzgen/preduce/store"
)

// fakeProcess is a scripted ReducerProcess used to drive ReducerActor
// without a real subprocess or range engine.
type fakeProcess struct {
	spawnErr      error
	reduceResults []bool // consumed in order by successive Reduce calls
	reduceErr     error
	nextExhausted bool
	nextErr       error
	shutdownCalls int
}

func (f *fakeProcess) Spawn(string) error { return f.spawnErr }

func (f *fakeProcess) Reduce(seedPath, destPath string) (bool, error) {
	if f.reduceErr != nil {
		return false, f.reduceErr
	}
	if len(f.reduceResults) == 0 {
		return false, nil
	}
	produced := f.reduceResults[0]
	f.reduceResults = f.reduceResults[1:]
	if produced {
		data, err := os.ReadFile(seedPath)
		if err != nil {
			return false, err
		}
		if err := os.WriteFile(destPath, data[:len(data)/2], 0o644); err != nil {
			return false, err
		}
	}
	return produced, nil
}

func (f *fakeProcess) Next(string) (bool, error) { return f.nextExhausted, f.nextErr }

func (f *fakeProcess) NextOnInteresting(string, string, int64) (bool, error) {
	return f.nextExhausted, f.nextErr
}

func (f *fakeProcess) FastForward(string, int) (bool, error) { return f.nextExhausted, f.nextErr }

func (f *fakeProcess) Shutdown() error {
	f.shutdownCalls++
	return nil
}

func seedInteresting(t *testing.T, content string) Interesting {
	t.Helper()
	tmp, err := store.AnonymousTempFile()
	require.NoError(t, err)
	t.Cleanup(func() { tmp.Release() })
	require.NoError(t, os.WriteFile(tmp.Path(), []byte(content), 0o644))
	size, err := tmp.Size()
	require.NoError(t, err)
	return Interesting{Provenance: "<initial>", CommitID: "seed-commit", TempFile: tmp, Size: size}
}

func runActor(t *testing.T, proc *fakeProcess) (*ReducerActor, context.Context, func()) {
	t.Helper()
	actor := NewReducerActor("chunks", proc, t.TempDir(), emit.NullEmitter{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		actor.Run(ctx)
		close(done)
	}()
	return actor, ctx, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("actor did not shut down")
		}
	}
}

func TestReducerActorProducesCandidateOnFirstReduce(t *testing.T) {
	proc := &fakeProcess{reduceResults: []bool{true}}
	actor, ctx, stop := runActor(t, proc)
	defer stop()

	require.NoError(t, actor.SetNewSeed(ctx, seedInteresting(t, "0123456789")))

	cand, exhausted, err := actor.RequestNext(ctx)
	require.NoError(t, err)
	require.False(t, exhausted)
	require.NotNil(t, cand)
	assert.Equal(t, "chunks", cand.ReducerID)
	assert.Equal(t, "seed-commit", cand.ParentCommit)
	defer cand.TempFile.Release()
}

func TestReducerActorAdvancesWhenReduceProducesNothing(t *testing.T) {
	proc := &fakeProcess{reduceResults: []bool{false, true}}
	actor, ctx, stop := runActor(t, proc)
	defer stop()

	require.NoError(t, actor.SetNewSeed(ctx, seedInteresting(t, "0123456789")))

	cand, exhausted, err := actor.RequestNext(ctx)
	require.NoError(t, err)
	assert.False(t, exhausted)
	require.NotNil(t, cand)
	defer cand.TempFile.Release()
}

func TestReducerActorReportsExhaustionWithoutACandidate(t *testing.T) {
	proc := &fakeProcess{reduceResults: []bool{false}, nextExhausted: true}
	actor, ctx, stop := runActor(t, proc)
	defer stop()

	require.NoError(t, actor.SetNewSeed(ctx, seedInteresting(t, "0123456789")))

	cand, exhausted, err := actor.RequestNext(ctx)
	require.NoError(t, err)
	assert.True(t, exhausted)
	assert.Nil(t, cand)
}

func TestReducerActorPropagatesSpawnError(t *testing.T) {
	boom := errors.New("spawn failed")
	proc := &fakeProcess{spawnErr: boom}
	actor, ctx, stop := runActor(t, proc)
	defer stop()

	require.NoError(t, actor.SetNewSeed(ctx, seedInteresting(t, "abc")))

	_, exhausted, err := actor.RequestNext(ctx)
	assert.True(t, exhausted)
	assert.ErrorIs(t, err, boom)
}

func TestReducerActorShutdownIsIdempotent(t *testing.T) {
	proc := &fakeProcess{}
	actor := NewReducerActor("chunks", proc, t.TempDir(), emit.NullEmitter{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx)

	require.NoError(t, actor.Shutdown(context.Background()))
	require.NoError(t, actor.Shutdown(context.Background()))
	assert.Equal(t, 1, proc.shutdownCalls)
}

func TestReducerActorSetNewSeedCallsNextOnInterestingAfterFirstSpawn(t *testing.T) {
	proc := &fakeProcess{reduceResults: []bool{true}}
	actor, ctx, stop := runActor(t, proc)
	defer stop()

	require.NoError(t, actor.SetNewSeed(ctx, seedInteresting(t, "0123456789")))
	cand, _, err := actor.RequestNext(ctx)
	require.NoError(t, err)
	cand.TempFile.Release()

	// A second, smaller seed should repair state via NextOnInteresting
	// rather than re-spawning; the fake reports not-exhausted so the
	// next RequestNext must still be able to produce a candidate.
	proc.reduceResults = []bool{true}
	require.NoError(t, actor.SetNewSeed(ctx, seedInteresting(t, "01234")))

	cand2, exhausted, err := actor.RequestNext(ctx)
	require.NoError(t, err)
	assert.False(t, exhausted)
	require.NotNil(t, cand2)
	cand2.TempFile.Release()
}
