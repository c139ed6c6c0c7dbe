package reduce

import (
	"context"
	"fmt"
	"os"

	"github.com/fitzgen/preduce/emit"
	"github.com/fitzgen/preduce/merge"
	"github.com/fitzgen/preduce/predicate"
	"github.com/fitzgen/preduce/store"
)

// WorkerVerdict is what the supervisor learns after a worker finishes
// testing one candidate.
type WorkerVerdict struct {
	Candidate PotentialReduction
	// NotInteresting is true when the predicate rejected the candidate.
	NotInteresting bool
	// Interesting carries the committed test case when the predicate
	// accepted the candidate (directly or via a successful merge).
	Interesting *Interesting
	// MergeNotWorthwhile is true when the candidate was interesting but
	// stale, and the three-way merge either failed or did not shrink the
	// upstream smallest.
	MergeNotWorthwhile bool
	// WasMerge is true whenever the candidate's parent had already moved
	// (a three-way merge was attempted), regardless of outcome, so the
	// supervisor can attribute merges_total correctly.
	WasMerge bool
	Err      error
}

// WorkerActor owns a clone of the versioned repository and tests
// candidates against the predicate, per spec.md §4.6.
type WorkerActor struct {
	ID           string
	repo         *store.Repository
	upstreamDir  string
	predicate    *predicate.Runner
	emitter      emit.Emitter
	mergeEnabled bool
}

// NewWorkerActor returns a WorkerActor with its own repository clone of
// upstream, the supervisor's repository directory.
func NewWorkerActor(id string, repo *store.Repository, upstreamDir string, pred *predicate.Runner, mergeEnabled bool, emitter emit.Emitter) *WorkerActor {
	if emitter == nil {
		emitter = emit.NullEmitter{}
	}
	return &WorkerActor{
		ID:           id,
		repo:         repo,
		upstreamDir:  upstreamDir,
		predicate:    pred,
		emitter:      emitter,
		mergeEnabled: mergeEnabled,
	}
}

// RepoDir is the worker's own repository clone directory, used by the
// supervisor to fetch a newly-accepted commit into the central repository.
func (w *WorkerActor) RepoDir() string { return w.repo.Dir() }

// Test runs the predicate on candidate and, if interesting, attempts to
// commit or merge it against the upstream smallest. upstreamHead and
// upstreamSize reflect the supervisor's current smallest at dispatch
// time; the worker fetches that commit into its own clone and commits
// directly when it is the candidate's parent, merging otherwise.
func (w *WorkerActor) Test(ctx context.Context, candidate PotentialReduction, upstreamHead string, upstreamSize int64) WorkerVerdict {
	interesting, err := w.predicate.Interesting(ctx, candidate.TempFile.Path())
	if err != nil {
		return WorkerVerdict{Candidate: candidate, Err: fmt.Errorf("reduce: worker %s: %w", w.ID, err)}
	}
	if !interesting {
		w.emitter.Emit(emit.Event{Actor: emit.ActorWorker, ActorID: w.ID, Msg: "judged_not_interesting",
			Fields: map[string]interface{}{"provenance": candidate.Provenance}})
		return WorkerVerdict{Candidate: candidate, NotInteresting: true}
	}

	if err := w.repo.FetchAndResetHard(w.upstreamDir, upstreamHead); err != nil {
		return WorkerVerdict{Candidate: candidate, Err: err}
	}

	if candidate.ParentCommit == upstreamHead {
		return w.commitDirect(candidate)
	}
	return w.tryMerge(candidate, upstreamHead, upstreamSize)
}

func (w *WorkerActor) commitDirect(candidate PotentialReduction) WorkerVerdict {
	if err := w.repo.CopyTestCaseFrom(candidate.TempFile.Path()); err != nil {
		return WorkerVerdict{Candidate: candidate, Err: err}
	}
	commitID, err := w.repo.CommitCurrentFile(fmt.Sprintf("accept: %s", candidate.Provenance))
	if err != nil {
		return WorkerVerdict{Candidate: candidate, Err: err}
	}

	w.emitter.Emit(emit.Event{Actor: emit.ActorWorker, ActorID: w.ID, Msg: "judged_interesting",
		Fields: map[string]interface{}{"provenance": candidate.Provenance, "commit_id": commitID, "size": candidate.Size}})

	return WorkerVerdict{Candidate: candidate, Interesting: &Interesting{
		Provenance: candidate.Provenance,
		CommitID:   commitID,
		TempFile:   candidate.TempFile,
		Size:       candidate.Size,
	}}
}

// tryMerge attempts a three-way merge when the candidate's parent is no
// longer the upstream HEAD: base = the candidate's parent content, ours
// = the candidate, theirs = the current upstream smallest.
func (w *WorkerActor) tryMerge(candidate PotentialReduction, upstreamHead string, upstreamSize int64) WorkerVerdict {
	if !w.mergeEnabled {
		w.emitter.Emit(emit.Event{Actor: emit.ActorWorker, ActorID: w.ID, Msg: "merge_not_worthwhile",
			Fields: map[string]interface{}{"provenance": candidate.Provenance, "reason": "merge_disabled"}})
		return WorkerVerdict{Candidate: candidate, MergeNotWorthwhile: true, WasMerge: true}
	}

	ours, err := os.ReadFile(candidate.TempFile.Path())
	if err != nil {
		return WorkerVerdict{Candidate: candidate, Err: err}
	}
	theirs, err := os.ReadFile(w.repo.TestCasePath())
	if err != nil {
		return WorkerVerdict{Candidate: candidate, Err: err}
	}

	// base is captured by the producing reducer at candidate creation
	// time, since by the time a merge is needed the worker's own repo
	// clone has already been reset past that commit.
	merged, ok, err := merge.ThreeWay(candidate.ParentContent, ours, theirs)
	if err != nil {
		return WorkerVerdict{Candidate: candidate, Err: err}
	}
	if !ok || int64(len(merged)) >= upstreamSize {
		w.emitter.Emit(emit.Event{Actor: emit.ActorWorker, ActorID: w.ID, Msg: "merge_not_worthwhile",
			Fields: map[string]interface{}{"provenance": candidate.Provenance}})
		return WorkerVerdict{Candidate: candidate, MergeNotWorthwhile: true, WasMerge: true}
	}

	if err := w.repo.WriteTestCase(merged); err != nil {
		return WorkerVerdict{Candidate: candidate, Err: err}
	}
	commitID, err := w.repo.CommitCurrentFile(fmt.Sprintf("merge: %s", candidate.Provenance))
	if err != nil {
		return WorkerVerdict{Candidate: candidate, Err: err}
	}

	mergedTmp, err := store.AnonymousTempFile()
	if err != nil {
		return WorkerVerdict{Candidate: candidate, Err: err}
	}
	if err := store.WriteFileAtomic(mergedTmp.Path(), merged, 0o644); err != nil {
		mergedTmp.Release()
		return WorkerVerdict{Candidate: candidate, Err: err}
	}

	w.emitter.Emit(emit.Event{Actor: emit.ActorWorker, ActorID: w.ID, Msg: "merge_worthwhile",
		Fields: map[string]interface{}{"provenance": candidate.Provenance, "commit_id": commitID, "size": len(merged)}})

	return WorkerVerdict{Candidate: candidate, WasMerge: true, Interesting: &Interesting{
		Provenance: candidate.Provenance,
		CommitID:   commitID,
		TempFile:   mergedTmp,
		Size:       int64(len(merged)),
	}}
}
