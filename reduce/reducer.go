package reduce

import (
	"context"
	"fmt"
	"os"

	"github.com/fitzgen/preduce/emit"
	"github.com/fitzgen/preduce/store"
)

// ReducerActor wraps one ReducerProcess and produces candidates on
// demand for the supervisor, per spec.md §4.5. It is a single-threaded
// message loop: SetNewSeed and RequestNext are only ever handled one at
// a time, in the order the supervisor sends them.
type ReducerActor struct {
	ID      string
	process ReducerProcess
	emitter emit.Emitter
	tmpDir  string

	seed      *Interesting
	spawned   bool
	exhausted bool

	requests chan reducerRequest
	done     chan struct{}
}

type reducerRequest struct {
	kind    reducerRequestKind
	newSeed *Interesting
	reply   chan reducerReply
}

type reducerRequestKind int

const (
	reqSetNewSeed reducerRequestKind = iota
	reqRequestNext
	reqShutdown
)

// reducerReply carries the outcome of a RequestNext: either a candidate
// or a signal that the reducer has no more reductions for its seed.
type reducerReply struct {
	candidate *PotentialReduction
	exhausted bool
	err       error
}

// NewReducerActor returns a ReducerActor identified by id, driving
// process. tmpDir is kept on the actor; candidate tempfiles are allocated
// with store.AnonymousTempFile under the system temp directory.
// The actor does not start running until Run is called.
func NewReducerActor(id string, process ReducerProcess, tmpDir string, emitter emit.Emitter) *ReducerActor {
	if emitter == nil {
		emitter = emit.NullEmitter{}
	}
	return &ReducerActor{
		ID:       id,
		process:  process,
		emitter:  emitter,
		tmpDir:   tmpDir,
		requests: make(chan reducerRequest),
		done:     make(chan struct{}),
	}
}

// Run executes the actor's message loop until Shutdown is processed or
// ctx is done. It is meant to be run in its own goroutine.
func (a *ReducerActor) Run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			a.process.Shutdown()
			return
		case req := <-a.requests:
			switch req.kind {
			case reqSetNewSeed:
				a.handleSetNewSeed(req.newSeed)
				req.reply <- reducerReply{}
			case reqRequestNext:
				cand, exhausted, err := a.handleRequestNext()
				req.reply <- reducerReply{candidate: cand, exhausted: exhausted, err: err}
			case reqShutdown:
				a.process.Shutdown()
				req.reply <- reducerReply{}
				return
			}
		}
	}
}

// SetNewSeed updates the seed the next RequestNext will operate against.
func (a *ReducerActor) SetNewSeed(ctx context.Context, seed Interesting) error {
	reply := make(chan reducerReply, 1)
	select {
	case a.requests <- reducerRequest{kind: reqSetNewSeed, newSeed: &seed, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case r := <-reply:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestNext asks the actor to produce at most one candidate.
func (a *ReducerActor) RequestNext(ctx context.Context) (*PotentialReduction, bool, error) {
	reply := make(chan reducerReply, 1)
	select {
	case a.requests <- reducerRequest{kind: reqRequestNext, reply: reply}:
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.candidate, r.exhausted, r.err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Shutdown terminates the driver and stops the actor's message loop.
// Idempotent: sending it twice is a no-op, per spec.md §8's property 6.
func (a *ReducerActor) Shutdown(ctx context.Context) error {
	select {
	case <-a.done:
		return nil
	default:
	}
	reply := make(chan reducerReply, 1)
	select {
	case a.requests <- reducerRequest{kind: reqShutdown, reply: reply}:
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case r := <-reply:
		return r.err
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *ReducerActor) handleSetNewSeed(seed *Interesting) {
	oldSeed := a.seed
	a.seed = seed
	a.exhausted = false

	if !a.spawned || oldSeed == nil {
		return
	}
	// Repair rather than restart: the process already has iteration
	// state from the previous seed, and NextOnInteresting lets it shift
	// coordinates instead of recomputing from scratch.
	exhausted, err := a.process.NextOnInteresting(oldSeed.TempFile.Path(), seed.TempFile.Path(), seed.Size)
	if err != nil {
		a.emitter.Emit(emit.Event{Actor: emit.ActorReducer, ActorID: a.ID, Msg: "errored",
			Fields: map[string]interface{}{"error": err.Error(), "op": "next_on_interesting"}})
		a.exhausted = true
		return
	}
	a.exhausted = exhausted
}

func (a *ReducerActor) handleRequestNext() (*PotentialReduction, bool, error) {
	if a.seed == nil {
		return nil, true, fmt.Errorf("reduce: reducer %s has no seed", a.ID)
	}
	if a.exhausted {
		a.emitter.Emit(emit.Event{Actor: emit.ActorReducer, ActorID: a.ID, Msg: "exhausted"})
		return nil, true, nil
	}

	if !a.spawned {
		if err := a.process.Spawn(a.seed.TempFile.Path()); err != nil {
			return nil, true, err
		}
		a.spawned = true
		a.emitter.Emit(emit.Event{Actor: emit.ActorReducer, ActorID: a.ID, Msg: "spawned"})
	}

	tmp, err := store.AnonymousTempFile()
	if err != nil {
		return nil, true, err
	}

	produced, err := a.process.Reduce(a.seed.TempFile.Path(), tmp.Path())
	if err != nil {
		tmp.Release()
		return nil, true, err
	}
	if !produced {
		tmp.Release()
		return a.advance()
	}

	size, err := tmp.Size()
	if err != nil {
		tmp.Release()
		return nil, true, err
	}

	parentContent, err := os.ReadFile(a.seed.TempFile.Path())
	if err != nil {
		tmp.Release()
		return nil, true, err
	}

	return &PotentialReduction{
		Provenance:    a.ID,
		ParentCommit:  a.seed.CommitID,
		ParentContent: parentContent,
		TempFile:      tmp,
		Size:          size,
		ReducerID:     a.ID,
	}, false, nil
}

// advance moves to the next state after Reduce declined to produce a
// candidate (not necessarily exhaustion) and tries again, repeating until
// a candidate is produced or the process reports exhaustion.
func (a *ReducerActor) advance() (*PotentialReduction, bool, error) {
	exhausted, err := a.process.Next(a.seed.TempFile.Path())
	if err != nil {
		return nil, true, err
	}
	a.exhausted = exhausted
	if exhausted {
		a.emitter.Emit(emit.Event{Actor: emit.ActorReducer, ActorID: a.ID, Msg: "exhausted"})
		return nil, true, nil
	}
	return a.handleRequestNext()
}
