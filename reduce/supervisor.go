package reduce

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fitzgen/preduce/emit"
	"github.com/fitzgen/preduce/predicate"
	"github.com/fitzgen/preduce/store"
)

// runState is the supervisor's running-state flag from spec.md §4.7.
type runState int

const (
	running runState = iota
	shuttingDown
)

// Supervisor is the central scheduler: it distributes candidates to
// workers, maintains the current smallest, rebases reducers when it
// changes, and handles merges and graceful shutdown, per spec.md §4.7.
type Supervisor struct {
	cfg    supervisorConfig
	repo   *store.Repository
	queue  *ReductionQueue
	oracle *Oracle

	mu           sync.Mutex
	smallest     Interesting
	originalSize int64
	state        runState
	busyWorkers  int
	reducerDone  map[string]bool

	reducers []*ReducerActor
	workers  []*WorkerActor

	events chan supervisorEvent
	wakeCh map[string]chan struct{}
}

type supervisorEventKind int

const (
	evtReducerReady supervisorEventKind = iota
	evtReducerExhausted
	evtReducerErrored
	evtWorkerInteresting
	evtWorkerNotInteresting
	evtWorkerMergeNotWorthwhile
	evtWorkerErrored
	evtSigint
)

type supervisorEvent struct {
	kind      supervisorEventKind
	reducerID string
	workerDir string
	candidate PotentialReduction
	verdict   WorkerVerdict
	err       error
}

// New returns a Supervisor seeded with the initial test case at
// seedPath, driving reducers (each already bound to its own
// ReducerProcess) and predicate pred. repoParentDir is where the
// supervisor's own versioned repository and worker clones are rooted.
func New(seedPath string, reducerProcs map[string]ReducerProcess, pred *predicate.Runner, repoParentDir string, opts ...Option) (*Supervisor, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("reduce: option: %w", err)
		}
	}

	repo, err := store.NewRepository(repoParentDir)
	if err != nil {
		return nil, &RepositoryError{Op: "new", Err: err}
	}

	if err := store.BackupTestCase(seedPath); err != nil {
		return nil, &TestCaseBackupError{Path: seedPath, Err: err}
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return nil, &IoError{Op: "read seed", Path: seedPath, Err: err}
	}
	if err := repo.WriteTestCase(data); err != nil {
		return nil, &RepositoryError{Op: "write seed", Err: err}
	}
	commitID, err := repo.CommitCurrentFile("Seed commit")
	if err != nil {
		return nil, &RepositoryError{Op: "commit seed", Err: err}
	}

	seedTmp, err := store.AnonymousTempFile()
	if err != nil {
		return nil, &IoError{Op: "alloc seed tempfile", Err: err}
	}
	if err := store.WriteFileAtomic(seedTmp.Path(), data, 0o644); err != nil {
		return nil, &IoError{Op: "write seed tempfile", Err: err}
	}

	smallest := Interesting{
		Provenance: "<initial>",
		CommitID:   commitID,
		TempFile:   seedTmp,
		Size:       int64(len(data)),
	}

	oracle := NewOracle()
	queue := NewReductionQueue(oracle, cfg.queueDepth)

	s := &Supervisor{
		cfg:          cfg,
		repo:         repo,
		queue:        queue,
		oracle:       oracle,
		smallest:     smallest,
		originalSize: smallest.Size,
		state:        running,
		reducerDone:  make(map[string]bool),
		events:       make(chan supervisorEvent, 64),
		wakeCh:       make(map[string]chan struct{}),
	}

	workerCount := cfg.workerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	for i := 0; i < workerCount; i++ {
		id := fmt.Sprintf("worker-%d", i)
		wrepo, err := store.CloneRepository(repo.Dir(), repoParentDir)
		if err != nil {
			return nil, &RepositoryError{Op: "clone for worker", Err: err}
		}
		s.workers = append(s.workers, NewWorkerActor(id, wrepo, repo.Dir(), pred, cfg.mergeEnabled, cfg.emitter))
	}

	for id, proc := range reducerProcs {
		actor := NewReducerActor(id, proc, repoParentDir, cfg.emitter)
		s.reducers = append(s.reducers, actor)
		s.wakeCh[id] = make(chan struct{}, 1)
	}

	return s, nil
}

// Run drives the reduction search to completion: every reducer
// exhausted and every worker idle, or ctx cancellation / a SIGINT
// observed by the caller via Interrupt. It returns the final smallest
// Interesting test case.
func (s *Supervisor) Run(ctx context.Context) (Interesting, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	for _, r := range s.reducers {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(ctx)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.pumpReducer(ctx, r)
		}()
	}
	for _, w := range s.workers {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.pumpWorker(ctx, w)
		}()
	}

	initial := s.currentSmallest()
	for _, r := range s.reducers {
		if err := r.SetNewSeed(ctx, initial); err != nil {
			return s.currentSmallest(), err
		}
	}

	err := s.loop(ctx)
	cancel()
	for _, r := range s.reducers {
		r.Shutdown(context.Background())
	}
	wg.Wait()

	return s.currentSmallest(), err
}

// Interrupt transitions the supervisor into ShuttingDown, per the
// GotSigint handler of spec.md §4.7.
func (s *Supervisor) Interrupt() {
	select {
	case s.events <- supervisorEvent{kind: evtSigint}:
	default:
	}
}

func (s *Supervisor) currentSmallest() Interesting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.smallest
}

// pumpReducer repeatedly asks a reducer for its next candidate and
// forwards it to the supervisor's queue, reporting exhaustion and
// blocking (on wakeCh) until a new seed revives it.
func (s *Supervisor) pumpReducer(ctx context.Context, r *ReducerActor) {
	for {
		cand, exhausted, err := r.RequestNext(ctx)
		if err != nil {
			select {
			case s.events <- supervisorEvent{kind: evtReducerErrored, reducerID: r.ID, err: err}:
			case <-ctx.Done():
			}
			return
		}
		if exhausted {
			select {
			case s.events <- supervisorEvent{kind: evtReducerExhausted, reducerID: r.ID}:
			case <-ctx.Done():
				return
			}
			select {
			case <-s.wakeCh[r.ID]:
				continue
			case <-ctx.Done():
				return
			}
		}

		if err := s.queue.Enqueue(ctx, *cand); err != nil {
			return
		}
		select {
		case s.events <- supervisorEvent{kind: evtReducerReady, reducerID: r.ID, candidate: *cand}:
		case <-ctx.Done():
			return
		}
	}
}

// pumpWorker repeatedly dequeues a candidate and tests it, reporting the
// verdict to the supervisor. The worker is counted busy from the moment
// it dequeues a candidate until loop() has classified and handled the
// resulting verdict, so allExhaustedAndIdle never fires while a verdict
// is still in flight.
func (s *Supervisor) pumpWorker(ctx context.Context, w *WorkerActor) {
	for {
		cand, err := s.queue.Dequeue(ctx)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.busyWorkers++
		s.mu.Unlock()

		smallest := s.currentSmallest()
		verdict := w.Test(ctx, cand, smallest.CommitID, smallest.Size)
		evt := s.classify(verdict)
		evt.workerDir = w.RepoDir()
		select {
		case s.events <- evt:
		case <-ctx.Done():
			s.mu.Lock()
			s.busyWorkers--
			s.mu.Unlock()
			return
		}
	}
}

func (s *Supervisor) classify(v WorkerVerdict) supervisorEvent {
	switch {
	case v.Err != nil:
		return supervisorEvent{kind: evtWorkerErrored, candidate: v.Candidate, err: v.Err}
	case v.NotInteresting:
		return supervisorEvent{kind: evtWorkerNotInteresting, candidate: v.Candidate}
	case v.MergeNotWorthwhile:
		return supervisorEvent{kind: evtWorkerMergeNotWorthwhile, candidate: v.Candidate, verdict: v}
	default:
		return supervisorEvent{kind: evtWorkerInteresting, candidate: v.Candidate, verdict: v}
	}
}

// loop is the supervisor's single-threaded message handler, serializing
// every mutation of smallest.
func (s *Supervisor) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-s.events:
			switch evt.kind {
			case evtReducerReady:
				// Candidate is already enqueued by pumpReducer; nothing
				// further to do here beyond bookkeeping/metrics.
				s.updateMetrics()

			case evtReducerExhausted:
				s.reducerDone[evt.reducerID] = true
				s.cfg.emitter.Emit(emit.Event{Actor: emit.ActorSupervisor, Msg: "reducer_exhausted",
					Fields: map[string]interface{}{"reducer_id": evt.reducerID}})
				if s.allExhaustedAndIdle() {
					return nil
				}

			case evtReducerErrored:
				s.cfg.emitter.Emit(emit.Event{Actor: emit.ActorSupervisor, Msg: "reducer_errored",
					Fields: map[string]interface{}{"reducer_id": evt.reducerID, "error": evt.err.Error()}})
				s.reducerDone[evt.reducerID] = true
				if s.allExhaustedAndIdle() {
					return nil
				}

			case evtWorkerNotInteresting:
				s.mu.Lock()
				s.busyWorkers--
				s.mu.Unlock()
				s.oracle.Record(evt.candidate.ReducerID, NotInteresting)
				if s.cfg.metrics != nil {
					s.cfg.metrics.RecordJudged(NotInteresting)
				}
				s.cfg.emitter.Emit(emit.Event{Actor: emit.ActorSupervisor, Msg: "worker_not_interesting",
					Fields: map[string]interface{}{
						"reducer_id": evt.candidate.ReducerID,
						"provenance": evt.candidate.Provenance,
						"size":       evt.candidate.Size,
					}})
				evt.candidate.TempFile.Release()
				s.updateMetrics()
				if s.allExhaustedAndIdle() {
					return nil
				}

			case evtWorkerMergeNotWorthwhile:
				s.mu.Lock()
				s.busyWorkers--
				s.mu.Unlock()
				s.oracle.Record(evt.candidate.ReducerID, NotInteresting)
				if s.cfg.metrics != nil {
					s.cfg.metrics.RecordJudged(NotInteresting)
					s.cfg.metrics.RecordMerge(false)
				}
				s.cfg.emitter.Emit(emit.Event{Actor: emit.ActorSupervisor, Msg: "merge_not_worthwhile",
					Fields: map[string]interface{}{
						"reducer_id": evt.candidate.ReducerID,
						"provenance": evt.candidate.Provenance,
					}})
				evt.candidate.TempFile.Release()
				s.updateMetrics()
				if s.allExhaustedAndIdle() {
					return nil
				}

			case evtWorkerErrored:
				s.mu.Lock()
				s.busyWorkers--
				s.mu.Unlock()
				s.cfg.emitter.Emit(emit.Event{Actor: emit.ActorSupervisor, Msg: "worker_errored",
					Fields: map[string]interface{}{"error": evt.err.Error()}})
				evt.candidate.TempFile.Release()
				if s.allExhaustedAndIdle() {
					return nil
				}

			case evtWorkerInteresting:
				s.mu.Lock()
				s.busyWorkers--
				s.mu.Unlock()
				if err := s.handleInteresting(ctx, evt); err != nil {
					return err
				}
				if s.allExhaustedAndIdle() {
					return nil
				}

			case evtSigint:
				s.state = shuttingDown
				return ErrInterrupted
			}
		}
	}
}

func (s *Supervisor) handleInteresting(ctx context.Context, evt supervisorEvent) error {
	newCase := *evt.verdict.Interesting

	s.oracle.Record(evt.candidate.ReducerID, Judged)
	if s.cfg.metrics != nil {
		s.cfg.metrics.RecordJudged(Judged)
		if evt.verdict.WasMerge {
			s.cfg.metrics.RecordMerge(true)
		}
	}

	if newCase.Size < s.currentSmallest().Size {
		// Pull the winning commit out of the producing worker's isolated
		// clone and into the central repository so IsAncestor below (and
		// every other worker's next FetchAndResetHard) can see it.
		if err := s.repo.FetchAndResetHard(evt.workerDir, newCase.CommitID); err != nil {
			return &RepositoryError{Op: "adopt smallest", Err: err}
		}

		s.mu.Lock()
		s.smallest = newCase
		s.mu.Unlock()

		s.cfg.emitter.Emit(emit.Event{Actor: emit.ActorSupervisor, Msg: "new_smallest",
			Fields: map[string]interface{}{
				"commit_id":  newCase.CommitID,
				"size":       newCase.Size,
				"provenance": newCase.Provenance,
				"reducer_id": evt.candidate.ReducerID,
			}})

		// Evict queued candidates whose parent fell off the path to the
		// new smallest: every reducer below is about to be reseeded
		// against newCase, so any still-queued candidate derived from a
		// commit that isn't one of newCase's ancestors is stale.
		stale := s.queue.Filter(func(p PotentialReduction) bool {
			ok, err := s.repo.IsAncestor(p.ParentCommit, newCase.CommitID)
			return err == nil && ok
		})
		for _, p := range stale {
			p.TempFile.Release()
		}

		for _, r := range s.reducers {
			if err := r.SetNewSeed(ctx, newCase); err != nil {
				return err
			}
			s.reducerDone[r.ID] = false
			select {
			case s.wakeCh[r.ID] <- struct{}{}:
			default:
			}
		}
	} else {
		s.cfg.emitter.Emit(emit.Event{Actor: emit.ActorSupervisor, Msg: "interesting_not_smallest",
			Fields: map[string]interface{}{
				"commit_id":  newCase.CommitID,
				"size":       newCase.Size,
				"provenance": newCase.Provenance,
				"reducer_id": evt.candidate.ReducerID,
			}})
	}
	return nil
}

// allExhaustedAndIdle reports whether the search has nothing left to do:
// no queued candidates, no worker still testing one, and every reducer
// exhausted. All three must hold, or a verdict still in flight could be
// silently dropped when loop returns.
func (s *Supervisor) allExhaustedAndIdle() bool {
	if s.queue.Len() > 0 {
		return false
	}
	s.mu.Lock()
	busy := s.busyWorkers
	s.mu.Unlock()
	if busy > 0 {
		return false
	}
	for _, r := range s.reducers {
		if !s.reducerDone[r.ID] {
			return false
		}
	}
	return true
}

func (s *Supervisor) updateMetrics() {
	if s.cfg.metrics == nil {
		return
	}
	s.cfg.metrics.SetQueueDepth(s.queue.Len())

	s.mu.Lock()
	busy := s.busyWorkers
	s.mu.Unlock()
	s.cfg.metrics.SetActiveWorkers(busy)

	active := 0
	for _, r := range s.reducers {
		if !s.reducerDone[r.ID] {
			active++
		}
		s.cfg.metrics.SetOracleScore(r.ID, s.oracle.Score(r.ID))
	}
	s.cfg.metrics.SetReducersActive(active)
}
